package cli

import (
	"fmt"
	"strings"

	"github.com/roach88/rowkit/internal/bind"
)

// parseParam parses a --param flag of the form "@Name:type=value" or
// "@Name=value". The type is any name bind.ParseType accepts; without one the
// value binds as text. The literal value "NULL" binds SQL NULL.
func parseParam(flag string) (bind.Parameter, error) {
	decl, value, ok := strings.Cut(flag, "=")
	if !ok {
		return bind.Parameter{}, fmt.Errorf("param %q: expected @Name[:type]=value", flag)
	}
	name, typeName, typed := strings.Cut(decl, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return bind.Parameter{}, fmt.Errorf("param %q: missing name", flag)
	}

	typ := bind.TypeVarWChar
	if typed {
		t, err := bind.ParseType(typeName)
		if err != nil {
			return bind.Parameter{}, fmt.Errorf("param %q: %w", flag, err)
		}
		typ = t
	}

	var v any = value
	if value == "NULL" {
		v = nil
	}
	return bind.P(name, v, typ), nil
}

func parseParams(flags []string) ([]bind.Parameter, error) {
	params := make([]bind.Parameter, 0, len(flags))
	for _, f := range flags {
		p, err := parseParam(f)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}
