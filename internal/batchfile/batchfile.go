// Package batchfile reads batch definitions from YAML or CUE files and
// turns them into store batch items.
//
// A batch file holds a single top-level "items" list:
//
//	items:
//	  - id: 1
//	    kind: nonquery
//	    query: UPDATE Products SET Price = @Price WHERE CategoryID = @CatID
//	    params:
//	      - {name: "@Price", type: currency, value: "2.99"}
//	      - {name: "@CatID", type: bigint, value: 1}
//	  - id: 2
//	    kind: many
//	    query: SELECT * FROM Products
//
// Files ending in .cue are evaluated with CUE first, so items may be
// generated with comprehensions or share definitions. Everything else is
// parsed as YAML with unknown fields rejected.
package batchfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/rowkit/internal/bind"
	"github.com/roach88/rowkit/internal/store"
)

// Error codes reported in LoadError.Code.
const (
	ErrCodeNotFound     = "E005" // Batch file not found or unreadable
	ErrCodeParseFailed  = "E004" // YAML syntax error or unknown field
	ErrCodeBuildFailed  = "E006" // CUE evaluation failed
	ErrCodeNoItems      = "E201" // File defines no items
	ErrCodeInvalidParam = "E203" // Unknown parameter type
)

// LoadError reports a batch file that cannot be turned into batch items.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsLoadError returns true if err is or wraps a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// File is the decoded form of a batch file.
type File struct {
	Items []Item `yaml:"items" json:"items"`
}

// Item is one batch entry as written in the file.
type Item struct {
	ID     int     `yaml:"id" json:"id"`
	Kind   string  `yaml:"kind" json:"kind"`
	Query  string  `yaml:"query" json:"query"`
	Params []Param `yaml:"params,omitempty" json:"params,omitempty"`
}

// Param is one parameter as written in the file. Type names are those
// accepted by bind.ParseType; an omitted type binds the value as-is.
type Param struct {
	Name  string `yaml:"name" json:"name"`
	Type  string `yaml:"type,omitempty" json:"type,omitempty"`
	Value any    `yaml:"value" json:"value"`
}

// Load reads the batch file at path and converts it to batch items.
// Structural checks (ids, kinds, placeholders) are left to
// store.ValidateBatch, except that kind and parameter type names must be
// known.
func Load(path string) ([]store.BatchItem, error) {
	file, err := Decode(path)
	if err != nil {
		return nil, err
	}
	return file.BatchItems()
}

// Decode reads the batch file at path without converting it.
func Decode(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading batch file: %v", err)}
	}

	var file *File
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		file, err = decodeCUE(path, data)
	} else {
		file, err = decodeYAML(data)
	}
	if err != nil {
		return nil, err
	}

	if len(file.Items) == 0 {
		return nil, &LoadError{Code: ErrCodeNoItems, Message: fmt.Sprintf("%s defines no items", path)}
	}
	return file, nil
}

func decodeYAML(data []byte) (*File, error) {
	var file File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("parsing YAML: %v", err)}
	}
	return &file, nil
}

func decodeCUE(path string, data []byte) (*File, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, "compiling CUE", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, "evaluating CUE", err)
	}

	var file File
	items := value.LookupPath(cue.ParsePath("items"))
	if !items.Exists() {
		return &file, nil
	}
	if err := items.Decode(&file.Items); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, "decoding items", err)
	}
	return &file, nil
}

func cueLoadError(code, msg string, err error) *LoadError {
	le := &LoadError{Code: code, Message: fmt.Sprintf("%s: %v", msg, err)}
	if positions := cueerrors.Positions(err); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}

// BatchItems converts the decoded items, preserving file order.
//
// An unknown kind converts to store.QueryUnset so that store.ValidateBatch
// reports it in item order. An unknown parameter type fails the load, unless
// an earlier item already violates batch validation, in which case that
// violation is returned.
func (f *File) BatchItems() ([]store.BatchItem, error) {
	items := make([]store.BatchItem, 0, len(f.Items))
	for i, it := range f.Items {
		kind, _ := store.ParseQueryKind(it.Kind)

		var params []bind.Parameter
		if it.Params != nil {
			params = make([]bind.Parameter, 0, len(it.Params))
		}
		for _, p := range it.Params {
			if p.Name == "" && p.Type == "" && p.Value == nil {
				params = append(params, bind.Parameter{})
				continue
			}
			typ, err := bind.ParseType(p.Type)
			if err != nil {
				if verr := store.ValidateBatch(items); verr != nil {
					return nil, verr
				}
				return nil, &LoadError{Code: ErrCodeInvalidParam, Message: fmt.Sprintf("item %d (id=%d) param %s: %v", i, it.ID, p.Name, err)}
			}
			params = append(params, bind.P(p.Name, p.Value, typ))
		}

		items = append(items, store.BatchItem{
			ID:     it.ID,
			Query:  it.Query,
			Params: params,
			Kind:   kind,
		})
	}
	return items, nil
}
