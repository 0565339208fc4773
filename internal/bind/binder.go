package bind

import (
	"regexp"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/cespare/xxhash"
)

// Binder matches declared parameters against the placeholders of a query.
//
// Compiled match patterns are cached per parameter-name set, so repeated
// statements with the same parameters skip regexp compilation. The cache
// holds at most maxCachedPatterns entries; name sets beyond that are
// compiled on every call.
//
// Thread-safety: Binder is safe for concurrent use.
type Binder struct {
	patterns sync.Map // uint64 -> *pattern
	cached   atomic.Int64
}

const maxCachedPatterns = 256

type pattern struct {
	key   string
	names []string // longest first
	re    *regexp.Regexp
}

// NewBinder creates a binder with an empty pattern cache.
func NewBinder() *Binder {
	return &Binder{}
}

// Bind rewrites every whole-token occurrence of a declared parameter name in
// query to a positional "?" and returns the rewritten query together with
// the native values in occurrence order. A name occurring twice is bound
// twice. Declared names that never occur are ignored.
//
// Returns a *ConversionError when a matched parameter's value does not fit
// its declared type.
func (b *Binder) Bind(query string, params []Parameter) (string, []any, error) {
	byName := make(map[string]Parameter, len(params))
	names := make([]string, 0, len(params))
	for _, p := range params {
		if p.IsZero() || p.name == "" {
			continue
		}
		// First declaration wins for repeated names.
		if _, dup := byName[p.name]; dup {
			continue
		}
		byName[p.name] = p
		names = append(names, p.name)
	}
	if len(names) == 0 {
		return query, nil, nil
	}

	matches := b.compile(names).find(query)
	if len(matches) == 0 {
		return query, nil, nil
	}

	natives := make(map[string]any, len(matches))
	args := make([]any, 0, len(matches))
	var sb strings.Builder
	sb.Grow(len(query))
	last := 0
	for _, m := range matches {
		name := query[m[0]:m[1]]
		v, seen := natives[name]
		if !seen {
			var err error
			v, err = byName[name].Native()
			if err != nil {
				return "", nil, err
			}
			natives[name] = v
		}
		args = append(args, v)
		sb.WriteString(query[last:m[0]])
		sb.WriteByte('?')
		last = m[1]
	}
	sb.WriteString(query[last:])

	return sb.String(), args, nil
}

// Occurrences returns the declared names found in query, in text order.
func (b *Binder) Occurrences(query string, params []Parameter) []string {
	names := make([]string, 0, len(params))
	for _, p := range params {
		if p.name != "" && !slices.Contains(names, p.name) {
			names = append(names, p.name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	matches := b.compile(names).find(query)
	found := make([]string, len(matches))
	for i, m := range matches {
		found[i] = query[m[0]:m[1]]
	}
	return found
}

// compile returns the pattern for names. Candidates at a position are tried
// longest name first, so the longer token wins at a shared position.
func (b *Binder) compile(names []string) *pattern {
	sorted := slices.Clone(names)
	slices.SortFunc(sorted, func(x, y string) int {
		if len(x) != len(y) {
			return len(y) - len(x)
		}
		return strings.Compare(x, y)
	})
	key := strings.Join(sorted, "\x00")
	sum := xxhash.Sum64([]byte(key))

	if cached, ok := b.patterns.Load(sum); ok {
		if p := cached.(*pattern); p.key == key {
			return p
		}
	}

	alts := make([]string, len(sorted))
	for i, name := range sorted {
		alts[i] = regexp.QuoteMeta(name)
	}
	p := &pattern{key: key, names: sorted, re: regexp.MustCompile(strings.Join(alts, "|"))}
	if b.cached.Load() < maxCachedPatterns {
		if _, loaded := b.patterns.LoadOrStore(sum, p); !loaded {
			b.cached.Add(1)
		}
	}
	return p
}

// find returns the [start, end) offsets of every whole-token occurrence in
// query. RE2's \b only knows ASCII word characters, so the boundary after a
// name is checked here against Unicode letters and digits.
func (p *pattern) find(query string) [][2]int {
	var out [][2]int
	pos := 0
	for pos < len(query) {
		loc := p.re.FindStringIndex(query[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[0]
		if end, ok := p.tokenAt(query, start); ok {
			out = append(out, [2]int{start, end})
			pos = end
			continue
		}
		_, size := utf8.DecodeRuneInString(query[start:])
		pos = start + size
	}
	return out
}

// tokenAt returns the end of the longest declared name that occurs as a
// whole token at start.
func (p *pattern) tokenAt(query string, start int) (int, bool) {
	for _, name := range p.names {
		if !strings.HasPrefix(query[start:], name) {
			continue
		}
		end := start + len(name)
		if endsInWordChar(name) && end < len(query) {
			if r, _ := utf8.DecodeRuneInString(query[end:]); isWordRune(r) {
				continue
			}
		}
		return end, true
	}
	return 0, false
}

// endsInWordChar reports whether a boundary is needed after name for it to
// match only as a whole token.
func endsInWordChar(name string) bool {
	r, _ := utf8.DecodeLastRuneInString(name)
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
