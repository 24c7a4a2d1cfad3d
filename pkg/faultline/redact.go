// redact.go implements recursive redaction of sensitive data in notice payloads.

package faultline

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// FilteredMarker replaces the value of every sensitive key.
	FilteredMarker = "[FILTERED]"

	// MaxDepthMarker replaces subtrees nested deeper than the max depth.
	MaxDepthMarker = "[MAX_DEPTH]"

	// CircularMarker replaces a value that refers back to one of its ancestors.
	CircularMarker = "[CIRCULAR]"

	// TruncatedSuffix is appended to strings cut at MaxStringLength.
	TruncatedSuffix = "...[TRUNCATED]"

	// MaxStringLength is the longest string, in characters, kept intact.
	MaxStringLength = 10000

	// DefaultMaxDepth bounds the traversal of Sanitize.
	DefaultMaxDepth = 10
)

var timeType = reflect.TypeOf(time.Time{})

// Redactor strips sensitive keys and oversized strings from arbitrary values.
// It is safe for concurrent use.
type Redactor struct {
	store *Store
}

// NewRedactor creates a redactor that reads filter keys from store on every call.
func NewRedactor(store *Store) *Redactor {
	return &Redactor{store: store}
}

// FilterKeys returns the effective sensitive key set of the live configuration.
func (r *Redactor) FilterKeys() ([]string, error) {
	cfg, err := r.store.Config()
	if err != nil {
		return nil, err
	}
	return filterKeys(cfg), nil
}

// Sanitize redacts v with DefaultMaxDepth.
func (r *Redactor) Sanitize(v any) (any, error) {
	return r.SanitizeDepth(v, DefaultMaxDepth)
}

// SanitizeDepth returns a redacted copy of v. Maps and structs become map[string]any,
// slices and arrays become []any, strings are truncated and other scalars pass through.
// The input is never modified.
func (r *Redactor) SanitizeDepth(v any, maxDepth int) (any, error) {
	cfg, err := r.store.Config()
	if err != nil {
		return nil, err
	}
	w := &walker{
		pattern:  compileFilterPattern(filterKeys(cfg)),
		maxDepth: maxDepth,
		visiting: make(map[uintptr]struct{}),
	}
	return w.walk(reflect.ValueOf(v), 0), nil
}

// SanitizeMap is Sanitize for the common map case.
func (r *Redactor) SanitizeMap(m map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	out, err := r.Sanitize(m)
	if err != nil {
		return nil, err
	}
	sanitized, _ := out.(map[string]any)
	return sanitized, nil
}

type walker struct {
	pattern  *regexp.Regexp
	maxDepth int

	// visiting holds the identities of maps, slices and pointers on the current path.
	visiting map[uintptr]struct{}
}

func (w *walker) walk(v reflect.Value, depth int) any {
	if !v.IsValid() {
		return nil
	}
	if depth > w.maxDepth {
		return MaxDepthMarker
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return w.walk(v.Elem(), depth)

	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		if !w.enter(v.Pointer()) {
			return CircularMarker
		}
		defer w.leave(v.Pointer())
		return w.walk(v.Elem(), depth)

	case reflect.String:
		return truncateString(v.String())

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface()
		}
		if v.Len() > 0 {
			if !w.enter(v.Pointer()) {
				return CircularMarker
			}
			defer w.leave(v.Pointer())
		}
		return w.walkSequence(v, depth)

	case reflect.Array:
		return w.walkSequence(v, depth)

	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		if !w.enter(v.Pointer()) {
			return CircularMarker
		}
		defer w.leave(v.Pointer())

		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key := mapKey(iter.Key())
			if w.sensitive(key) {
				out[key] = FilteredMarker
				continue
			}
			out[key] = w.walk(iter.Value(), depth+1)
		}
		return out

	case reflect.Struct:
		if v.Type() == timeType {
			return v.Interface()
		}
		return w.walkStruct(v, depth)

	default:
		if v.CanInterface() {
			return v.Interface()
		}
		return nil
	}
}

func (w *walker) walkSequence(v reflect.Value, depth int) []any {
	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		out[i] = w.walk(v.Index(i), depth+1)
	}
	return out
}

func (w *walker) walkStruct(v reflect.Value, depth int) map[string]any {
	t := v.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		if w.sensitive(name) {
			out[name] = FilteredMarker
			continue
		}
		out[name] = w.walk(v.Field(i), depth+1)
	}
	return out
}

func (w *walker) sensitive(key string) bool {
	return w.pattern != nil && w.pattern.MatchString(key)
}

func (w *walker) enter(ptr uintptr) bool {
	if _, ok := w.visiting[ptr]; ok {
		return false
	}
	w.visiting[ptr] = struct{}{}
	return true
}

func (w *walker) leave(ptr uintptr) {
	delete(w.visiting, ptr)
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}

// truncateString cuts s to MaxStringLength characters, never splitting a rune.
func truncateString(s string) string {
	if len(s) <= MaxStringLength || utf8.RuneCountInString(s) <= MaxStringLength {
		return s
	}
	n := 0
	for i := range s {
		if n == MaxStringLength {
			return s[:i] + TruncatedSuffix
		}
		n++
	}
	return s
}
