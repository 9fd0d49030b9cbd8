// Package filtergraph is a typed representation of an ffmpeg -filter_complex
// program: filters grouped into labelled chains, checked for consistent
// wiring before being serialized to text.
package filtergraph

import (
	"math"
	"strconv"
	"strings"
)

// Option is a single filter argument. An empty Key makes it positional.
type Option struct {
	Key   string
	Value string
}

// Filter is one ffmpeg filter with its arguments
type Filter struct {
	Name    string
	Options []Option
}

// NewFilter creates a filter with no arguments
func NewFilter(name string) *Filter {
	return &Filter{
		Name:    name,
		Options: make([]Option, 0),
	}
}

// Arg adds a positional argument
func (f *Filter) Arg(value string) *Filter {
	f.Options = append(f.Options, Option{Value: value})
	return f
}

// Set adds a named argument
func (f *Filter) Set(key, value string) *Filter {
	f.Options = append(f.Options, Option{Key: key, Value: value})
	return f
}

// SetNum adds a named numeric argument
func (f *Filter) SetNum(key string, value float64) *Filter {
	return f.Set(key, Num(value))
}

// Get returns the value of a named argument
func (f *Filter) Get(key string) (string, bool) {
	for _, o := range f.Options {
		if o.Key == key {
			return o.Value, true
		}
	}
	return "", false
}

// String renders the filter as name=arg:key=value
func (f *Filter) String() string {
	if len(f.Options) == 0 {
		return f.Name
	}
	parts := make([]string, len(f.Options))
	for i, o := range f.Options {
		v := quote(o.Value)
		if o.Key == "" {
			parts[i] = v
		} else {
			parts[i] = o.Key + "=" + v
		}
	}
	return f.Name + "=" + strings.Join(parts, ":")
}

// quote protects values containing graph-level separators
func quote(v string) string {
	if strings.ContainsAny(v, ",;[]") {
		return "'" + v + "'"
	}
	return v
}

// Num formats a float in its shortest round-tripping form, so identical
// inputs always render identically
func Num(v float64) string {
	if v == 0 || math.IsNaN(v) {
		// also folds -0
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Int formats an integer argument
func Int(v int) string {
	return strconv.Itoa(v)
}
