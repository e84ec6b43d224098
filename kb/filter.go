package kb

import (
	"fmt"
	"strings"
)

// Fielder exposes named string attributes. Both model.Dataset and
// model.Exchange implement it.
type Fielder interface {
	Field(name string) string
}

// Filter is a predicate over datasets or exchanges. Filters are plain values
// so technology tables built from them stay printable and comparable.
type Filter interface {
	Match(f Fielder) bool
	String() string
}

// MatchAll reports whether f satisfies every filter.
func MatchAll(f Fielder, filters ...Filter) bool {
	for _, flt := range filters {
		if !flt.Match(f) {
			return false
		}
	}
	return true
}

type contains struct{ field, value string }

// Contains matches when the field contains value.
func Contains(field, value string) Filter { return contains{field, value} }

func (c contains) Match(f Fielder) bool { return strings.Contains(f.Field(c.field), c.value) }
func (c contains) String() string       { return fmt.Sprintf("%s contains %q", c.field, c.value) }

type equals struct{ field, value string }

// Equals matches when the field equals value.
func Equals(field, value string) Filter { return equals{field, value} }

func (e equals) Match(f Fielder) bool { return f.Field(e.field) == e.value }
func (e equals) String() string       { return fmt.Sprintf("%s == %q", e.field, e.value) }

type containsAny struct {
	field  string
	values []string
}

// DoesntContainAny matches when the field contains none of values.
func DoesntContainAny(field string, values ...string) Filter {
	return exclude{containsAny{field, values}}
}

func (c containsAny) Match(f Fielder) bool {
	v := f.Field(c.field)
	for _, s := range c.values {
		if strings.Contains(v, s) {
			return true
		}
	}
	return false
}

func (c containsAny) String() string { return fmt.Sprintf("%s contains any of %q", c.field, c.values) }

type either []Filter

// Either matches when at least one of filters matches.
func Either(filters ...Filter) Filter { return either(filters) }

func (e either) Match(f Fielder) bool {
	for _, flt := range e {
		if flt.Match(f) {
			return true
		}
	}
	return false
}

func (e either) String() string {
	parts := make([]string, len(e))
	for i, flt := range e {
		parts[i] = flt.String()
	}
	return "(" + strings.Join(parts, " or ") + ")"
}

type exclude struct{ inner Filter }

// Exclude negates a filter.
func Exclude(inner Filter) Filter { return exclude{inner} }

func (e exclude) Match(f Fielder) bool { return !e.inner.Match(f) }
func (e exclude) String() string       { return "not " + e.inner.String() }
