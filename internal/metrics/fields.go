package metrics

import (
	"sort"
	"strconv"
	"time"
)

// Canonical metric field names shared by adapters, validation, and history.
const (
	FieldFollowers       = "followers"
	FieldFollowing       = "following"
	FieldPosts           = "posts"
	FieldLikes           = "likes"
	FieldComments        = "comments"
	FieldShares          = "shares"
	FieldEngagementTotal = "engagement_total"
)

// RawFields is the flat result of one adapter call: numeric counters plus
// optional text metadata. No invariants are enforced at this layer;
// validation happens downstream in the quality package.
type RawFields struct {
	numbers    map[string]float64
	text       map[string]string
	observedAt time.Time
	fallback   bool
}

func NewRawFields() *RawFields {
	return &RawFields{
		numbers:    make(map[string]float64),
		text:       make(map[string]string),
		observedAt: time.Now(),
	}
}

func (f *RawFields) SetNumber(name string, value float64) *RawFields {
	f.numbers[name] = value
	return f
}

func (f *RawFields) SetText(name string, value string) *RawFields {
	f.text[name] = value
	return f
}

func (f *RawFields) Number(name string) (float64, bool) {
	v, ok := f.numbers[name]
	return v, ok
}

func (f *RawFields) Text(name string) (string, bool) {
	v, ok := f.text[name]
	return v, ok
}

// NumberNames returns the numeric field names in sorted order.
func (f *RawFields) NumberNames() []string {
	names := make([]string, 0, len(f.numbers))
	for name := range f.numbers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *RawFields) ObservedAt() time.Time {
	return f.observedAt
}

func (f *RawFields) SetObservedAt(t time.Time) *RawFields {
	f.observedAt = t
	return f
}

// MarkFallback tags the fields as substituted (non-live) data so
// downstream consumers can distinguish real from synthesized results.
func (f *RawFields) MarkFallback() *RawFields {
	f.fallback = true
	return f
}

func (f *RawFields) IsFallback() bool {
	return f.fallback
}

// Clone returns a deep copy. Corrections always operate on a clone so the
// original stays intact for the audit trail.
func (f *RawFields) Clone() *RawFields {
	c := &RawFields{
		numbers:    make(map[string]float64, len(f.numbers)),
		text:       make(map[string]string, len(f.text)),
		observedAt: f.observedAt,
		fallback:   f.fallback,
	}
	for k, v := range f.numbers {
		c.numbers[k] = v
	}
	for k, v := range f.text {
		c.text[k] = v
	}
	return c
}

// FromCanonical rebuilds fields from their canonical flat-map form.
// Unparseable numeric entries are dropped rather than failing the load;
// a stored snapshot with one bad cell is still a usable baseline.
func FromCanonical(kv map[string]string) *RawFields {
	f := NewRawFields()
	for k, v := range kv {
		switch {
		case len(k) > 2 && k[:2] == "n:":
			if num, err := strconv.ParseFloat(v, 64); err == nil {
				f.SetNumber(k[2:], num)
			}
		case k == "t:is_fallback":
			if v == "true" {
				f.MarkFallback()
			}
		case len(k) > 2 && k[:2] == "t:":
			f.SetText(k[2:], v)
		}
	}
	return f
}

// Canonical returns the fields as a flat string map in a form suitable
// for content hashing and persistence.
func (f *RawFields) Canonical() map[string]string {
	out := make(map[string]string, len(f.numbers)+len(f.text))
	for k, v := range f.numbers {
		out["n:"+k] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	for k, v := range f.text {
		out["t:"+k] = v
	}
	if f.fallback {
		out["t:is_fallback"] = "true"
	}
	return out
}
