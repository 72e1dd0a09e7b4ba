package metrics_test

import (
	"testing"

	"github.com/metricspider/metricspider/internal/metrics"
)

func TestTarget_Identity(t *testing.T) {
	target := metrics.NewTarget("twitter", "nasa", true)

	if target.Key() != "twitter/nasa" {
		t.Errorf("Key() = %q, want %q", target.Key(), "twitter/nasa")
	}
	if target.Label() != "twitter:@nasa" {
		t.Errorf("Label() = %q, want %q", target.Label(), "twitter:@nasa")
	}
	if !target.IsCore() {
		t.Error("IsCore() = false, want true")
	}
}

func TestRawFields_Canonical_RoundTrip(t *testing.T) {
	fields := metrics.NewRawFields()
	fields.SetNumber(metrics.FieldFollowers, 1234)
	fields.SetNumber(metrics.FieldPosts, 56)
	fields.SetText("source_url", "https://example.com/nasa")
	fields.MarkFallback()

	rebuilt := metrics.FromCanonical(fields.Canonical())

	if v, ok := rebuilt.Number(metrics.FieldFollowers); !ok || v != 1234 {
		t.Errorf("followers = (%v, %v), want (1234, true)", v, ok)
	}
	if v, ok := rebuilt.Number(metrics.FieldPosts); !ok || v != 56 {
		t.Errorf("posts = (%v, %v), want (56, true)", v, ok)
	}
	if v, ok := rebuilt.Text("source_url"); !ok || v != "https://example.com/nasa" {
		t.Errorf("source_url = (%q, %v)", v, ok)
	}
	if !rebuilt.IsFallback() {
		t.Error("fallback marker lost in canonical round trip")
	}
}

func TestFromCanonical_DropsUnparseableNumbers(t *testing.T) {
	// One bad cell must not poison the rest of the snapshot.
	fields := metrics.FromCanonical(map[string]string{
		"n:followers": "not-a-number",
		"n:posts":     "10",
	})

	if _, ok := fields.Number("followers"); ok {
		t.Error("unparseable numeric entry should be dropped")
	}
	if v, ok := fields.Number("posts"); !ok || v != 10 {
		t.Errorf("posts = (%v, %v), want (10, true)", v, ok)
	}
}

func TestRawFields_CloneIsIndependent(t *testing.T) {
	original := metrics.NewRawFields()
	original.SetNumber(metrics.FieldFollowers, 100)

	clone := original.Clone()
	clone.SetNumber(metrics.FieldFollowers, 999)
	clone.MarkFallback()

	if v, _ := original.Number(metrics.FieldFollowers); v != 100 {
		t.Errorf("mutating the clone changed the original: %v", v)
	}
	if original.IsFallback() {
		t.Error("marking the clone as fallback changed the original")
	}
}

func TestRawFields_NumberNamesSorted(t *testing.T) {
	fields := metrics.NewRawFields()
	fields.SetNumber("posts", 1)
	fields.SetNumber("followers", 2)
	fields.SetNumber("likes", 3)

	names := fields.NumberNames()
	want := []string{"followers", "likes", "posts"}
	if len(names) != len(want) {
		t.Fatalf("got %d names, want %d", len(names), len(want))
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("names[%d] = %q, want %q", i, names[i], name)
		}
	}
}
