package core

import (
	"reflect"
	"strings"
	"testing"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry[int]("widget")
	r.Register("a", 1)
	r.Register("b", 2)

	if v, ok := r.Lookup("a"); !ok || v != 1 {
		t.Errorf("Lookup(a) = %d, %v", v, ok)
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Error("Lookup(missing) found a value")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry[string]("codec")
	r.Register("json", "x")

	defer func() {
		msg, ok := recover().(string)
		if !ok {
			t.Fatal("duplicate registration did not panic")
		}
		if !strings.Contains(msg, "codec") || !strings.Contains(msg, "json") {
			t.Errorf("panic = %q, want the registry name and tag", msg)
		}
	}()
	r.Register("json", "y")
}

func TestRegistry_TagsSorted(t *testing.T) {
	r := NewRegistry[struct{}]("thing")
	for _, tag := range []string{"zeta", "alpha", "mid"} {
		r.Register(tag, struct{}{})
	}
	want := []string{"alpha", "mid", "zeta"}
	if got := r.Tags(); !reflect.DeepEqual(got, want) {
		t.Errorf("Tags() = %v, want %v", got, want)
	}
}

func TestRegistry_Clear(t *testing.T) {
	r := NewRegistry[int]("n")
	r.Register("x", 1)
	r.Clear()

	if r.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", r.Len())
	}
	if _, ok := r.Lookup("x"); ok {
		t.Error("Lookup(x) found a value after Clear")
	}
	// The tag is free again.
	r.Register("x", 2)
	if v, _ := r.Lookup("x"); v != 2 {
		t.Errorf("Lookup(x) = %d, want 2", v)
	}
}
