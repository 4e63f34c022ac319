package core

import (
	"fmt"
	"strings"
	"testing"
)

// gappyRenderer reuses the stub renderer but loses the DATETIME mapping.
type gappyRenderer struct{ stubRenderer }

func (r gappyRenderer) TypeFor(t ColumnType) string {
	if t == TypeDatetime {
		return ""
	}
	return r.stubRenderer.TypeFor(t)
}

// ============================================================================
// Renderer Registration Tests
// ============================================================================

func TestRegisterRendererDuplicatePanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("duplicate registration did not panic")
		}
		if msg := fmt.Sprint(r); !strings.Contains(msg, testDialect) {
			t.Errorf("panic = %q, want it to name tag %q", msg, testDialect)
		}
	}()
	RegisterRenderer(stubRenderer{tag: testDialect})
}

func TestRegisterRendererIncompleteTypeMapPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("incomplete type map did not panic")
		}
		if msg := fmt.Sprint(r); !strings.Contains(msg, string(TypeDatetime)) {
			t.Errorf("panic = %q, want it to name the missing type", msg)
		}
	}()
	RegisterRenderer(gappyRenderer{stubRenderer{tag: "gappysql"}})
}

func TestLookupRendererUnknownTag(t *testing.T) {
	if _, ok := LookupRenderer("nonesuch"); ok {
		t.Error("LookupRenderer() resolved an unregistered tag")
	}
}

func TestDialectTagsIncludeRegistered(t *testing.T) {
	tags := DialectTags()
	for _, tag := range tags {
		if tag == testDialect {
			return
		}
	}
	t.Errorf("DialectTags() = %v, missing %q", tags, testDialect)
}
