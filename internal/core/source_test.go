package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readSource(t *testing.T, src Source) string {
	t.Helper()
	rc, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return string(data)
}

// ============================================================================
// Sources
// ============================================================================

func TestBytesSource_Reopenable(t *testing.T) {
	src := NewBytesSource([]byte("alpha"))
	for pass := 1; pass <= 3; pass++ {
		if got := readSource(t, src); got != "alpha" {
			t.Fatalf("pass %d read %q, want %q", pass, got, "alpha")
		}
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte("id\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewFileSource(path)
	if got := readSource(t, src); got != "id\n1\n" {
		t.Errorf("read %q", got)
	}
	// A second pass opens the file again.
	if got := readSource(t, src); got != "id\n1\n" {
		t.Errorf("second read %q", got)
	}
}

func TestFileSource_Missing(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "nope.csv"))
	_, err := src.Open(context.Background())
	if !errors.Is(err, ErrSourceRead) {
		t.Errorf("error = %v, want ErrSourceRead", err)
	}
}

func TestSeekerSource_RewindsOnOpen(t *testing.T) {
	src := NewSeekerSource(bytes.NewReader([]byte("abcdef")))

	rc, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	half := make([]byte, 3)
	if _, err := io.ReadFull(rc, half); err != nil {
		t.Fatalf("ReadFull() error = %v", err)
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Closing twice must not double-unlock.
	if err := rc.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	// The next pass starts at the first byte again.
	if got := readSource(t, src); got != "abcdef" {
		t.Errorf("second pass read %q, want full data", got)
	}
}

func TestSeekerSource_SerializesOpens(t *testing.T) {
	src := NewSeekerSource(bytes.NewReader([]byte("xy")))

	first, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	opened := make(chan string, 1)
	go func() {
		rc, err := src.Open(context.Background())
		if err != nil {
			opened <- err.Error()
			return
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		opened <- string(data)
	}()

	// The second open waits for the first reader to close.
	select {
	case got := <-opened:
		t.Fatalf("second open completed while the first was held: %q", got)
	default:
	}

	first.Close()
	if got := <-opened; got != "xy" {
		t.Errorf("second pass read %q, want %q", got, "xy")
	}
}

// ============================================================================
// Input sanitization
// ============================================================================

// readByByte drains r one byte per Read call, exercising partial-buffer
// handling in the sanitizer.
func readByByte(t *testing.T, r io.Reader) string {
	t.Helper()
	var out []byte
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return string(out)
		}
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
	}
}

func TestSanitizingReader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain ascii", "hello", "hello"},
		{"leading bom stripped", "\xEF\xBB\xBFhello", "hello"},
		{"bom alone", "\xEF\xBB\xBF", ""},
		{"short input survives bom probe", "ab", "ab"},
		{"empty", "", ""},
		{"multibyte preserved", "日本語", "日本語"},
		{"invalid byte replaced", "caf\xE9!", "caf?!"},
		{"lone continuation bytes", "a\x80\x80b", "a??b"},
		{"truncated sequence at eof", "ok\xE6", "ok?"},
		{"interior bom kept", "a\xEF\xBB\xBFb", "a\xEF\xBB\xBFb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewSanitizingReader(strings.NewReader(tt.input))
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("sanitized = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizingReader_SmallDestination(t *testing.T) {
	r := NewSanitizingReader(strings.NewReader("\xEF\xBB\xBF日本\xFFz"))
	if got := readByByte(t, r); got != "日本?z" {
		t.Errorf("sanitized = %q, want %q", got, "日本?z")
	}
}
