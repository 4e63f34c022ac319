// source.go provides the raw byte sources that importers read from.
//
// A Source can be opened any number of times; every Open returns a fresh
// reader positioned at the first byte. Preview and upload both make at
// least one full pass over the input (schema inference, then row
// streaming), so re-reading is part of the contract rather than an
// accident of implementation.
//
// Readers returned by Open are wrapped with NewSanitizingReader before any
// parsing happens, which strips a UTF-8 BOM and replaces invalid UTF-8
// sequences so downstream parsers never see malformed text.
package core

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"unicode/utf8"
)

// Source is a re-openable byte stream. Implementations must return an
// independent reader for every call so that callers can make multiple
// passes over the same input.
type Source interface {
	// Open returns a reader positioned at the start of the data.
	// The caller owns the returned reader and must close it.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// ----------------------------------------------------------------------------
// Source implementations
// ----------------------------------------------------------------------------

type bytesSource struct {
	data []byte
}

// NewBytesSource returns a Source backed by an in-memory payload.
func NewBytesSource(data []byte) Source {
	return &bytesSource{data: data}
}

func (s *bytesSource) Open(_ context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

type fileSource struct {
	path string
}

// NewFileSource returns a Source that opens the file at path on every pass.
func NewFileSource(path string) Source {
	return &fileSource{path: path}
}

func (s *fileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, sourceReadError(err)
	}
	return f, nil
}

type seekerSource struct {
	mu sync.Mutex
	r  io.ReadSeeker
}

// NewSeekerSource returns a Source over a seekable reader, rewinding to the
// start on every Open. Multipart upload files satisfy io.ReadSeeker, so a
// single request body can be read once for inference and again for loading.
// Opens are serialized; the underlying reader is never read concurrently.
func NewSeekerSource(r io.ReadSeeker) Source {
	return &seekerSource{r: r}
}

func (s *seekerSource) Open(_ context.Context) (io.ReadCloser, error) {
	s.mu.Lock()
	if _, err := s.r.Seek(0, io.SeekStart); err != nil {
		s.mu.Unlock()
		return nil, sourceReadError(fmt.Errorf("rewind upload: %w", err))
	}
	return &lockedReader{r: s.r, unlock: s.mu.Unlock}, nil
}

// lockedReader holds the source lock until closed.
type lockedReader struct {
	r      io.Reader
	unlock func()
	closed bool
}

func (l *lockedReader) Read(p []byte) (int, error) {
	return l.r.Read(p)
}

func (l *lockedReader) Close() error {
	if !l.closed {
		l.closed = true
		l.unlock()
	}
	return nil
}

// ----------------------------------------------------------------------------
// Input sanitization
// ----------------------------------------------------------------------------

// NewSanitizingReader wraps r so that a leading UTF-8 BOM is dropped and any
// invalid UTF-8 byte is replaced with '?'. Spreadsheet exports from Windows
// tools routinely carry a BOM, and mixed-encoding CSVs are common enough
// that parsers cannot assume clean input. The replacement byte keeps output
// length equal to input length, so the wrapper never grows the stream.
func NewSanitizingReader(r io.Reader) io.Reader {
	return &utf8Reader{br: bufio.NewReader(&bomReader{r: r})}
}

// bomReader strips the 3-byte UTF-8 BOM from the front of the stream, if
// present. Only the first read inspects the prefix.
type bomReader struct {
	r       io.Reader
	checked bool
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		prefix := make([]byte, 3)
		n, err := io.ReadFull(b.r, prefix)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, err
		}
		if !(n == 3 && bytes.Equal(prefix, utf8BOM)) {
			// Not a BOM. Hand back what was consumed before continuing
			// with the underlying reader.
			b.r = io.MultiReader(bytes.NewReader(prefix[:n]), b.r)
		}
	}
	return b.r.Read(p)
}

// utf8Reader replaces bytes that do not form valid UTF-8 with '?'. It reads
// through a bufio.Reader so multi-byte sequences split across Read calls are
// validated as a whole.
type utf8Reader struct {
	br      *bufio.Reader
	pending []byte
}

func (u *utf8Reader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(u.pending) > 0 {
			c := copy(p[n:], u.pending)
			u.pending = u.pending[c:]
			n += c
			continue
		}

		r, size, err := u.br.ReadRune()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}

		if r == utf8.RuneError && size == 1 {
			p[n] = '?'
			n++
			continue
		}

		if size <= len(p)-n {
			n += utf8.EncodeRune(p[n:], r)
			continue
		}

		// Rune does not fit in the remaining space. Stash its encoding
		// and serve it on the next call.
		buf := make([]byte, size)
		utf8.EncodeRune(buf, r)
		u.pending = buf
		if n > 0 {
			return n, nil
		}
		c := copy(p, u.pending)
		u.pending = u.pending[c:]
		n += c
	}
	return n, nil
}
