package dataset

// streaming.go provides the readers the Loader stacks in front of encoding/csv.
//
//   - BOMSkippingReader: drops a leading UTF-8 byte order mark
//   - UTF8Validator: fails with ErrInvalidUTF8 on the first undecodable sequence
//   - LimitedReader: fails with ErrTooLarge once more than Max bytes were read
//
// WrapForLoading applies them in the right order.

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var (
	// ErrInvalidUTF8 means the stream is not decodable as UTF-8 text.
	ErrInvalidUTF8 = errors.New("invalid UTF-8 sequence")

	// ErrTooLarge means the stream exceeded the configured byte limit.
	ErrTooLarge = errors.New("file exceeds maximum size")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader removes the UTF-8 BOM that Windows tools put in front of
// CSV exports.
type BOMSkippingReader struct {
	r       *bufio.Reader
	checked bool
}

// NewBOMSkippingReader wraps r.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{r: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (b *BOMSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, err := b.r.Peek(len(utf8BOM))
		if err != nil && err != io.EOF && len(head) == 0 {
			return 0, err
		}
		if bytes.Equal(head, utf8BOM) {
			if _, err := b.r.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return b.r.Read(p)
}

// UTF8Validator passes bytes through unchanged and fails on the first invalid
// UTF-8 sequence. Multi-byte runes split across reads are held back until the
// next read completes them.
type UTF8Validator struct {
	r       io.Reader
	offset  int64
	pending []byte
	err     error
}

// NewUTF8Validator wraps r.
func NewUTF8Validator(r io.Reader) *UTF8Validator {
	return &UTF8Validator{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

// Read implements io.Reader.
func (v *UTF8Validator) Read(p []byte) (int, error) {
	if v.err != nil {
		return 0, v.err
	}
	if len(p) < utf8.UTFMax {
		return 0, io.ErrShortBuffer
	}

	n := copy(p, v.pending)
	v.pending = v.pending[:0]

	m, err := v.r.Read(p[n:])
	n += m
	if n == 0 {
		return 0, err
	}

	data := p[:n]
	atEOF := err == io.EOF
	if !atEOF {
		if tail := incompleteTrailingBytes(data); tail > 0 {
			v.pending = append(v.pending, data[len(data)-tail:]...)
			data = data[:len(data)-tail]
		}
	}

	if !isAllASCII(data) && !utf8.Valid(data) {
		at := firstInvalid(data)
		v.err = fmt.Errorf("%w at byte %d", ErrInvalidUTF8, v.offset+int64(at))
		return at, v.err
	}
	v.offset += int64(len(data))
	return len(data), err
}

func isAllASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func firstInvalid(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(data)
}

// incompleteTrailingBytes returns how many bytes at the end of data start a
// multi-byte sequence that has not been completed yet.
func incompleteTrailingBytes(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b >= 0xC0 {
			if i < runeLen(b) {
				return i
			}
			return 0
		}
		if b&0xC0 != 0x80 {
			return 0
		}
	}
	return 0
}

func runeLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}

// LimitedReader counts bytes and fails once the count passes Max.
// A Max of zero disables the check.
type LimitedReader struct {
	r         io.Reader
	Max       int64
	BytesRead int64
}

// NewLimitedReader wraps r.
func NewLimitedReader(r io.Reader, max int64) *LimitedReader {
	return &LimitedReader{r: r, Max: max}
}

// Read implements io.Reader.
func (l *LimitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.BytesRead += int64(n)
	if l.Max > 0 && l.BytesRead > l.Max {
		return n, fmt.Errorf("%w (%d bytes)", ErrTooLarge, l.Max)
	}
	return n, err
}

// WrapForLoading strips the BOM, enforces the size limit and validates UTF-8,
// in that order.
func WrapForLoading(r io.Reader, maxBytes int64) io.Reader {
	return NewUTF8Validator(NewLimitedReader(NewBOMSkippingReader(r), maxBytes))
}
