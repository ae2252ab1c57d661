package csv

import (
	"io"
	"unicode/utf8"
)

// bomReader skips a leading UTF-8 byte-order mark, commonly added by
// Windows spreadsheet exports. All other bytes pass through untouched.
type bomReader struct {
	r       io.Reader
	checked bool
	held    []byte
}

// NewBOMReader wraps r so that a leading UTF-8 BOM, if present, is not
// delivered to the consumer.
func NewBOMReader(r io.Reader) io.Reader {
	return &bomReader{r: r}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		var head [3]byte
		n, err := io.ReadFull(b.r, head[:])
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if n > 0 && !(n == 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF) {
			b.held = append(b.held, head[:n]...)
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
	}

	if len(b.held) > 0 {
		n := copy(p, b.held)
		b.held = b.held[n:]
		return n, nil
	}

	return b.r.Read(p)
}

// SanitizingReader replaces invalid UTF-8 bytes with '?' as data streams
// through, so a partially corrupt file never poisons downstream parsing.
// A one-byte replacement avoids growing the buffer mid-stream.
type SanitizingReader struct {
	r       io.Reader
	pending []byte // tail bytes that may start a multi-byte rune
}

// NewSanitizingReader wraps r with on-the-fly UTF-8 sanitization.
func NewSanitizingReader(r io.Reader) *SanitizingReader {
	return &SanitizingReader{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *SanitizingReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	off := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.r.Read(p[off:])
	n += off
	if n == 0 {
		return 0, err
	}

	buf := p[:n]
	if asciiOnly(buf) {
		return n, err
	}

	atEOF := err == io.EOF
	w := 0
	for i := 0; i < len(buf); {
		r, size := utf8.DecodeRune(buf[i:])
		if r == utf8.RuneError && size == 1 {
			if !atEOF && len(buf)-i < utf8.UTFMax && utf8.RuneStart(buf[i]) {
				// Possibly the head of a rune split across reads.
				s.pending = append(s.pending, buf[i:]...)
				return w, err
			}
			buf[w] = '?'
			w++
			i++
			continue
		}
		copy(buf[w:], buf[i:i+size])
		w += size
		i += size
	}
	return w, err
}

func asciiOnly(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}

// CountingReader tracks bytes consumed for progress reporting when the
// total row count of a stream is unknown up front.
type CountingReader struct {
	r         io.Reader
	BytesRead int64
	Total     int64 // 0 when unknown
}

// NewCountingReader wraps r, recording the running byte count against an
// optional known total.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{r: r, Total: total}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.BytesRead += int64(n)
	return n, err
}

// Percent returns read progress as 0-100, or 0 when the total is unknown.
func (c *CountingReader) Percent() int {
	if c.Total <= 0 {
		return 0
	}
	return int(c.BytesRead * 100 / c.Total)
}

// WrapForStreaming stacks the input transforms in their required order:
// BOM stripping first, UTF-8 sanitization second, byte counting outermost.
func WrapForStreaming(r io.Reader, total int64) *CountingReader {
	return NewCountingReader(NewSanitizingReader(NewBOMReader(r)), total)
}
