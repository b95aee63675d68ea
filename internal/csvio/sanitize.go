package csvio

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

// Sanitize wraps r so that a leading UTF-8 BOM is skipped and invalid UTF-8
// byte sequences are replaced with U+FFFD. Windows exports routinely carry
// both problems.
func Sanitize(r io.Reader) io.Reader {
	return &utf8Reader{br: bufio.NewReader(&bomReader{br: bufio.NewReader(r)})}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type bomReader struct {
	br      *bufio.Reader
	checked bool
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		if lead, err := b.br.Peek(3); err == nil && bytes.Equal(lead, utf8BOM) {
			_, _ = b.br.Discard(3)
		}
	}
	return b.br.Read(p)
}

// utf8Reader decodes rune by rune, substituting the replacement character
// for invalid sequences. rest carries encoded bytes that did not fit the
// caller's buffer on the previous call.
type utf8Reader struct {
	br   *bufio.Reader
	rest []byte
}

func (u *utf8Reader) Read(p []byte) (int, error) {
	n := 0

	if len(u.rest) > 0 {
		n = copy(p, u.rest)
		u.rest = u.rest[n:]
		if n == len(p) {
			return n, nil
		}
	}

	for n < len(p) {
		r, size, err := u.br.ReadRune()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		if r == utf8.RuneError && size == 1 {
			r = '�'
		}

		var buf [utf8.UTFMax]byte
		m := utf8.EncodeRune(buf[:], r)
		w := copy(p[n:], buf[:m])
		n += w
		if w < m {
			u.rest = append(u.rest, buf[w:m]...)
			break
		}
	}

	return n, nil
}
