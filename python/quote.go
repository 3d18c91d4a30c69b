package python

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

// unquote decodes the text of a Python string literal, prefix and quotes
// included.
func unquote(lit string) (string, error) {
	i := 0
	raw := false
	for i < len(lit) && strings.IndexByte("rRuUbBfF", lit[i]) >= 0 {
		switch lit[i] {
		case 'r', 'R':
			raw = true
		case 'b', 'B':
			return "", errors.New("bytes literal")
		case 'f', 'F':
			return "", errors.New("formatted string literal")
		}
		i++
	}
	body := lit[i:]
	var quote string
	switch {
	case strings.HasPrefix(body, `"""`), strings.HasPrefix(body, `'''`):
		quote = body[:3]
	case strings.HasPrefix(body, `"`), strings.HasPrefix(body, `'`):
		quote = body[:1]
	default:
		return "", errors.New("malformed string literal")
	}
	if len(body) < 2*len(quote) || !strings.HasSuffix(body, quote) {
		return "", errors.New("unterminated string literal")
	}
	body = body[len(quote) : len(body)-len(quote)]
	if raw || strings.IndexByte(body, '\\') < 0 {
		return body, nil
	}
	var sb strings.Builder
	for len(body) > 0 {
		c := body[0]
		if c != '\\' || len(body) == 1 {
			r, size := utf8.DecodeRuneInString(body)
			sb.WriteRune(r)
			body = body[size:]
			continue
		}
		esc := body[1]
		body = body[2:]
		switch esc {
		case '\n':
			// Line continuation.
		case '\\', '\'', '"':
			sb.WriteByte(esc)
		case 'a':
			sb.WriteByte('\a')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'v':
			sb.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			digits := string(esc)
			for len(digits) < 3 && len(body) > 0 && body[0] >= '0' && body[0] <= '7' {
				digits += body[:1]
				body = body[1:]
			}
			v, _ := strconv.ParseUint(digits, 8, 32)
			sb.WriteRune(rune(v))
		case 'x', 'u', 'U':
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[esc]
			if len(body) < width {
				return "", errors.New("truncated \\" + string(esc) + " escape")
			}
			v, err := strconv.ParseUint(body[:width], 16, 32)
			if err != nil || !utf8.ValidRune(rune(v)) {
				return "", errors.New("invalid \\" + string(esc) + " escape")
			}
			sb.WriteRune(rune(v))
			body = body[width:]
		case 'N':
			return "", errors.New("named unicode escape")
		default:
			// Unknown escapes are kept verbatim.
			sb.WriteByte('\\')
			sb.WriteByte(esc)
		}
	}
	return sb.String(), nil
}
