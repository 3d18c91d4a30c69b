package cfamily

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

// unquote decodes a C string or character literal, encoding prefix
// included.
func unquote(lit string) (string, error) {
	lit = strings.TrimLeft(lit, "LuU8")
	if len(lit) < 2 || (lit[0] != '"' && lit[0] != '\'') || lit[len(lit)-1] != lit[0] {
		return "", errors.New("malformed literal")
	}
	body := lit[1 : len(lit)-1]
	if strings.IndexByte(body, '\\') < 0 {
		return body, nil
	}
	var sb strings.Builder
	for len(body) > 0 {
		if body[0] != '\\' || len(body) == 1 {
			r, size := utf8.DecodeRuneInString(body)
			sb.WriteRune(r)
			body = body[size:]
			continue
		}
		esc := body[1]
		body = body[2:]
		switch esc {
		case '\\', '\'', '"', '?':
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
		case 'x':
			end := 0
			for end < len(body) && isHex(body[end]) {
				end++
			}
			if end == 0 {
				return "", errors.New("empty \\x escape")
			}
			v, err := strconv.ParseUint(body[:end], 16, 32)
			if err != nil || !utf8.ValidRune(rune(v)) {
				return "", errors.New("invalid \\x escape")
			}
			sb.WriteRune(rune(v))
			body = body[end:]
		case 'u', 'U':
			width := 4
			if esc == 'U' {
				width = 8
			}
			if len(body) < width {
				return "", errors.New("truncated \\" + string(esc) + " escape")
			}
			v, err := strconv.ParseUint(body[:width], 16, 32)
			if err != nil || !utf8.ValidRune(rune(v)) {
				return "", errors.New("invalid \\" + string(esc) + " escape")
			}
			sb.WriteRune(rune(v))
			body = body[width:]
		default:
			return "", errors.New("unknown escape \\" + string(esc))
		}
	}
	return sb.String(), nil
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// quote renders s as a C++ string literal.
func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if r < 0x20 || r == 0x7f {
				oct := strconv.FormatInt(int64(r), 8)
				sb.WriteString(`\` + strings.Repeat("0", 3-len(oct)) + oct)
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
