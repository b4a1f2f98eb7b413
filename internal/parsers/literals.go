package parsers

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// constant is a literal value as Python would evaluate it.
type constant struct {
	value    string // str(value)
	typeName string // type(value).__name__
	repr     string // repr(value), used when rendering annotations
}

// evalConstant evaluates literal nodes. f-strings and anything non-literal report false.
func evalConstant(node *sitter.Node, source []byte) (constant, bool) {
	if node == nil {
		return constant{}, false
	}
	text := extractNodeText(node, source)
	switch node.Kind() {
	case "integer":
		return evalInteger(text)
	case "float":
		return evalFloat(text)
	case "true":
		return constant{value: "True", typeName: "bool", repr: "True"}, true
	case "false":
		return constant{value: "False", typeName: "bool", repr: "False"}, true
	case "none":
		return constant{value: "None", typeName: "NoneType", repr: "None"}, true
	case "ellipsis":
		return constant{value: "Ellipsis", typeName: "ellipsis", repr: "..."}, true
	case "string":
		return evalString(text)
	case "concatenated_string":
		return evalConcatenated(node, source)
	}
	return constant{}, false
}

func evalInteger(text string) (constant, bool) {
	s := strings.ToLower(strings.ReplaceAll(text, "_", ""))
	if strings.HasSuffix(s, "j") {
		imag, ok := parsePyFloat(strings.TrimSuffix(s, "j"))
		if !ok {
			return constant{}, false
		}
		v := formatPyComplex(imag)
		return constant{value: v, typeName: "complex", repr: v}, true
	}
	s = strings.TrimSuffix(s, "l")

	base := 10
	switch {
	case strings.HasPrefix(s, "0x"):
		base, s = 16, s[2:]
	case strings.HasPrefix(s, "0o"):
		base, s = 8, s[2:]
	case strings.HasPrefix(s, "0b"):
		base, s = 2, s[2:]
	}
	n, ok := new(big.Int).SetString(s, base)
	if !ok {
		return constant{}, false
	}
	v := n.String()
	return constant{value: v, typeName: "int", repr: v}, true
}

func evalFloat(text string) (constant, bool) {
	s := strings.ToLower(strings.ReplaceAll(text, "_", ""))
	if strings.HasSuffix(s, "j") {
		imag, ok := parsePyFloat(strings.TrimSuffix(s, "j"))
		if !ok {
			return constant{}, false
		}
		v := formatPyComplex(imag)
		return constant{value: v, typeName: "complex", repr: v}, true
	}
	f, ok := parsePyFloat(s)
	if !ok {
		return constant{}, false
	}
	v := formatPyFloat(f)
	return constant{value: v, typeName: "float", repr: v}, true
}

func parsePyFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return f, true
		}
		return 0, false
	}
	return f, true
}

// formatPyFloat renders f the way Python's repr does: shortest round-trip digits,
// fixed notation for exponents in [-4, 16), scientific otherwise.
func formatPyFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}

	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, expText, _ := strings.Cut(s, "e")
	exp, _ := strconv.Atoi(expText)

	sign := ""
	if strings.HasPrefix(mantissa, "-") {
		sign = "-"
		mantissa = mantissa[1:]
	}
	digits := strings.Replace(mantissa, ".", "", 1)

	if exp < -4 || exp >= 16 {
		m := digits[:1]
		if len(digits) > 1 {
			m += "." + digits[1:]
		}
		expSign := "+"
		if exp < 0 {
			expSign = "-"
			exp = -exp
		}
		return fmt.Sprintf("%s%se%s%02d", sign, m, expSign, exp)
	}

	if exp < 0 {
		return sign + "0." + strings.Repeat("0", -exp-1) + digits
	}
	if len(digits) <= exp+1 {
		return sign + digits + strings.Repeat("0", exp+1-len(digits)) + ".0"
	}
	return sign + digits[:exp+1] + "." + digits[exp+1:]
}

// formatPyComplex renders a pure imaginary literal, e.g. 1j or 1.5j.
func formatPyComplex(imag float64) string {
	return strings.TrimSuffix(formatPyFloat(imag), ".0") + "j"
}

func evalString(text string) (constant, bool) {
	body, isBytes, ok := decodeStringLiteral(text)
	if !ok {
		return constant{}, false
	}
	return evalDecoded(body, isBytes), true
}

func evalConcatenated(node *sitter.Node, source []byte) (constant, bool) {
	var b strings.Builder
	parts := findChildrenByType(node, "string")
	if len(parts) == 0 {
		return constant{}, false
	}
	var isBytes bool
	for i, part := range parts {
		body, partBytes, ok := decodeStringLiteral(extractNodeText(part, source))
		if !ok || (i > 0 && partBytes != isBytes) {
			return constant{}, false
		}
		isBytes = partBytes
		b.WriteString(body)
	}
	return evalDecoded(b.String(), isBytes), true
}

func evalDecoded(body string, isBytes bool) constant {
	if isBytes {
		v := pyBytesRepr(body)
		return constant{value: v, typeName: "bytes", repr: v}
	}
	return constant{value: body, typeName: "str", repr: pyStrRepr(body)}
}

// decodeStringLiteral splits a string literal into prefix, quotes and body and
// applies escapes. Formatted strings are not constants and report false.
func decodeStringLiteral(text string) (body string, isBytes bool, ok bool) {
	start := strings.IndexAny(text, `'"`)
	if start < 0 {
		return "", false, false
	}
	prefix := strings.ToLower(text[:start])
	if strings.ContainsAny(prefix, "ft") {
		return "", false, false
	}

	rest := text[start:]
	quote := rest[:1]
	if strings.HasPrefix(rest, `"""`) || strings.HasPrefix(rest, `'''`) {
		quote = rest[:3]
	}
	if len(rest) < 2*len(quote) || !strings.HasSuffix(rest, quote) {
		return "", false, false
	}
	body = rest[len(quote) : len(rest)-len(quote)]

	isBytes = strings.Contains(prefix, "b")
	if !strings.Contains(prefix, "r") {
		body = unescapePy(body, isBytes)
	}
	return body, isBytes, true
}

// unescapePy applies Python escape sequences. For bytes literals the result is a
// byte string; otherwise it is UTF-8 text.
func unescapePy(s string, isBytes bool) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	writeCode := func(v int) {
		if isBytes {
			b.WriteByte(byte(v))
		} else {
			b.WriteRune(rune(v))
		}
	}

	for i := 0; i < len(s); {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			i++
			continue
		}
		next := s[i+1]
		switch next {
		case '\n':
			i += 2
		case '\r':
			i += 2
			if i < len(s) && s[i] == '\n' {
				i++
			}
		case '\\', '\'', '"':
			b.WriteByte(next)
			i += 2
		case 'a':
			b.WriteByte('\a')
			i += 2
		case 'b':
			b.WriteByte('\b')
			i += 2
		case 'f':
			b.WriteByte('\f')
			i += 2
		case 'n':
			b.WriteByte('\n')
			i += 2
		case 'r':
			b.WriteByte('\r')
			i += 2
		case 't':
			b.WriteByte('\t')
			i += 2
		case 'v':
			b.WriteByte('\v')
			i += 2
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i + 1
			v := 0
			for j < len(s) && j < i+4 && s[j] >= '0' && s[j] <= '7' {
				v = v*8 + int(s[j]-'0')
				j++
			}
			writeCode(v)
			i = j
		case 'x':
			if v, ok := parseHex(s, i+2, 2); ok {
				writeCode(v)
				i += 4
				continue
			}
			b.WriteString(s[i : i+2])
			i += 2
		case 'u', 'U':
			width := 4
			if next == 'U' {
				width = 8
			}
			if v, ok := parseHex(s, i+2, width); ok && !isBytes && utf8.ValidRune(rune(v)) {
				b.WriteRune(rune(v))
				i += 2 + width
				continue
			}
			b.WriteString(s[i : i+2])
			i += 2
		default:
			b.WriteString(s[i : i+2])
			i += 2
		}
	}
	return b.String()
}

func parseHex(s string, start, width int) (int, bool) {
	if start+width > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[start:start+width], 16, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

func pickQuote(s string) byte {
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		return '"'
	}
	return '\''
}

// pyBytesRepr renders raw bytes as Python's repr does, e.g. b'ab\x00'.
func pyBytesRepr(s string) string {
	quote := pickQuote(s)
	var b strings.Builder
	b.WriteByte('b')
	b.WriteByte(quote)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == quote || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\t':
			b.WriteString(`\t`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&b, `\x%02x`, c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(quote)
	return b.String()
}

// pyStrRepr renders text as Python's repr does, e.g. 'it\'s' becomes "it's".
func pyStrRepr(s string) string {
	quote := pickQuote(s)
	var b strings.Builder
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == rune(quote) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == ' ' || unicode.IsPrint(r):
			b.WriteRune(r)
		case r < 0x100:
			fmt.Fprintf(&b, `\x%02x`, r)
		case r < 0x10000:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			fmt.Fprintf(&b, `\U%08x`, r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}
