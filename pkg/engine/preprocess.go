package engine

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites model source before it reaches zygomys:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal), so
//     keywords never collide with user variables of the same name.
//
//  2. Kebab-case to underscore: neck-pocket -> neck_pocket. zygomys reads
//     a hyphen inside a symbol as subtraction.
//
//  3. Line comments: ; and ;; become //.
//
// String literals (double-quoted and backtick) pass through untouched, so
// feature names may freely contain hyphens.
func preprocessSource(source string) string {
	b := []byte(source)
	out := make([]byte, 0, len(b)+len(b)/4)
	i := 0
	for i < len(b) {
		c := b[i]
		switch {
		case c == '"':
			j := skipQuoted(b, i, '"', true)
			out = append(out, b[i:j]...)
			i = j

		case c == '`':
			j := skipQuoted(b, i, '`', false)
			out = append(out, b[i:j]...)
			i = j

		case c == ';':
			out = append(out, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}

		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			out = append(out, ':', '=')
			i += 2

		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j

		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++

		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

// skipQuoted returns the index just past the literal that opens at b[i].
func skipQuoted(b []byte, i int, quote byte, escapes bool) int {
	j := i + 1
	for j < len(b) && b[j] != quote {
		if escapes && b[j] == '\\' && j+1 < len(b) {
			j += 2
			continue
		}
		j++
	}
	if j < len(b) {
		j++
	}
	if j > len(b) {
		j = len(b)
	}
	return j
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
