package crm

import (
	"strings"
)

// LegacyActivityParser accepts Ruby hash literal exports such as
// [{"subject"=>"Call", :status=>"Completed", "date"=>nil}].
type LegacyActivityParser struct{}

func (LegacyActivityParser) Name() string { return "legacy" }

func (LegacyActivityParser) Parse(raw string) ([]Activity, error) {
	return decodeActivities([]byte(rubyToJSON(raw)))
}

// DetectParser chooses the parser for raw. Payloads using => pairs outside
// string literals are legacy exports; everything else is JSON.
func DetectParser(raw string) ActivityParser {
	if hasRubyArrow(raw) {
		return LegacyActivityParser{}
	}
	return JSONActivityParser{}
}

func hasRubyArrow(raw string) bool {
	inString := false
	for i := 0; i < len(raw); i++ {
		switch c := raw[i]; {
		case inString && c == '\\':
			i++
		case c == '"':
			inString = !inString
		case !inString && c == '=' && i+1 < len(raw) && raw[i+1] == '>':
			return true
		}
	}
	return false
}

// rubyToJSON rewrites a Ruby hash literal in one pass: => becomes :,
// nil becomes null and :symbol keys become quoted strings. String literals
// are copied untouched.
func rubyToJSON(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '"':
			end := stringEnd(raw, i)
			b.WriteString(raw[i:end])
			i = end - 1
		case c == '=' && i+1 < len(raw) && raw[i+1] == '>':
			b.WriteByte(':')
			i++
		case c == ':' && i+1 < len(raw) && isIdentStart(raw[i+1]):
			j := i + 1
			for j < len(raw) && isIdent(raw[j]) {
				j++
			}
			b.WriteString(`"` + raw[i+1:j] + `"`)
			i = j - 1
		case strings.HasPrefix(raw[i:], "nil") && !identAt(raw, i-1) && !identAt(raw, i+3):
			b.WriteString("null")
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// stringEnd returns the index just past the string literal starting at start.
func stringEnd(raw string, start int) int {
	for i := start + 1; i < len(raw); i++ {
		switch raw[i] {
		case '\\':
			i++
		case '"':
			return i + 1
		}
	}
	return len(raw)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdent(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func identAt(raw string, i int) bool {
	return i >= 0 && i < len(raw) && isIdent(raw[i])
}
