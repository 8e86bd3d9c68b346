package sqlrunner

import (
	"strings"
	"unicode"
)

// SplitStatements breaks a script into the statements SQLite would run one
// after another. Semicolons inside string literals, quoted identifiers,
// comments and trigger bodies do not split. Fragments that hold nothing
// but whitespace and comments are dropped.
func SplitStatements(script string) []string {
	var (
		statements []string
		start      int
		hasContent bool
		depth      int // BEGIN ... END nesting inside CREATE TRIGGER
		words      []string
	)

	flush := func(end int) {
		if hasContent {
			statements = append(statements, strings.TrimSpace(script[start:end]))
		}
		start = end
		hasContent = false
		depth = 0
		words = words[:0]
	}

	for i := 0; i < len(script); {
		c := script[i]

		switch {
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			end := strings.IndexByte(script[i:], '\n')
			if end < 0 {
				i = len(script)
			} else {
				i += end + 1
			}

		case c == '/' && i+1 < len(script) && script[i+1] == '*':
			end := strings.Index(script[i+2:], "*/")
			if end < 0 {
				i = len(script)
			} else {
				i += end + 4
			}

		case c == '\'' || c == '"' || c == '`' || c == '[':
			hasContent = true
			i = skipQuoted(script, i)

		case c == ';':
			if depth > 0 {
				i++
				continue
			}
			flush(i + 1)
			i++

		case isWordByte(c):
			hasContent = true
			j := i
			for j < len(script) && isWordByte(script[j]) {
				j++
			}
			word := strings.ToUpper(script[i:j])
			if len(words) < 4 {
				words = append(words, word)
			}
			if isTrigger(words) {
				switch word {
				case "BEGIN", "CASE":
					depth++
				case "END":
					if depth > 0 {
						depth--
					}
				}
			}
			i = j

		default:
			if !unicode.IsSpace(rune(c)) {
				hasContent = true
			}
			i++
		}
	}
	flush(len(script))

	return statements
}

// skipQuoted returns the index just past the quoted section starting at i.
// Doubled quote characters are escapes.
func skipQuoted(script string, i int) int {
	closing := script[i]
	if closing == '[' {
		closing = ']'
	}

	for j := i + 1; j < len(script); j++ {
		if script[j] != closing {
			continue
		}
		if closing != ']' && j+1 < len(script) && script[j+1] == closing {
			j++
			continue
		}
		return j + 1
	}

	return len(script)
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}

// isTrigger reports whether the leading words open a CREATE [TEMP] TRIGGER.
func isTrigger(words []string) bool {
	if len(words) < 2 || words[0] != "CREATE" {
		return false
	}
	if words[1] == "TRIGGER" {
		return true
	}
	return len(words) >= 3 && (words[1] == "TEMP" || words[1] == "TEMPORARY") && words[2] == "TRIGGER"
}
