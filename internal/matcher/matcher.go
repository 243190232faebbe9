// Package matcher compiles a search term into a case-insensitive regexp and checks urls against it
package matcher

import (
	"errors"
	"regexp"
	"strings"
)

const ignoreCaseFlag = "(?i)"

var ErrCaseSensitiveTerm = errors.New("term must not switch off case-insensitive matching")

type Matcher struct {
	re *regexp.Regexp
}

// Compile treats term as a raw regexp, metacharacters are not escaped
func Compile(term string) (*Matcher, error) {
	if clearsIgnoreCase(term) {
		return nil, ErrCaseSensitiveTerm
	}
	re, err := regexp.Compile(ignoreCaseFlag + term)
	if err != nil {
		return nil, err
	}
	return &Matcher{re: re}, nil
}

// FindMatch reports whether url contains a match anywhere, not only as a whole
func (m *Matcher) FindMatch(url string) bool {
	return m.re.MatchString(url)
}

func (m *Matcher) String() string {
	return m.re.String()
}

// clearsIgnoreCase looks for flag groups like (?-i) or (?s-im:...) outside
// of character classes and escapes
func clearsIgnoreCase(term string) bool {
	inClass := false
	for i := 0; i < len(term); i++ {
		switch c := term[i]; {
		case c == '\\':
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
			// ']' сразу после '[' или '[^' - обычный символ
			if i+1 < len(term) && term[i+1] == '^' {
				i++
			}
			if i+1 < len(term) && term[i+1] == ']' {
				i++
			}
		case c == '(' && strings.HasPrefix(term[i+1:], "?"):
			flags := term[i+2:]
			if end := strings.IndexFunc(flags, func(r rune) bool { return !strings.ContainsRune("imsU-", r) }); end >= 0 {
				flags = flags[:end]
			}
			if neg := strings.IndexByte(flags, '-'); neg >= 0 && strings.ContainsRune(flags[neg:], 'i') {
				return true
			}
		}
	}
	return false
}
