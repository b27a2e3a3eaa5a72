// Package cssurl rewrites url() references found in CSS declaration values so
// they stay valid from a new output location.
package cssurl

import (
	"iter"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Kind tells how a Segment has to be treated when a value is rebuilt.
type Kind int

const (
	// Literal text is copied to the output unchanged.
	Literal Kind = iota
	// Argument is the content of a url() statement, quotes excluded.
	Argument
)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Argument:
		return "argument"
	default:
		return "unknown"
	}
}

// Segment is a piece of a tokenized declaration value.
type Segment struct {
	Kind Kind
	Text string
}

// urlStatement matches url() statements. Quoted bodies run up to the matching
// quote (no escape handling), unquoted bodies cannot contain ')' and must
// start and end with a character that is not a quote. Bodies never span line
// terminators (\n, \r, U+2028, U+2029). Groups:
// 1 - "url(", 2 - opening quote, 3 - quoted body, 4 - closing quote,
// 5 - unquoted body, 6 - ")".
//
// Backreference and negative lookahead are required here, so RE2 based
// regexp package cannot be used.
var urlStatement = regexp2.MustCompile(
	`(url\s*\()\s*(?:(['"])((?:(?!\2)`+anyButEOL+`)*)(\2)|([^'"](?:(?!\))`+anyButEOL+`)*[^'"]))\s*(\))`,
	regexp2.None)

const anyButEOL = `[^\n\r\u2028\u2029]`

const (
	groupQuoted   = 3
	groupUnquoted = 5
)

// Tokenize splits value into literal and url() argument segments. Joining
// Text of all produced segments in order gives back the original value byte
// for byte, even when it is not valid UTF-8. Empty literals are never
// produced, empty arguments are (url('')).
func Tokenize(value string) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		rs, offs := decode(value)
		pos := 0

		m, err := urlStatement.FindRunesMatch(rs)
		for ; err == nil && m != nil; m, err = urlStatement.FindNextMatch(m) {
			arg := argumentOf(m)
			if arg == nil {
				continue
			}
			start, end := offs[arg.Index], offs[arg.Index+arg.Length]
			if start > pos && !yield(Segment{Kind: Literal, Text: value[pos:start]}) {
				return
			}
			if !yield(Segment{Kind: Argument, Text: value[start:end]}) {
				return
			}
			pos = end
		}

		// on match error (timeout) whatever is left stays untouched
		if pos < len(value) {
			yield(Segment{Kind: Literal, Text: value[pos:]})
		}
	}
}

// decode returns runes of value together with byte offset of every rune,
// plus len(value) as the last element. Each invalid byte is a single
// utf8.RuneError rune.
func decode(value string) ([]rune, []int) {
	rs := make([]rune, 0, len(value))
	offs := make([]int, 0, len(value)+1)
	for i := 0; i < len(value); {
		r, size := utf8.DecodeRuneInString(value[i:])
		rs = append(rs, r)
		offs = append(offs, i)
		i += size
	}
	return rs, append(offs, len(value))
}

// argumentOf returns whichever body group participated in the match.
func argumentOf(m *regexp2.Match) *regexp2.Group {
	for _, n := range []int{groupQuoted, groupUnquoted} {
		if g := m.GroupByNumber(n); g != nil && len(g.Captures) > 0 {
			return g
		}
	}
	return nil
}
