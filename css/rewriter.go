// Package css applies url() rewriting to whole stylesheets.
package css

import (
	"bytes"
	"fmt"
	"io"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// TransformFunc rewrites single declaration value, directory is the base
// for relative references.
type TransformFunc func(value, directory string) string

// Stats describes what has been done to a stylesheet.
type Stats struct {
	Declarations int // declarations seen
	Rewritten    int // declarations with changed value
}

// Rewriter walks stylesheet tokens and replaces declaration values. Every
// other byte of the input, including whitespace and comments, is copied
// as is.
type Rewriter struct {
	log *zap.Logger
}

// NewRewriter creates a new stylesheet rewriter.
func NewRewriter(log *zap.Logger) *Rewriter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Rewriter{log: log.Named("css-rewriter")}
}

type scanState int

const (
	stateIdle  scanState = iota // selectors, preludes, top level
	stateStart                  // inside block where declaration may start
	stateName                   // property name seen
	stateValue                  // collecting value after colon
)

type scanner struct {
	out     bytes.Buffer
	pending bytes.Buffer // property name up to and including colon
	value   bytes.Buffer
	state   scanState
	depth   int // braces
	nesting int // parens and brackets inside value

	directory string
	transform TransformFunc
	stats     Stats
}

// Rewrite reads stylesheet from r, applies transform to every declaration
// value and writes result to w. Nothing is written when stylesheet cannot be
// tokenized.
func (rw *Rewriter) Rewrite(w io.Writer, r io.Reader, directory string, transform TransformFunc) (Stats, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Stats{}, fmt.Errorf("unable to read stylesheet: %w", err)
	}

	s := &scanner{directory: directory, transform: transform}
	s.out.Grow(len(data))

	lexer := css.NewLexer(parse.NewInputBytes(data))
	for {
		tt, text := lexer.Next()
		if tt == css.ErrorToken {
			if err := lexer.Err(); err != nil && err != io.EOF {
				return s.stats, fmt.Errorf("unable to tokenize stylesheet: %w", err)
			}
			break
		}
		s.next(tt, text)
	}
	s.finish()

	rw.log.Debug("Stylesheet processed",
		zap.String("dir", directory),
		zap.Int("bytes", len(data)),
		zap.Int("declarations", s.stats.Declarations),
		zap.Int("rewritten", s.stats.Rewritten))

	if _, err := s.out.WriteTo(w); err != nil {
		return s.stats, fmt.Errorf("unable to write stylesheet: %w", err)
	}
	return s.stats, nil
}

// RewriteString is Rewrite for in-memory stylesheets.
func (rw *Rewriter) RewriteString(sheet, directory string, transform TransformFunc) (string, Stats, error) {
	var buf bytes.Buffer
	stats, err := rw.Rewrite(&buf, bytes.NewReader([]byte(sheet)), directory, transform)
	if err != nil {
		return "", stats, err
	}
	return buf.String(), stats, nil
}

func (s *scanner) next(tt css.TokenType, text []byte) {
	switch s.state {
	case stateValue:
		switch tt {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			s.nesting++
		case css.RightParenthesisToken, css.RightBracketToken:
			if s.nesting > 0 {
				s.nesting--
			}
		case css.SemicolonToken:
			if s.nesting == 0 {
				s.declaration()
				s.out.Write(text)
				s.state = stateStart
				return
			}
		case css.RightBraceToken:
			s.declaration()
			s.closeBlock(text)
			return
		case css.LeftBraceToken:
			// "a:hover {" inside nested block - that was a selector
			s.abandon()
			s.openBlock(text)
			return
		}
		s.value.Write(text)
		return

	case stateName:
		switch tt {
		case css.WhitespaceToken, css.CommentToken:
			s.pending.Write(text)
			return
		case css.ColonToken:
			s.pending.Write(text)
			s.state = stateValue
			s.nesting = 0
			return
		}
		s.abandon()

	case stateStart:
		switch tt {
		case css.WhitespaceToken, css.CommentToken, css.SemicolonToken:
			s.out.Write(text)
			return
		case css.IdentToken, css.CustomPropertyNameToken:
			s.pending.Write(text)
			s.state = stateName
			return
		}
		s.state = stateIdle
	}

	switch tt {
	case css.LeftBraceToken:
		s.openBlock(text)
	case css.RightBraceToken:
		s.closeBlock(text)
	case css.SemicolonToken:
		s.out.Write(text)
		if s.depth > 0 {
			s.state = stateStart
		}
	default:
		s.out.Write(text)
	}
}

func (s *scanner) openBlock(text []byte) {
	s.out.Write(text)
	s.depth++
	s.state = stateStart
}

func (s *scanner) closeBlock(text []byte) {
	s.out.Write(text)
	if s.depth > 0 {
		s.depth--
	}
	if s.depth > 0 {
		s.state = stateStart
	} else {
		s.state = stateIdle
	}
}

// declaration emits collected declaration with transformed value.
func (s *scanner) declaration() {
	value := s.value.String()
	result := s.transform(value, s.directory)

	s.stats.Declarations++
	if result != value {
		s.stats.Rewritten++
	}

	s.out.Write(s.pending.Bytes())
	s.out.WriteString(result)
	s.pending.Reset()
	s.value.Reset()
	s.state = stateIdle
}

// abandon emits collected tokens unchanged.
func (s *scanner) abandon() {
	s.out.Write(s.pending.Bytes())
	s.out.Write(s.value.Bytes())
	s.pending.Reset()
	s.value.Reset()
	s.state = stateIdle
}

// finish handles input ending in the middle of declaration.
func (s *scanner) finish() {
	switch s.state {
	case stateValue:
		s.declaration()
	case stateName:
		s.abandon()
	}
}
