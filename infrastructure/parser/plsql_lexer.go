package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/andratr/bmtool1/domain"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokQuotedIdent
	tokString
	tokNumber
	tokOp
)

// token is one lexeme with its byte span in the source. Words are kept in
// their original spelling; upper is the case-folded form used for keyword
// checks.
type token struct {
	kind       tokenKind
	text       string
	upper      string
	start, end int
	line       int
}

func (t token) is(word string) bool {
	return t.kind == tokWord && t.upper == word
}

func (t token) isOp(op string) bool {
	return t.kind == tokOp && t.text == op
}

var plsqlOperators = []string{
	":=", "=>", "..", "||", "<=", ">=", "<>", "!=", "~=", "^=", "**", "<<", ">>",
}

// lexPLSQL splits src into tokens, dropping whitespace and comments. The
// final token is always tokEOF.
func lexPLSQL(src []byte) ([]token, error) {
	l := &plsqlLexer{src: src, line: 1}
	var toks []token
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.kind == tokEOF {
			return toks, nil
		}
	}
}

type plsqlLexer struct {
	src  []byte
	pos  int
	line int
}

func (l *plsqlLexer) peekAt(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

func (l *plsqlLexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.src); i++ {
		if l.src[l.pos] == '\n' {
			l.line++
		}
		l.pos++
	}
}

func (l *plsqlLexer) malformed(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", domain.ErrMalformedSource, l.line, fmt.Sprintf(format, args...))
}

func (l *plsqlLexer) skipSpaceAndComments() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f':
			l.advance(1)
		case c == '-' && l.peekAt(1) == '-':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '/' && l.peekAt(1) == '*':
			end := strings.Index(string(l.src[l.pos+2:]), "*/")
			if end < 0 {
				return l.malformed("unterminated comment")
			}
			l.advance(end + 4)
		default:
			return nil
		}
	}
	return nil
}

func (l *plsqlLexer) next() (token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return token{}, err
	}
	start, line := l.pos, l.line
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, start: start, end: start, line: line}, nil
	}

	c := l.src[l.pos]
	switch {
	case (c == 'q' || c == 'Q') && l.peekAt(1) == '\'':
		return l.quoteDelimited(start, 1)
	case (c == 'n' || c == 'N') && (l.peekAt(1) == 'q' || l.peekAt(1) == 'Q') && l.peekAt(2) == '\'':
		return l.quoteDelimited(start, 2)
	case (c == 'n' || c == 'N') && l.peekAt(1) == '\'':
		l.advance(1)
		return l.stringLiteral(start)
	case c == '\'':
		return l.stringLiteral(start)
	case c == '"':
		end := strings.IndexByte(string(l.src[l.pos+1:]), '"')
		if end < 0 {
			return token{}, l.malformed("unterminated quoted identifier")
		}
		l.advance(end + 2)
		return l.emit(tokQuotedIdent, start, line), nil
	case isWordStart(c):
		for l.pos < len(l.src) && isWordPart(l.src[l.pos]) {
			l.pos++
		}
		return l.emit(tokWord, start, line), nil
	case isDigit(c) || c == '.' && isDigit(l.peekAt(1)):
		l.number()
		return l.emit(tokNumber, start, line), nil
	}

	for _, op := range plsqlOperators {
		if strings.HasPrefix(string(l.src[l.pos:min(l.pos+2, len(l.src))]), op) {
			l.advance(len(op))
			return l.emit(tokOp, start, line), nil
		}
	}
	_, size := utf8.DecodeRune(l.src[l.pos:])
	l.advance(size)
	return l.emit(tokOp, start, line), nil
}

func (l *plsqlLexer) emit(kind tokenKind, start, line int) token {
	text := string(l.src[start:l.pos])
	return token{kind: kind, text: text, upper: strings.ToUpper(text), start: start, end: l.pos, line: line}
}

// stringLiteral consumes '...' with '' as an escaped quote.
func (l *plsqlLexer) stringLiteral(start int) (token, error) {
	line := l.line
	l.advance(1)
	for l.pos < len(l.src) {
		if l.src[l.pos] == '\'' {
			if l.peekAt(1) == '\'' {
				l.advance(2)
				continue
			}
			l.advance(1)
			return l.emit(tokString, start, line), nil
		}
		l.advance(1)
	}
	l.line = line
	return token{}, l.malformed("unterminated string literal")
}

// quoteDelimited consumes q'<d>...<d>' where the closing delimiter pairs
// with the opening one for brackets.
func (l *plsqlLexer) quoteDelimited(start, prefix int) (token, error) {
	line := l.line
	l.advance(prefix + 1)
	if l.pos >= len(l.src) {
		return token{}, l.malformed("unterminated quoted string")
	}
	open := l.src[l.pos]
	closing := open
	switch open {
	case '[':
		closing = ']'
	case '{':
		closing = '}'
	case '(':
		closing = ')'
	case '<':
		closing = '>'
	}
	l.advance(1)
	for l.pos+1 < len(l.src) {
		if l.src[l.pos] == closing && l.src[l.pos+1] == '\'' {
			l.advance(2)
			return l.emit(tokString, start, line), nil
		}
		l.advance(1)
	}
	l.line = line
	return token{}, l.malformed("unterminated quoted string")
}

// number consumes digits with an optional fraction and exponent. A '..'
// range operator after the integer part is left alone.
func (l *plsqlLexer) number() {
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.peekAt(0) == '.' && l.peekAt(1) != '.' {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if c := l.peekAt(0); c == 'e' || c == 'E' {
		off := 1
		if s := l.peekAt(1); s == '+' || s == '-' {
			off = 2
		}
		if isDigit(l.peekAt(off)) {
			l.pos += off
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.pos++
			}
		}
	}
	// f/d suffixes of BINARY_FLOAT and BINARY_DOUBLE literals
	if c := l.peekAt(0); (c == 'f' || c == 'F' || c == 'd' || c == 'D') && !isWordPart(l.peekAt(1)) {
		l.pos++
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isWordStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c >= utf8.RuneSelf
}

func isWordPart(c byte) bool {
	return isWordStart(c) || isDigit(c) || c == '$' || c == '#'
}
