package compiler

import (
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Scanner: pull-based tokenizer for Lox source
// ---------------------------------------------------------------------------

// Diagnostic messages carried by ERROR tokens.
const (
	msgUnterminatedString  = "Unterminated string."
	msgUnexpectedCharacter = "Unexpected character."
)

// pendingChar is a character that was consumed speculatively and must be
// rescanned as the first character of the next token.
type pendingChar struct {
	offset int
	ch     rune
}

// Scanner turns source text into tokens, one per ScanToken call.
type Scanner struct {
	source  string
	start   int // offset of the token being scanned
	current int // offset of the next unread byte
	line    int // current line (1-based)

	// ate holds at most one pushed-back character. It is drained before
	// anything else is read from source.
	ate *pendingChar
}

// NewScanner creates a scanner over source.
func NewScanner(source string) *Scanner {
	return &Scanner{
		source: source,
		line:   1,
	}
}

// Line returns the line the scanner is currently on.
func (s *Scanner) Line() int {
	return s.line
}

// ScanToken returns the next token. Once the input is exhausted it returns
// an EOF token with zero length.
func (s *Scanner) ScanToken() Token {
	s.skipWhitespace()

	var c rune
	if s.ate != nil {
		s.start = s.ate.offset
		c = s.ate.ch
		s.ate = nil
	} else {
		s.start = s.current
		if s.isAtEnd() {
			return s.makeToken(TokenEOF)
		}
		c = s.advance()
	}

	switch c {
	case '(':
		return s.makeToken(TokenLeftParen)
	case ')':
		return s.makeToken(TokenRightParen)
	case '{':
		return s.makeToken(TokenLeftBrace)
	case '}':
		return s.makeToken(TokenRightBrace)
	case ';':
		return s.makeToken(TokenSemicolon)
	case ',':
		return s.makeToken(TokenComma)
	case '.':
		return s.makeToken(TokenDot)
	case '-':
		return s.makeToken(TokenMinus)
	case '+':
		return s.makeToken(TokenPlus)
	case '/':
		return s.makeToken(TokenSlash)
	case '*':
		return s.makeToken(TokenStar)

	case '!':
		if s.match('=') {
			return s.makeToken(TokenBangEqual)
		}
		return s.makeToken(TokenBang)
	case '=':
		if s.match('=') {
			return s.makeToken(TokenEqualEqual)
		}
		return s.makeToken(TokenEqual)
	case '<':
		if s.match('=') {
			return s.makeToken(TokenLessEqual)
		}
		return s.makeToken(TokenLess)
	case '>':
		if s.match('=') {
			return s.makeToken(TokenGreaterEqual)
		}
		return s.makeToken(TokenGreater)

	case '"':
		return s.readString()
	}

	switch {
	case isDigit(c):
		return s.readNumber()
	case isIdentStart(c):
		return s.readIdentifier()
	}

	return s.errorToken(msgUnexpectedCharacter)
}

// skipWhitespace skips whitespace and // line comments. A lone '/' is
// pushed back so the next token starts with it.
func (s *Scanner) skipWhitespace() {
	for s.ate == nil && !s.isAtEnd() {
		c := s.peek()
		switch {
		case c == '\n':
			s.line++
			s.advance()

		case unicode.IsSpace(c):
			s.advance()

		case c == '/':
			offset := s.current
			s.advance()
			if s.isAtEnd() || s.peek() != '/' {
				s.ate = &pendingChar{offset: offset, ch: '/'}
				return
			}
			// Comment runs up to, not including, the newline
			for !s.isAtEnd() && s.peek() != '\n' {
				s.advance()
			}

		default:
			return
		}
	}
}

// readString reads a string literal; the opening quote is already consumed.
func (s *Scanner) readString() Token {
	for !s.isAtEnd() && s.peek() != '"' {
		if s.peek() == '\n' {
			s.line++
		}
		s.advance()
	}

	if s.isAtEnd() {
		return s.errorToken(msgUnterminatedString)
	}

	s.advance() // closing "
	return s.makeToken(TokenString)
}

// readNumber reads digits with an optional fractional part. A '.' that is
// not followed by a digit is pushed back and becomes its own DOT token.
func (s *Scanner) readNumber() Token {
	for !s.isAtEnd() && isDigit(s.peek()) {
		s.advance()
	}

	if !s.isAtEnd() && s.peek() == '.' {
		offset := s.current
		s.advance()
		if !s.isAtEnd() && isDigit(s.peek()) {
			for !s.isAtEnd() && isDigit(s.peek()) {
				s.advance()
			}
		} else {
			s.ate = &pendingChar{offset: offset, ch: '.'}
		}
	}

	return s.makeToken(TokenNumber)
}

// readIdentifier reads an identifier, then classifies it as a keyword or
// a plain identifier.
func (s *Scanner) readIdentifier() Token {
	for !s.isAtEnd() && isIdentPart(s.peek()) {
		s.advance()
	}
	return s.makeToken(identifierType(s.source[s.start:s.current]))
}

func (s *Scanner) isAtEnd() bool {
	return s.current >= len(s.source)
}

// advance consumes and returns the next character.
func (s *Scanner) advance() rune {
	r, size := utf8.DecodeRuneInString(s.source[s.current:])
	s.current += size
	return r
}

// peek returns the next character without consuming it, or 0 at end.
func (s *Scanner) peek() rune {
	if s.isAtEnd() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.source[s.current:])
	return r
}

// match consumes the next character if it equals expected.
func (s *Scanner) match(expected rune) bool {
	if s.isAtEnd() || s.peek() != expected {
		return false
	}
	s.advance()
	return true
}

// end is the offset just past the current token. A pushed-back character
// is not part of the token that pushed it back.
func (s *Scanner) end() int {
	if s.ate != nil {
		return s.ate.offset
	}
	return s.current
}

func (s *Scanner) makeToken(typ TokenType) Token {
	return Token{
		Type:   typ,
		Start:  s.start,
		Length: s.end() - s.start,
		Line:   s.line,
	}
}

func (s *Scanner) errorToken(message string) Token {
	tok := s.makeToken(TokenError)
	tok.Message = message
	return tok
}

// Helper functions

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// Tokenize returns every token of source, up to and including EOF.
// ERROR tokens do not stop the scan.
func Tokenize(source string) []Token {
	s := NewScanner(source)
	var tokens []Token
	for {
		tok := s.ScanToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return tokens
}
