package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the Lox scanner
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Single-character tokens
	TokenLeftParen  TokenType = iota // (
	TokenRightParen                  // )
	TokenLeftBrace                   // {
	TokenRightBrace                  // }
	TokenComma                       // ,
	TokenDot                         // .
	TokenMinus                       // -
	TokenPlus                        // +
	TokenSemicolon                   // ;
	TokenSlash                       // /
	TokenStar                        // *

	// One or two character tokens
	TokenBang         // !
	TokenBangEqual    // !=
	TokenEqual        // =
	TokenEqualEqual   // ==
	TokenGreater      // >
	TokenGreaterEqual // >=
	TokenLess         // <
	TokenLessEqual    // <=

	// Literals
	TokenIdentifier // foo, _bar
	TokenString     // "hello"
	TokenNumber     // 42, 3.14

	// Keywords
	TokenAnd
	TokenClass
	TokenElse
	TokenFalse
	TokenFor
	TokenFun
	TokenIf
	TokenNil
	TokenOr
	TokenPrint
	TokenReturn
	TokenSuper
	TokenThis
	TokenTrue
	TokenVar
	TokenWhile

	// Special tokens
	TokenError
	TokenEOF
)

var tokenNames = map[TokenType]string{
	TokenLeftParen:    "LEFT_PAREN",
	TokenRightParen:   "RIGHT_PAREN",
	TokenLeftBrace:    "LEFT_BRACE",
	TokenRightBrace:   "RIGHT_BRACE",
	TokenComma:        "COMMA",
	TokenDot:          "DOT",
	TokenMinus:        "MINUS",
	TokenPlus:         "PLUS",
	TokenSemicolon:    "SEMICOLON",
	TokenSlash:        "SLASH",
	TokenStar:         "STAR",
	TokenBang:         "BANG",
	TokenBangEqual:    "BANG_EQUAL",
	TokenEqual:        "EQUAL",
	TokenEqualEqual:   "EQUAL_EQUAL",
	TokenGreater:      "GREATER",
	TokenGreaterEqual: "GREATER_EQUAL",
	TokenLess:         "LESS",
	TokenLessEqual:    "LESS_EQUAL",
	TokenIdentifier:   "IDENTIFIER",
	TokenString:       "STRING",
	TokenNumber:       "NUMBER",
	TokenAnd:          "AND",
	TokenClass:        "CLASS",
	TokenElse:         "ELSE",
	TokenFalse:        "FALSE",
	TokenFor:          "FOR",
	TokenFun:          "FUN",
	TokenIf:           "IF",
	TokenNil:          "NIL",
	TokenOr:           "OR",
	TokenPrint:        "PRINT",
	TokenReturn:       "RETURN",
	TokenSuper:        "SUPER",
	TokenThis:         "THIS",
	TokenTrue:         "TRUE",
	TokenVar:          "VAR",
	TokenWhile:        "WHILE",
	TokenError:        "ERROR",
	TokenEOF:          "EOF",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// IsKeyword reports whether t is one of the sixteen reserved words.
func (t TokenType) IsKeyword() bool {
	return t >= TokenAnd && t <= TokenWhile
}

// Token is a classified span of source text. Start and Length are byte
// offsets into the scanned source; the token does not copy its text.
type Token struct {
	Type    TokenType
	Start   int
	Length  int
	Line    int    // 1-based
	Message string // diagnostic text, set only for TokenError
}

// Lexeme returns the source text spanned by the token.
func (t Token) Lexeme(source string) string {
	end := t.Start + t.Length
	if t.Start < 0 || end > len(source) || t.Start > end {
		return ""
	}
	return source[t.Start:end]
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return fmt.Sprintf("ERROR(%s)", t.Message)
	}
	return fmt.Sprintf("%s@%d+%d", t.Type, t.Start, t.Length)
}

// identifierType classifies a fully scanned identifier. Keywords are
// recognised by switching on the leading characters and comparing the
// whole remaining suffix, so a keyword prefix such as "forest" stays an
// identifier.
func identifierType(ident string) TokenType {
	switch ident[0] {
	case 'a':
		return checkKeyword(ident, 1, "nd", TokenAnd)
	case 'c':
		return checkKeyword(ident, 1, "lass", TokenClass)
	case 'e':
		return checkKeyword(ident, 1, "lse", TokenElse)
	case 'i':
		return checkKeyword(ident, 1, "f", TokenIf)
	case 'n':
		return checkKeyword(ident, 1, "il", TokenNil)
	case 'o':
		return checkKeyword(ident, 1, "r", TokenOr)
	case 'p':
		return checkKeyword(ident, 1, "rint", TokenPrint)
	case 'r':
		return checkKeyword(ident, 1, "eturn", TokenReturn)
	case 's':
		return checkKeyword(ident, 1, "uper", TokenSuper)
	case 'v':
		return checkKeyword(ident, 1, "ar", TokenVar)
	case 'w':
		return checkKeyword(ident, 1, "hile", TokenWhile)
	case 'f':
		if len(ident) > 1 {
			switch ident[1] {
			case 'a':
				return checkKeyword(ident, 2, "lse", TokenFalse)
			case 'o':
				return checkKeyword(ident, 2, "r", TokenFor)
			case 'u':
				return checkKeyword(ident, 2, "n", TokenFun)
			}
		}
	case 't':
		if len(ident) > 1 {
			switch ident[1] {
			case 'h':
				return checkKeyword(ident, 2, "is", TokenThis)
			case 'r':
				return checkKeyword(ident, 2, "ue", TokenTrue)
			}
		}
	}
	return TokenIdentifier
}

func checkKeyword(ident string, start int, rest string, typ TokenType) TokenType {
	if ident[start:] == rest {
		return typ
	}
	return TokenIdentifier
}
