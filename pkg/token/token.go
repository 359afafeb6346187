// Package token defines the lexical tokens of the Lumen language and the
// pull-based Source interface the compiler front end consumes. Tokenization
// itself lives outside this module; any lexer that can produce Tokens one at
// a time can drive the pipeline.
package token

import "fmt"

// Kind identifies the lexical class of a token.
type Kind uint8

const (
	EOF Kind = iota
	Illegal

	// Literals and identifiers
	Ident
	Number
	String

	// Punctuation
	LeftParen
	RightParen
	LeftBrace
	RightBrace
	LeftBracket
	RightBracket
	Comma
	Dot
	Colon
	Semicolon
	Question

	// Operators
	Plus
	Minus
	Star
	Slash
	Percent
	Bang
	Assign
	Equal
	NotEqual
	Less
	LessEqual
	Greater
	GreaterEqual
	And
	Or

	// Keywords
	KwNil
	KwTrue
	KwFalse
	KwVar
	KwFn
	KwReturn
	KwIf
	KwElse
	KwWhile
	KwFor
	KwIn
	KwBreak
	KwContinue
	KwClass
	KwStruct
	KwImport
	KwFrom
	KwExport
	KwAwait
	KwAsync
	KwSelf
)

var kindNames = map[Kind]string{
	EOF:          "EOF",
	Illegal:      "Illegal",
	Ident:        "Ident",
	Number:       "Number",
	String:       "String",
	LeftParen:    "(",
	RightParen:   ")",
	LeftBrace:    "{",
	RightBrace:   "}",
	LeftBracket:  "[",
	RightBracket: "]",
	Comma:        ",",
	Dot:          ".",
	Colon:        ":",
	Semicolon:    ";",
	Question:     "?",
	Plus:         "+",
	Minus:        "-",
	Star:         "*",
	Slash:        "/",
	Percent:      "%",
	Bang:         "!",
	Assign:       "=",
	Equal:        "==",
	NotEqual:     "!=",
	Less:         "<",
	LessEqual:    "<=",
	Greater:      ">",
	GreaterEqual: ">=",
	And:          "and",
	Or:           "or",
	KwNil:        "nil",
	KwTrue:       "true",
	KwFalse:      "false",
	KwVar:        "var",
	KwFn:         "fn",
	KwReturn:     "return",
	KwIf:         "if",
	KwElse:       "else",
	KwWhile:      "while",
	KwFor:        "for",
	KwIn:         "in",
	KwBreak:      "break",
	KwContinue:   "continue",
	KwClass:      "class",
	KwStruct:     "struct",
	KwImport:     "import",
	KwFrom:       "from",
	KwExport:     "export",
	KwAwait:      "await",
	KwAsync:      "async",
	KwSelf:       "self",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Position is a line/column pair, both 1-based.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a single lexical unit. Lexeme holds the literal source text for
// identifiers, numbers and strings; for fixed tokens it may be empty.
type Token struct {
	Kind   Kind
	Lexeme string
	Pos    Position
}

func (t Token) String() string {
	if t.Lexeme != "" {
		return fmt.Sprintf("%s %q @%s", t.Kind, t.Lexeme, t.Pos)
	}
	return fmt.Sprintf("%s @%s", t.Kind, t.Pos)
}

// Source is the pull interface a lexer implements. Next returns the next
// token; after the input is exhausted it keeps returning an EOF token.
type Source interface {
	Next() Token
}

// SliceSource adapts a pre-lexed token slice to the Source interface.
// Mostly useful in tests and tools.
type SliceSource struct {
	tokens []Token
	pos    int
}

// NewSliceSource returns a Source that yields the given tokens in order.
func NewSliceSource(tokens []Token) *SliceSource {
	return &SliceSource{tokens: tokens}
}

func (s *SliceSource) Next() Token {
	if s.pos >= len(s.tokens) {
		return Token{Kind: EOF}
	}
	t := s.tokens[s.pos]
	s.pos++
	return t
}
