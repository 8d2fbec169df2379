package domain

import "fmt"

// TokenType enumerates every lexical category the lexer can produce.
// Grounded in the teacher's interfaces.TokenType const block, expanded
// with the literal/operator/keyword surface the language needs.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenIntLiteral
	TokenLongLiteral
	TokenFloatLiteral
	TokenDoubleLiteral
	TokenCharLiteral
	TokenStringLiteral
	TokenBoolLiteral
	TokenNullLiteral
	TokenIdentifier

	// Keywords
	TokenType_
	TokenClass
	TokenStruct
	TokenEnum
	TokenNamespace
	TokenUsing
	TokenFn
	TokenIf
	TokenElse
	TokenWhile
	TokenFor
	TokenReturn
	TokenBreak
	TokenContinue
	TokenNew
	TokenThis
	TokenMatch
	TokenVirtual
	TokenOverride
	TokenStatic
	TokenPublic
	TokenPrivate
	TokenExtern
	TokenVar
	TokenCase
	TokenIn

	// Primitive type keywords
	TokenPrimI32
	TokenPrimI64
	TokenPrimF32
	TokenPrimF64
	TokenPrimBool
	TokenPrimChar
	TokenPrimVoid
	TokenPrimString

	// Punctuation
	TokenLeftParen
	TokenRightParen
	TokenLeftBrace
	TokenRightBrace
	TokenLeftBracket
	TokenRightBracket
	TokenSemicolon
	TokenComma
	TokenDot
	TokenColon
	TokenArrow   // ->
	TokenFatArrow // =>
	TokenDotDot  // ..
	TokenDotDotEq // ..=

	// Operators
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenPercent
	TokenAssign
	TokenPlusAssign
	TokenMinusAssign
	TokenStarAssign
	TokenSlashAssign
	TokenPercentAssign
	TokenPlusPlus
	TokenMinusMinus
	TokenEqual
	TokenNotEqual
	TokenLess
	TokenLessEqual
	TokenGreater
	TokenGreaterEqual
	TokenAnd
	TokenOr
	TokenNot
	TokenShiftRight // >>, split in two when used as nested generic close
)

var tokenTypeNames = map[TokenType]string{
	TokenEOF:           "EOF",
	TokenError:         "ERROR",
	TokenIntLiteral:    "INT",
	TokenLongLiteral:   "LONG",
	TokenFloatLiteral:  "FLOAT",
	TokenDoubleLiteral: "DOUBLE",
	TokenCharLiteral:   "CHAR",
	TokenStringLiteral: "STRING",
	TokenBoolLiteral:   "BOOL",
	TokenNullLiteral:   "NULL",
	TokenIdentifier:    "IDENTIFIER",
	TokenType_:         "type",
	TokenClass:         "class",
	TokenStruct:        "struct",
	TokenEnum:          "enum",
	TokenNamespace:     "namespace",
	TokenUsing:         "using",
	TokenFn:             "fn",
	TokenIf:            "if",
	TokenElse:          "else",
	TokenWhile:         "while",
	TokenFor:           "for",
	TokenReturn:        "return",
	TokenBreak:         "break",
	TokenContinue:      "continue",
	TokenNew:           "new",
	TokenThis:          "this",
	TokenMatch:         "match",
	TokenVirtual:       "virtual",
	TokenOverride:      "override",
	TokenStatic:        "static",
	TokenPublic:        "public",
	TokenPrivate:       "private",
	TokenExtern:        "extern",
	TokenVar:           "var",
	TokenCase:          "case",
	TokenIn:            "in",
	TokenPrimI32:       "i32",
	TokenPrimI64:       "i64",
	TokenPrimF32:       "f32",
	TokenPrimF64:       "f64",
	TokenPrimBool:      "bool",
	TokenPrimChar:      "char",
	TokenPrimVoid:      "void",
	TokenPrimString:    "string",
	TokenLeftParen:     "(",
	TokenRightParen:    ")",
	TokenLeftBrace:     "{",
	TokenRightBrace:    "}",
	TokenLeftBracket:   "[",
	TokenRightBracket:  "]",
	TokenSemicolon:     ";",
	TokenComma:         ",",
	TokenDot:           ".",
	TokenColon:         ":",
	TokenArrow:         "->",
	TokenFatArrow:      "=>",
	TokenDotDot:        "..",
	TokenDotDotEq:      "..=",
	TokenPlus:          "+",
	TokenMinus:         "-",
	TokenStar:          "*",
	TokenSlash:         "/",
	TokenPercent:       "%",
	TokenAssign:        "=",
	TokenPlusAssign:    "+=",
	TokenMinusAssign:   "-=",
	TokenStarAssign:    "*=",
	TokenSlashAssign:   "/=",
	TokenPercentAssign: "%=",
	TokenPlusPlus:      "++",
	TokenMinusMinus:    "--",
	TokenEqual:         "==",
	TokenNotEqual:      "!=",
	TokenLess:          "<",
	TokenLessEqual:     "<=",
	TokenGreater:       ">",
	TokenGreaterEqual:  ">=",
	TokenAnd:           "&&",
	TokenOr:            "||",
	TokenNot:           "!",
	TokenShiftRight:    ">>",
}

func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Keywords maps the fixed hash table of reserved words to their token type,
// per the single-pass max-munch identifier scanner in §4.1.
var Keywords = map[string]TokenType{
	"type":      TokenType_,
	"class":     TokenClass,
	"struct":    TokenStruct,
	"enum":      TokenEnum,
	"namespace": TokenNamespace,
	"using":     TokenUsing,
	"fn":        TokenFn,
	"if":        TokenIf,
	"else":      TokenElse,
	"while":     TokenWhile,
	"for":       TokenFor,
	"return":    TokenReturn,
	"break":     TokenBreak,
	"continue":  TokenContinue,
	"new":       TokenNew,
	"this":      TokenThis,
	"match":     TokenMatch,
	"virtual":   TokenVirtual,
	"override":  TokenOverride,
	"static":    TokenStatic,
	"public":    TokenPublic,
	"private":   TokenPrivate,
	"extern":    TokenExtern,
	"var":       TokenVar,
	"case":      TokenCase,
	"in":        TokenIn,
	"i32":       TokenPrimI32,
	"i64":       TokenPrimI64,
	"f32":       TokenPrimF32,
	"f64":       TokenPrimF64,
	"bool":      TokenPrimBool,
	"char":      TokenPrimChar,
	"void":      TokenPrimVoid,
	"string":    TokenPrimString,
	"true":      TokenBoolLiteral,
	"false":     TokenBoolLiteral,
	"null":      TokenNullLiteral,
}

// Trivia is a run of whitespace or comment text attached to a token.
type Trivia struct {
	Text  string
	Range SourceRange
}

// Token is a discriminated record carrying its kind, source range, raw
// text, and attached trivia, per §3's Token data model.
type Token struct {
	Type           TokenType
	Text           string
	Range          SourceRange
	LeadingTrivia  []Trivia
	TrailingTrivia []Trivia

	// Interpreted literal payloads, populated by the scanner that produced
	// the token so later passes never re-parse literal text.
	IntValue    int64
	FloatValue  float64
	BoolValue   bool
	StringValue string
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Type, t.Text, t.Range)
}
