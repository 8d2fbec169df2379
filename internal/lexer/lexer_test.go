package lexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlang/ember/internal/domain"
)

func tokenize(t *testing.T, src string) []domain.Token {
	t.Helper()
	l := New()
	l.SetInput("test.ember", strings.NewReader(src))
	var toks []domain.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == domain.TokenEOF {
			break
		}
	}
	require.Empty(t, l.Errors())
	return toks
}

func TestLexer_Numbers(t *testing.T) {
	cases := []struct {
		src      string
		wantType domain.TokenType
		wantInt  int64
	}{
		{"42", domain.TokenIntLiteral, 42},
		{"0x2A", domain.TokenIntLiteral, 42},
		{"0b101010", domain.TokenIntLiteral, 42},
		{"0o52", domain.TokenIntLiteral, 42},
	}
	for _, c := range cases {
		toks := tokenize(t, c.src)
		require.Len(t, toks, 2)
		assert.Equal(t, c.wantType, toks[0].Type, c.src)
		assert.Equal(t, c.wantInt, toks[0].IntValue, c.src)
	}
}

func TestLexer_FloatPromotion(t *testing.T) {
	toks := tokenize(t, "3.14")
	require.Len(t, toks, 2)
	assert.Equal(t, domain.TokenDoubleLiteral, toks[0].Type)
	assert.InDelta(t, 3.14, toks[0].FloatValue, 1e-9)
}

func TestLexer_StringEscapes(t *testing.T) {
	toks := tokenize(t, `"a\nb\tc\x41"`)
	require.Len(t, toks, 2)
	assert.Equal(t, domain.TokenStringLiteral, toks[0].Type)
	assert.Equal(t, "a\nb\tcA", toks[0].StringValue)
}

func TestLexer_Keywords(t *testing.T) {
	toks := tokenize(t, "class Dog : Animal { virtual fn speak(): i32 { return 1; } }")
	types := make([]domain.TokenType, 0, len(toks))
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Contains(t, types, domain.TokenClass)
	assert.Contains(t, types, domain.TokenVirtual)
	assert.Contains(t, types, domain.TokenFn)
	assert.Contains(t, types, domain.TokenPrimI32)
	assert.Contains(t, types, domain.TokenReturn)
}

func TestLexer_MultiCharOperators(t *testing.T) {
	toks := tokenize(t, "a >= b && c <= d || e != f == g")
	var ops []domain.TokenType
	for _, tok := range toks {
		switch tok.Type {
		case domain.TokenGreaterEqual, domain.TokenAnd, domain.TokenLessEqual, domain.TokenOr, domain.TokenNotEqual, domain.TokenEqual:
			ops = append(ops, tok.Type)
		}
	}
	assert.Equal(t, []domain.TokenType{
		domain.TokenGreaterEqual, domain.TokenAnd, domain.TokenLessEqual,
		domain.TokenOr, domain.TokenNotEqual, domain.TokenEqual,
	}, ops)
}

func TestLexer_ShiftRightSingleToken(t *testing.T) {
	toks := tokenize(t, "a >> b")
	require.Len(t, toks, 4)
	assert.Equal(t, domain.TokenShiftRight, toks[1].Type)
}

func TestLexer_Peek_DoesNotConsume(t *testing.T) {
	l := New()
	l.SetInput("t.ember", strings.NewReader("foo bar"))
	first := l.Peek()
	second := l.Peek()
	assert.Equal(t, first, second)
	consumed := l.NextToken()
	assert.Equal(t, first, consumed)
	next := l.NextToken()
	assert.Equal(t, "bar", next.Text)
}

func TestLexer_UnterminatedString(t *testing.T) {
	l := New()
	l.SetInput("t.ember", strings.NewReader(`"abc`))
	l.NextToken()
	require.NotEmpty(t, l.Errors())
	assert.Equal(t, domain.LexError, l.Errors()[0].Type)
}

func TestLexer_TotalityEOF(t *testing.T) {
	toks := tokenize(t, "var x: i32 = 1;")
	assert.Equal(t, domain.TokenEOF, toks[len(toks)-1].Type)
}
