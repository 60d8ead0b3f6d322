package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLexer_SimpleTokens(t *testing.T) {
	testData := []struct {
		src      string
		expected []TokenType
	}{
		{src: "CLASS Main IS", expected: []TokenType{ClassTP, IdentifierTP, IsTP, EOFTP}},
		{src: ":= : ; , . ( )", expected: []TokenType{AssignTP, ColonTP, SemicolonTP, CommaTP, DotTP, LeftParenTP, RightParenTP, EOFTP}},
		{src: "< <= > >= = #", expected: []TokenType{LessTP, LessEqualTP, GreaterTP, GreaterEqualTP, EqualTP, HashTP, EOFTP}},
		{src: "+ - * /", expected: []TokenType{PlusTP, MinusTP, MultiplyTP, DivideTP, EOFTP}},
	}
	for _, d := range testData {
		tokens, err := NewLexer([]byte(d.src)).Tokenize()
		assert.NoError(t, err, d.src)
		var got []TokenType
		for _, tok := range tokens {
			got = append(got, tok.TP)
		}
		assert.Equal(t, d.expected, got, d.src)
	}
}

func TestLexer_AndThenOrElseMerge(t *testing.T) {
	tokens, err := NewLexer([]byte("AND THEN OR ELSE AND OR")).Tokenize()
	assert.NoError(t, err)
	var got []TokenType
	for _, tok := range tokens {
		got = append(got, tok.TP)
	}
	assert.Equal(t, []TokenType{AndThenTP, OrElseTP, AndTP, OrTP, EOFTP}, got)
}

func TestLexer_IntegerAndCharacterLiterals(t *testing.T) {
	tokens, err := NewLexer([]byte("42 'Y' '\\n'")).Tokenize()
	assert.NoError(t, err)
	assert.Equal(t, IntegerTP, tokens[0].TP)
	assert.Equal(t, 42, tokens[0].Value)
	assert.Equal(t, CharacterTP, tokens[1].TP)
	assert.Equal(t, int('Y'), tokens[1].Value)
	assert.Equal(t, CharacterTP, tokens[2].TP)
	assert.Equal(t, int('\n'), tokens[2].Value)
}

func TestLexer_CommentsAreSkipped(t *testing.T) {
	tokens, err := NewLexer([]byte("CLASS {this is a comment} Main | trailing comment\nIS")).Tokenize()
	assert.NoError(t, err)
	assert.Equal(t, []TokenType{ClassTP, IdentifierTP, IsTP, EOFTP}, []TokenType{tokens[0].TP, tokens[1].TP, tokens[2].TP, tokens[3].TP})
}

func TestLexer_UnterminatedComment(t *testing.T) {
	_, err := NewLexer([]byte("CLASS { unterminated")).Tokenize()
	assert.Error(t, err)
}

func TestLexer_UnknownCharacter(t *testing.T) {
	_, err := NewLexer([]byte("@")).Tokenize()
	assert.Error(t, err)
}

func TestLexer_LineAndColumnTracking(t *testing.T) {
	tokens, err := NewLexer([]byte("CLASS\nMain")).Tokenize()
	assert.NoError(t, err)
	assert.Equal(t, 1, tokens[0].Pos.Line)
	assert.Equal(t, 2, tokens[1].Pos.Line)
	assert.Equal(t, 1, tokens[1].Pos.Column)
}
