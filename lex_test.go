package exprtree

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// lexAll scans src to its end, collecting every token except the final EOF
// and counting errors.
func lexAll(src, wseof string) ([]lexToken, int) {
	scan := lex(strings.NewReader(src))
	var toks []lexToken
	errs := 0
	for {
		tok, err := scan.next(wseof)
		if err == io.EOF {
			return toks, errs
		}
		if err != nil {
			errs++
			toks = append(toks, tok)
			continue
		}
		if tok.kind == tokenEOF {
			return toks, errs
		}
		toks = append(toks, tok)
	}
}

func TestLex(t *testing.T) {
	cases := []struct {
		src    string
		tokens []lexToken
		errs   int
	}{
		// spaces
		{"", nil, 0},
		{" \t \r\n ", nil, 0},
		// numbers
		{"0", []lexToken{{text: "0", kind: tokenNum, pos: 1}}, 0},
		{"9876543210", []lexToken{{text: "9876543210", kind: tokenNum, pos: 1}}, 0},
		{"1 0", []lexToken{{text: "1", kind: tokenNum, pos: 1}, {text: "0", kind: tokenNum, pos: 3}}, 0},
		{"1.0", []lexToken{{text: "1.0", kind: tokenNum, pos: 1}}, 0},
		{"-1", []lexToken{{text: "-", kind: tokenOp, pos: 1}, {text: "1", kind: tokenNum, pos: 2}}, 0},
		{"1e1", []lexToken{{text: "1e1", kind: tokenNum, pos: 1}}, 0},
		{"1e", []lexToken{{pos: 1}}, 1},
		{"1e+1", []lexToken{{text: "1e+1", kind: tokenNum, pos: 1}}, 0},
		{"1e-1", []lexToken{{text: "1e-1", kind: tokenNum, pos: 1}}, 0},
		{"1.1.1", []lexToken{{pos: 1}, {text: "1", kind: tokenNum, pos: 5}}, 1},
		{".", []lexToken{{pos: 1}}, 1},
		{".1", []lexToken{{text: ".1", kind: tokenNum, pos: 1}}, 0},
		{"1+0", []lexToken{{text: "1", kind: tokenNum, pos: 1}, {text: "+", kind: tokenOp, pos: 2}, {text: "0", kind: tokenNum, pos: 3}}, 0},
		{"1a", []lexToken{{pos: 1}}, 1},
		{"1,2", []lexToken{{text: "1", kind: tokenNum, pos: 1}, {text: ",", kind: tokenSep, pos: 2}, {text: "2", kind: tokenNum, pos: 3}}, 0},
		{"inf", []lexToken{{text: "inf", kind: tokenNum, pos: 1}}, 0},
		{"NaN", []lexToken{{text: "NaN", kind: tokenNum, pos: 1}}, 0},
		{"∞", []lexToken{{text: "∞", kind: tokenNum, pos: 1}}, 0},
		// identifiers and keywords
		{"e", []lexToken{{text: "e", kind: tokenIdent, pos: 1}}, 0},
		{"e1", []lexToken{{text: "e1", kind: tokenIdent, pos: 1}}, 0},
		{"π", []lexToken{{text: "π", kind: tokenIdent, pos: 1}}, 0},
		{"a.b", []lexToken{{text: "a.b", kind: tokenIdent, pos: 1}}, 0},
		{"_1234_", []lexToken{{text: "_1234_", kind: tokenIdent, pos: 1}}, 0},
		{"e(", []lexToken{{text: "e", kind: tokenIdent, pos: 1}, {text: "(", kind: tokenOpen, pos: 2}}, 0},
		{"true false", []lexToken{{text: "true", kind: tokenBool, pos: 1}, {text: "false", kind: tokenBool, pos: 6}}, 0},
		{"a and b", []lexToken{{text: "a", kind: tokenIdent, pos: 1}, {text: "and", kind: tokenOp, pos: 3}, {text: "b", kind: tokenIdent, pos: 7}}, 0},
		{"not x", []lexToken{{text: "not", kind: tokenOp, pos: 1}, {text: "x", kind: tokenIdent, pos: 5}}, 0},
		{"`a b`", []lexToken{{text: "a b", kind: tokenIdent, pos: 1}}, 0},
		{"`a``b`", []lexToken{{text: "a`b", kind: tokenIdent, pos: 1}}, 0},
		{"`and`", []lexToken{{text: "and", kind: tokenIdent, pos: 1}}, 0},
		{"``", []lexToken{{pos: 1}}, 1},
		{"`a", []lexToken{{pos: 1}}, 1},
		// text
		{`"abc"`, []lexToken{{text: "abc", kind: tokenText, pos: 1}}, 0},
		{`"a\"b"`, []lexToken{{text: `a"b`, kind: tokenText, pos: 1}}, 0},
		{`"a\nb"`, []lexToken{{text: "a\nb", kind: tokenText, pos: 1}}, 0},
		{`""`, []lexToken{{text: "", kind: tokenText, pos: 1}}, 0},
		{`"abc`, []lexToken{{pos: 1}}, 1},
		// operators
		{"+", []lexToken{{text: "+", kind: tokenOp, pos: 1}}, 0},
		{"++", []lexToken{{text: "+", kind: tokenOp, pos: 1}, {text: "+", kind: tokenOp, pos: 2}}, 0},
		{"a--b", []lexToken{{text: "a", kind: tokenIdent, pos: 1}, {text: "-", kind: tokenOp, pos: 2}, {text: "-", kind: tokenOp, pos: 3}, {text: "b", kind: tokenIdent, pos: 4}}, 0},
		{"<=", []lexToken{{text: "<=", kind: tokenOp, pos: 1}}, 0},
		{">=", []lexToken{{text: ">=", kind: tokenOp, pos: 1}}, 0},
		{"!=", []lexToken{{text: "!=", kind: tokenOp, pos: 1}}, 0},
		{"==", []lexToken{{text: "==", kind: tokenOp, pos: 1}}, 0},
		{"<>", []lexToken{{text: "<", kind: tokenOp, pos: 1}, {text: ">", kind: tokenOp, pos: 2}}, 0},
		{"≤≠", []lexToken{{text: "≤", kind: tokenOp, pos: 1}, {text: "≠", kind: tokenOp, pos: 2}}, 0},
		{"!x", []lexToken{{text: "!", kind: tokenOp, pos: 1}, {text: "x", kind: tokenIdent, pos: 2}}, 0},
		// brackets, handles, lambdas
		{"()", []lexToken{{text: "(", kind: tokenOpen, pos: 1}, {text: ")", kind: tokenClose, pos: 2}}, 0},
		{"[]", []lexToken{{text: "[", kind: tokenOpen, pos: 1}, {text: "]", kind: tokenClose, pos: 2}}, 0},
		{"{}", []lexToken{{text: "{", kind: tokenOpen, pos: 1}, {text: "}", kind: tokenClose, pos: 2}}, 0},
		{"@f", []lexToken{{text: "@", kind: tokenHandle, pos: 1}, {text: "f", kind: tokenIdent, pos: 2}}, 0},
		{`\(x)`, []lexToken{{text: `\`, kind: tokenLambda, pos: 1}, {text: "(", kind: tokenOpen, pos: 2}, {text: "x", kind: tokenIdent, pos: 3}, {text: ")", kind: tokenClose, pos: 4}}, 0},
		{"a;b", []lexToken{{text: "a", kind: tokenIdent, pos: 1}, {text: ";", kind: tokenSep, pos: 2}, {text: "b", kind: tokenIdent, pos: 3}}, 0},
		// erroneous symbols
		{"$", []lexToken{{pos: 1}}, 1},
		{"a$", []lexToken{{text: "a", kind: tokenIdent, pos: 1}, {pos: 2}}, 1},
		{"$a", []lexToken{{pos: 1}, {text: "a", kind: tokenIdent, pos: 2}}, 1},
		{"0$", []lexToken{{pos: 1}}, 1},
		{"$0", []lexToken{{pos: 1}, {text: "0", kind: tokenNum, pos: 2}}, 1},
		{"$$", []lexToken{{pos: 1}, {pos: 2}}, 2},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			toks, errs := lexAll(c.src, "")
			assert.Equal(t, c.tokens, toks)
			assert.Equal(t, c.errs, errs)
		})
	}
}

func TestLexWhitespaceEOF(t *testing.T) {
	toks, errs := lexAll("1\n2", "\n")
	assert.Zero(t, errs)
	assert.Equal(t, []lexToken{{text: "1", kind: tokenNum, pos: 1}}, toks)
}

func TestLexErrorPos(t *testing.T) {
	scan := lex(strings.NewReader("ab $"))
	_, err := scan.next("")
	assert.NoError(t, err)
	_, err = scan.next("")
	var le *LexError
	if assert.ErrorAs(t, err, &le) {
		assert.Equal(t, 4, le.Pos())
		assert.Equal(t, "$", le.Text)
	}
}
