package fortran

import (
	"strconv"
	"strings"
	"testing"

	"github.com/soypat/polyglot/fortran/token"
)

type testtoktuple struct {
	tok     token.Token
	literal string
}

func TestLexer90_tokens(t *testing.T) {
	cases := []struct {
		src    string
		expect []testtoktuple
	}{
		0: {
			src: "BLKIN(1,5,JBLK)= BLKIN(1,5,JBLK)+DBLE(IMTIME)/100.D0",
			expect: []testtoktuple{
				{tok: token.Identifier, literal: "BLKIN"},
				{tok: token.LParen, literal: ""},
				{tok: token.IntLit, literal: "1"},
				{tok: token.Comma, literal: ""},
				{tok: token.IntLit, literal: "5"},
				{tok: token.Comma, literal: ""},
				{tok: token.Identifier, literal: "JBLK"},
				{tok: token.RParen, literal: ""},
				{tok: token.Equals, literal: ""},
				{tok: token.Identifier, literal: "BLKIN"},
				{tok: token.LParen, literal: ""},
				{tok: token.IntLit, literal: "1"},
				{tok: token.Comma, literal: ""},
				{tok: token.IntLit, literal: "5"},
				{tok: token.Comma, literal: ""},
				{tok: token.Identifier, literal: "JBLK"},
				{tok: token.RParen, literal: ""},
				{tok: token.Plus, literal: ""},
				{tok: token.Identifier, literal: "DBLE"},
				{tok: token.LParen, literal: ""},
				{tok: token.Identifier, literal: "IMTIME"},
				{tok: token.RParen, literal: ""},
				{tok: token.Slash, literal: ""},
				{tok: token.FloatLit, literal: "100.D0"},
			},
		},
		1: {
			src: "      !CHARACTER*1 LINTWD,LTIME",
			expect: []testtoktuple{
				{tok: token.LineComment, literal: "CHARACTER*1 LINTWD,LTIME"},
			},
		},
		2: {
			src: "      SEC= SEC +IH*3600.D0+IM*60.D0+ DBLE(IS)",
			expect: []testtoktuple{
				{tok: token.Identifier, literal: "SEC"},
				{tok: token.Equals, literal: ""},
				{tok: token.Identifier, literal: "SEC"},
				{tok: token.Plus, literal: ""},
				{tok: token.Identifier, literal: "IH"},
				{tok: token.Asterisk, literal: ""},
				{tok: token.FloatLit, literal: "3600.D0"},
				{tok: token.Plus, literal: ""},
				{tok: token.Identifier, literal: "IM"},
				{tok: token.Asterisk, literal: ""},
				{tok: token.FloatLit, literal: "60.D0"},
				{tok: token.Plus, literal: ""},
				{tok: token.Identifier, literal: "DBLE"},
				{tok: token.LParen, literal: ""},
				{tok: token.Identifier, literal: "IS"},
				{tok: token.RParen, literal: ""},
			},
		},
		3: {
			src: "QFI0MR=QFI0MR*ACOS(-1.Q0)/180.Q0",
			expect: []testtoktuple{
				{tok: token.Identifier, literal: "QFI0MR"},
				{tok: token.Equals, literal: ""},
				{tok: token.Identifier, literal: "QFI0MR"},
				{tok: token.Asterisk, literal: ""},
				{tok: token.Identifier, literal: "ACOS"},
				{tok: token.LParen, literal: ""},
				{tok: token.Minus, literal: ""},
				{tok: token.FloatLit, literal: "1.Q0"},
				{tok: token.RParen, literal: ""},
				{tok: token.Slash, literal: ""},
				{tok: token.FloatLit, literal: "180.Q0"},
			},
		},
		4: {
			src: "IF (A .EQ. 1 .AND. B /= 2) THEN",
			expect: []testtoktuple{
				{tok: token.IF, literal: "IF"},
				{tok: token.LParen, literal: ""},
				{tok: token.Identifier, literal: "A"},
				{tok: token.EQ, literal: "EQ"},
				{tok: token.IntLit, literal: "1"},
				{tok: token.AND, literal: "AND"},
				{tok: token.Identifier, literal: "B"},
				{tok: token.NotEquals, literal: ""},
				{tok: token.IntLit, literal: "2"},
				{tok: token.RParen, literal: ""},
				{tok: token.THEN, literal: "THEN"},
			},
		},
		5: {
			src: "S = T // U; P => Q",
			expect: []testtoktuple{
				{tok: token.Identifier, literal: "S"},
				{tok: token.Equals, literal: ""},
				{tok: token.Identifier, literal: "T"},
				{tok: token.StringConcat, literal: ""},
				{tok: token.Identifier, literal: "U"},
				{tok: token.Semicolon, literal: ""},
				{tok: token.Identifier, literal: "P"},
				{tok: token.PointerAssign, literal: ""},
				{tok: token.Identifier, literal: "Q"},
			},
		},
		6: {
			src: "K = 4_8 + 1.5_dp",
			expect: []testtoktuple{
				{tok: token.Identifier, literal: "K"},
				{tok: token.Equals, literal: ""},
				{tok: token.IntLit, literal: "4_8"},
				{tok: token.Plus, literal: ""},
				{tok: token.FloatLit, literal: "1.5_dp"},
			},
		},
		7: {
			// Free form continuation with a leading '&' on the next line.
			src: "A = B + &\n    & C",
			expect: []testtoktuple{
				{tok: token.Identifier, literal: "A"},
				{tok: token.Equals, literal: ""},
				{tok: token.Identifier, literal: "B"},
				{tok: token.Plus, literal: ""},
				{tok: token.Identifier, literal: "C"},
			},
		},
		8: {
			src: "X = 'it''s' // \"a\"",
			expect: []testtoktuple{
				{tok: token.Identifier, literal: "X"},
				{tok: token.Equals, literal: ""},
				{tok: token.StringLit, literal: "it's"},
				{tok: token.StringConcat, literal: ""},
				{tok: token.StringLit, literal: "a"},
			},
		},
	}
	var l Lexer90
	for i, test := range cases {
		err := l.Reset("TestLexer"+strconv.Itoa(i), strings.NewReader(test.src))
		if err != nil {
			t.Error(err)
			continue
		}
		for i, expect := range test.expect {
			tok, _, literal := l.NextToken()
			if tok == token.EOF {
				t.Errorf("%s tok %d early EOF", l.Source(), i)
				break
			}
			if tok != expect.tok {
				t.Errorf("%s tok %d TokenMismatch want %s got %s", l.Source(), i, expect.tok.String(), tok.String())
			}
			if string(literal) != expect.literal {
				t.Errorf("%s tok %d LiteralMismatch want %q got %q", l.Source(), i, expect.literal, literal)
			}
		}
		if tok, _, lit := l.NextToken(); tok != token.EOF {
			t.Errorf("%s expected lexer to be done, got %s (%s)", l.Source(), lit, tok.String())
		}
	}
}
