package lexer

import "testing"

func collect(source string, l *Lexer, t *testing.T, tests []struct {
	expectedType    TokenType
	expectedLexeme  string
}) {
	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Lexeme(source) != tt.expectedLexeme {
			t.Fatalf("tests[%d] - lexeme wrong. expected=%q, got=%q",
				i, tt.expectedLexeme, tok.Lexeme(source))
		}
	}
}

func TestNextToken_SingleCharPunctuation(t *testing.T) {
	source := `( ) { } , . - + ; / * %`

	tests := []struct {
		expectedType   TokenType
		expectedLexeme string
	}{
		{TokenLeftParen, "("},
		{TokenRightParen, ")"},
		{TokenLeftBrace, "{"},
		{TokenRightBrace, "}"},
		{TokenComma, ","},
		{TokenDot, "."},
		{TokenMinus, "-"},
		{TokenPlus, "+"},
		{TokenSemicolon, ";"},
		{TokenSlash, "/"},
		{TokenStar, "*"},
		{TokenPercent, "%"},
		{TokenEOF, ""},
	}

	collect(source, New(source), t, tests)
}

func TestNextToken_OneOrTwoCharPunctuation(t *testing.T) {
	source := `! != = == < <= > >=`

	tests := []struct {
		expectedType   TokenType
		expectedLexeme string
	}{
		{TokenBang, "!"},
		{TokenBangEqual, "!="},
		{TokenEqual, "="},
		{TokenEqualEqual, "=="},
		{TokenLess, "<"},
		{TokenLessEqual, "<="},
		{TokenGreater, ">"},
		{TokenGreaterEqual, ">="},
		{TokenEOF, ""},
	}

	collect(source, New(source), t, tests)
}

func TestNextToken_Numbers(t *testing.T) {
	source := `42 3.14 100`

	tests := []struct {
		expectedType   TokenType
		expectedLexeme string
	}{
		{TokenNumber, "42"},
		{TokenNumber, "3.14"},
		{TokenNumber, "100"},
		{TokenEOF, ""},
	}

	collect(source, New(source), t, tests)
}

func TestNextToken_Strings(t *testing.T) {
	source := `"hello, world!" "" "multi
line"`

	tests := []struct {
		expectedType   TokenType
		expectedLexeme string
	}{
		{TokenString, `"hello, world!"`},
		{TokenString, `""`},
		{TokenString, "\"multi\nline\""},
		{TokenEOF, ""},
	}

	collect(source, New(source), t, tests)
}

func TestNextToken_UnterminatedString(t *testing.T) {
	source := `"unterminated`
	l := New(source)

	tok := l.NextToken()
	if tok.Type != TokenError {
		t.Fatalf("expected TokenError, got %q", tok.Type)
	}
	if l.LastError() != "Unterminated string." {
		t.Fatalf("unexpected message: %q", l.LastError())
	}
}

func TestNextToken_Keywords(t *testing.T) {
	source := `and class else false for fun if nil or print return super this true var while`

	tests := []struct {
		expectedType   TokenType
		expectedLexeme string
	}{
		{TokenAnd, "and"},
		{TokenClass, "class"},
		{TokenElse, "else"},
		{TokenFalse, "false"},
		{TokenFor, "for"},
		{TokenFun, "fun"},
		{TokenIf, "if"},
		{TokenNil, "nil"},
		{TokenOr, "or"},
		{TokenPrint, "print"},
		{TokenReturn, "return"},
		{TokenSuper, "super"},
		{TokenThis, "this"},
		{TokenTrue, "true"},
		{TokenVar, "var"},
		{TokenWhile, "while"},
		{TokenEOF, ""},
	}

	collect(source, New(source), t, tests)
}

func TestNextToken_Identifiers(t *testing.T) {
	source := `x count Point println _private ifTrue`

	tests := []struct {
		expectedType   TokenType
		expectedLexeme string
	}{
		{TokenIdentifier, "x"},
		{TokenIdentifier, "count"},
		{TokenIdentifier, "Point"},
		{TokenIdentifier, "println"},
		{TokenIdentifier, "_private"},
		{TokenIdentifier, "ifTrue"},
		{TokenEOF, ""},
	}

	collect(source, New(source), t, tests)
}

func TestNextToken_LineComments(t *testing.T) {
	source := "x // this is a comment\ny"

	tests := []struct {
		expectedType   TokenType
		expectedLexeme string
	}{
		{TokenIdentifier, "x"},
		{TokenIdentifier, "y"},
		{TokenEOF, ""},
	}

	collect(source, New(source), t, tests)
}

func TestNextToken_VariableDeclaration(t *testing.T) {
	source := `var x = 10;
var y = 20;`

	tests := []struct {
		expectedType   TokenType
		expectedLexeme string
	}{
		{TokenVar, "var"},
		{TokenIdentifier, "x"},
		{TokenEqual, "="},
		{TokenNumber, "10"},
		{TokenSemicolon, ";"},
		{TokenVar, "var"},
		{TokenIdentifier, "y"},
		{TokenEqual, "="},
		{TokenNumber, "20"},
		{TokenSemicolon, ";"},
		{TokenEOF, ""},
	}

	collect(source, New(source), t, tests)
}

func TestNextToken_Arithmetic(t *testing.T) {
	source := `3 + 4 * 5 % 2`

	tests := []struct {
		expectedType   TokenType
		expectedLexeme string
	}{
		{TokenNumber, "3"},
		{TokenPlus, "+"},
		{TokenNumber, "4"},
		{TokenStar, "*"},
		{TokenNumber, "5"},
		{TokenPercent, "%"},
		{TokenNumber, "2"},
		{TokenEOF, ""},
	}

	collect(source, New(source), t, tests)
}

func TestNextToken_UnexpectedCharacter(t *testing.T) {
	source := `@`
	l := New(source)

	tok := l.NextToken()
	if tok.Type != TokenError {
		t.Fatalf("expected TokenError, got %q", tok.Type)
	}
	if l.LastError() != "Unexpected character." {
		t.Fatalf("unexpected message: %q", l.LastError())
	}
}

func TestLineTracking(t *testing.T) {
	source := "x\ny\nz"

	l := New(source)

	tok1 := l.NextToken()
	if tok1.Line != 1 {
		t.Errorf("expected token on line 1, got line %d", tok1.Line)
	}

	tok2 := l.NextToken()
	if tok2.Line != 2 {
		t.Errorf("expected token on line 2, got line %d", tok2.Line)
	}

	tok3 := l.NextToken()
	if tok3.Line != 3 {
		t.Errorf("expected token on line 3, got line %d", tok3.Line)
	}
}

func TestNextToken_EqualThenEqualEqual(t *testing.T) {
	source := `= ==`

	tests := []struct {
		expectedType   TokenType
		expectedLexeme string
	}{
		{TokenEqual, "="},
		{TokenEqualEqual, "=="},
		{TokenEOF, ""},
	}

	collect(source, New(source), t, tests)
}

func TestNextToken_FunctionCallExpression(t *testing.T) {
	source := `clock()`

	tests := []struct {
		expectedType   TokenType
		expectedLexeme string
	}{
		{TokenIdentifier, "clock"},
		{TokenLeftParen, "("},
		{TokenRightParen, ")"},
		{TokenEOF, ""},
	}

	collect(source, New(source), t, tests)
}
