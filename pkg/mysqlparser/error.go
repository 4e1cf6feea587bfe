package mysqlparser

import (
	"fmt"

	"github.com/antlr4-go/antlr/v4"
)

// Position is a zero based line and column in the checked file.
type Position struct {
	Line   int
	Column int
}

// SyntaxError is the first syntax error found in a file.
type SyntaxError struct {
	Position   Position
	Message    string
	RawMessage string
}

// Error returns the error message.
func (e *SyntaxError) Error() string {
	return e.Message
}

// errorListener keeps the first error reported by a lexer or parser.
type errorListener struct {
	*antlr.DefaultErrorListener
	baseLine int
	err      *SyntaxError
}

func newErrorListener(baseLine int) *errorListener {
	return &errorListener{DefaultErrorListener: antlr.NewDefaultErrorListener(), baseLine: baseLine}
}

// SyntaxError implements antlr.ErrorListener.
func (l *errorListener) SyntaxError(
	_ antlr.Recognizer,
	offending any,
	line, column int,
	message string,
	_ antlr.RecognitionException,
) {
	if l.err != nil {
		return
	}

	near := ""
	if token, ok := offending.(*antlr.CommonToken); ok {
		stream := token.GetInputStream()
		start := max(token.GetStart()-40, 0)
		stop := min(token.GetStop(), stream.Size()-1)
		near = stream.GetTextFromInterval(antlr.NewInterval(start, stop))
	}

	// antlr lines are one based
	line = line - 1 + l.baseLine
	l.err = &SyntaxError{
		Position:   Position{Line: line, Column: column},
		RawMessage: message,
		Message:    fmt.Sprintf("syntax error at line %d:%d near %q", line+1, column, near),
	}
}
