// Package mysqlparser runs a local MySQL syntax check over migration files.
// It splits a file into statements and parses each one with the ANTLR MySQL
// grammar, stopping at the first error.
package mysqlparser

import (
	"strings"

	"github.com/antlr4-go/antlr/v4"
	parser "github.com/gedhean/mysql-parser"
)

// Result summarises a syntax check.
type Result struct {
	// Statements is the number of non-empty statements found.
	Statements int
	// Err is the first syntax error, if any.
	Err *SyntaxError
}

// Check splits sql and parses every non-empty statement.
func Check(sql string) Result {
	list, err := Split(sql)
	if err != nil {
		if se, ok := err.(*SyntaxError); ok {
			return Result{Err: se}
		}
		return Result{Err: &SyntaxError{Message: err.Error(), RawMessage: err.Error()}}
	}

	var res Result
	for i, s := range list {
		if s.Empty {
			continue
		}
		res.Statements++

		text := s.Text
		if i == len(list)-1 {
			text = addSemicolonIfNeeded(text)
		}
		if se := parseStatement(s.BaseLine, text); se != nil {
			res.Err = se
			return res
		}
	}
	return res
}

func parseStatement(baseLine int, statement string) *SyntaxError {
	lexer := parser.NewMySQLLexer(antlr.NewInputStream(statement))
	stream := antlr.NewCommonTokenStream(lexer, antlr.TokenDefaultChannel)
	p := parser.NewMySQLParser(stream)

	lexerErrors := newErrorListener(baseLine)
	lexer.RemoveErrorListeners()
	lexer.AddErrorListener(lexerErrors)
	parserErrors := newErrorListener(baseLine)
	p.RemoveErrorListeners()
	p.AddErrorListener(parserErrors)

	p.Script()

	if lexerErrors.err != nil {
		return lexerErrors.err
	}
	return parserErrors.err
}

// addSemicolonIfNeeded terminates the last statement of a file.
func addSemicolonIfNeeded(sql string) string {
	lexer := parser.NewMySQLLexer(antlr.NewInputStream(sql))
	lexerErrors := newErrorListener(0)
	lexer.RemoveErrorListeners()
	lexer.AddErrorListener(lexerErrors)
	stream := antlr.NewCommonTokenStream(lexer, antlr.TokenDefaultChannel)
	stream.Fill()
	if lexerErrors.err != nil {
		return sql
	}

	tokens := stream.GetAllTokens()
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].GetChannel() != antlr.TokenDefaultChannel || tokens[i].GetTokenType() == parser.MySQLParserEOF {
			continue
		}
		if tokens[i].GetTokenType() == parser.MySQLParserSEMICOLON_SYMBOL {
			return sql
		}

		var b strings.Builder
		b.WriteString(stream.GetTextFromInterval(antlr.NewInterval(0, tokens[i].GetTokenIndex())))
		b.WriteString(";")
		b.WriteString(stream.GetTextFromInterval(antlr.NewInterval(tokens[i].GetTokenIndex()+1, tokens[len(tokens)-1].GetTokenIndex())))
		return b.String()
	}
	return sql
}
