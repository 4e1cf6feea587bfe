package mysqlparser

import (
	"regexp"

	"github.com/antlr4-go/antlr/v4"
	parser "github.com/gedhean/mysql-parser"
	"github.com/pkg/errors"
)

var (
	delimiterPrefix = regexp.MustCompile(`(?i)^\s*DELIMITER\s+`)
	delimiterValue  = regexp.MustCompile(`(?i)^\s*DELIMITER\s+(?P<DELIMITER>[^\s\\]+)\s*`)
)

var errUnbalancedBlock = errors.New("invalid statement: failed to split multiple statements")

// Statement is one statement of a multi-statement SQL text.
type Statement struct {
	Text string
	// BaseLine is the zero based line of the first token.
	BaseLine int
	// Start is the position of the first non-hidden token.
	Start Position
	End   Position
	// Empty is set for statements made only of comments and semicolons.
	Empty bool
}

// Split splits sql into statements. Compound statements (BEGIN ... END,
// IF, LOOP, WHILE, REPEAT, CASE) are kept whole, and DELIMITER directives
// are honoured with the custom delimiter replaced by a semicolon.
func Split(sql string) ([]Statement, error) {
	lexer := parser.NewMySQLLexer(antlr.NewInputStream(sql))
	stream := antlr.NewCommonTokenStream(lexer, antlr.TokenDefaultChannel)

	list, err := splitTokens(stream)
	if err != nil {
		// block matching gave up, let the parser find the boundaries
		return splitByParser(lexer, stream)
	}
	return list, nil
}

// IsDelimiter returns true if the statement is a delimiter statement.
func IsDelimiter(stmt string) bool {
	return delimiterPrefix.MatchString(stmt)
}

// ExtractDelimiter extracts the delimiter from the delimiter statement.
func ExtractDelimiter(stmt string) (string, error) {
	matchList := delimiterValue.FindStringSubmatch(stmt)
	index := delimiterValue.SubexpIndex("DELIMITER")
	if index >= 0 && index < len(matchList) {
		return matchList[index], nil
	}
	return "", errors.Errorf("cannot extract delimiter from %q", stmt)
}

func splitTokens(stream *antlr.CommonTokenStream) ([]Statement, error) {
	stream.Fill()
	tokens := stream.GetAllTokens()
	for _, token := range tokens {
		if token.GetChannel() == antlr.TokenDefaultChannel && token.GetTokenType() == parser.MySQLLexerDELIMITER_SYMBOL {
			return splitDelimiterMode(stream)
		}
	}

	blocks := newBlockTracker()
	for i, token := range tokens {
		if err := blocks.visit(tokens, i, token.GetTokenType()); err != nil {
			return nil, err
		}
	}

	var result []Statement
	start := 0
	for _, pos := range blocks.semicolons {
		result = append(result, newStatement(stream, tokens, start, pos))
		start = pos + 1
	}
	// the last statement may end at EOF without a semicolon
	if eof := len(tokens) - 1; start < eof {
		result = append(result, newStatement(stream, tokens, start, eof-1))
	}
	return result, nil
}

// blockTracker records the semicolons that terminate top level statements,
// discarding those that fall inside compound statement bodies.
type blockTracker struct {
	open       map[int][]int
	semicolons []int
}

func newBlockTracker() *blockTracker {
	return &blockTracker{open: make(map[int][]int)}
}

func (b *blockTracker) visit(tokens []antlr.Token, i, tokenType int) error {
	switch tokenType {
	case parser.MySQLParserBEGIN_SYMBOL:
		next := defaultTokenType(tokens, i, 1)
		// BEGIN [WORK] starts a transaction, XA BEGIN is not a block either
		if next == parser.MySQLParserWORK_SYMBOL || next == parser.MySQLParserSEMICOLON_SYMBOL || next == parser.MySQLParserEOF ||
			defaultTokenType(tokens, i, -1) == parser.MySQLParserXA_SYMBOL {
			return nil
		}
		b.push(parser.MySQLParserBEGIN_SYMBOL, i)

	case parser.MySQLParserCASE_SYMBOL:
		if defaultTokenType(tokens, i, -1) == parser.MySQLParserEND_SYMBOL {
			return nil
		}
		// CASE ... END CASE and CASE ... END share the BEGIN stack
		b.push(parser.MySQLParserBEGIN_SYMBOL, i)

	case parser.MySQLParserIF_SYMBOL:
		if defaultTokenType(tokens, i, -1) == parser.MySQLParserEND_SYMBOL || defaultTokenType(tokens, i, 1) == parser.MySQLParserEXISTS_SYMBOL {
			return nil
		}
		b.push(tokenType, i)

	case parser.MySQLParserLOOP_SYMBOL, parser.MySQLParserWHILE_SYMBOL, parser.MySQLParserREPEAT_SYMBOL:
		if defaultTokenType(tokens, i, -1) == parser.MySQLParserEND_SYMBOL {
			return nil
		}
		b.push(tokenType, i)

	case parser.MySQLParserEND_SYMBOL:
		if defaultTokenType(tokens, i, -1) == parser.MySQLParserXA_SYMBOL {
			return nil
		}
		switch next := defaultTokenType(tokens, i, 1); next {
		case parser.MySQLParserIF_SYMBOL, parser.MySQLParserLOOP_SYMBOL, parser.MySQLParserWHILE_SYMBOL, parser.MySQLParserREPEAT_SYMBOL:
			return b.close(next)
		default:
			return b.close(parser.MySQLParserBEGIN_SYMBOL)
		}

	case parser.MySQLParserSEMICOLON_SYMBOL:
		b.semicolons = append(b.semicolons, i)
	}
	return nil
}

func (b *blockTracker) push(kind, pos int) {
	b.open[kind] = append(b.open[kind], pos)
}

// close ends the innermost open block of kind. IF(...) and REPEAT(...) are
// also functions, so those stacks may hold openers that never close.
func (b *blockTracker) close(kind int) error {
	stack := b.open[kind]
	if len(stack) == 0 {
		return errUnbalancedBlock
	}
	opener := stack[len(stack)-1]
	b.open[kind] = stack[:len(stack)-1]

	for i := len(b.semicolons) - 1; i >= 0; i-- {
		if b.semicolons[i] < opener {
			b.semicolons = b.semicolons[:i+1]
			return nil
		}
	}
	b.semicolons = b.semicolons[:0]
	return nil
}

func splitDelimiterMode(stream *antlr.CommonTokenStream) ([]Statement, error) {
	var result []Statement
	delimiter := ";"
	tokens := stream.GetAllTokens()
	start := 0

	for i := 0; i < len(tokens); {
		token := tokens[i]

		if token.GetChannel() == antlr.TokenDefaultChannel && token.GetTokenType() == parser.MySQLLexerDELIMITER_SYMBOL {
			next, directive := delimiterDirective(stream, i)
			var err error
			if delimiter, err = ExtractDelimiter(directive); err != nil {
				return nil, errors.Wrapf(err, "failed to extract delimiter from statement: %s", directive)
			}
			start, i = next, next
			continue
		}

		if delimiter == ";" && token.GetTokenType() == parser.MySQLLexerSEMICOLON_SYMBOL {
			result = append(result, newStatement(stream, tokens, start, i))
			i++
			start = i
			continue
		}

		if token.GetChannel() != antlr.TokenDefaultChannel {
			i++
			continue
		}

		if next, ok := matchDelimiter(stream, i, delimiter); ok {
			s := newStatement(stream, tokens, start, i-1)
			s.Text += ";"
			s.End = tokenPosition(tokens[next-1])
			result = append(result, s)
			start, i = next, next
			continue
		}

		i++
	}

	if eof := len(tokens) - 1; start < eof {
		result = append(result, newStatement(stream, tokens, start, eof-1))
	}
	return result, nil
}

// matchDelimiter reports whether the tokens from pos spell delimiter, and
// the index following it.
func matchDelimiter(stream *antlr.CommonTokenStream, pos int, delimiter string) (int, bool) {
	matched := 0
	for i := pos; i < len(stream.GetAllTokens()); i++ {
		text := stream.GetTextFromInterval(antlr.Interval{Start: i, Stop: i})
		for j := 0; j < len(text); j++ {
			if matched >= len(delimiter) || text[j] != delimiter[matched] {
				return 0, false
			}
			matched++
			if matched == len(delimiter) {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// delimiterDirective returns the DELIMITER line starting at pos and the
// index of the first token after it.
func delimiterDirective(stream *antlr.CommonTokenStream, pos int) (int, string) {
	length := len(stream.GetAllTokens())
	for i := pos; i < length; i++ {
		t := stream.Get(i)
		if (t.GetTokenType() == parser.MySQLLexerWHITESPACE && t.GetText() == "\n") || t.GetTokenType() == antlr.TokenEOF {
			return i + 1, stream.GetTextFromTokens(stream.Get(pos), stream.Get(i-1))
		}
	}
	return length, stream.GetTextFromTokens(stream.Get(pos), stream.Get(length-1))
}

func splitByParser(lexer *parser.MySQLLexer, stream *antlr.CommonTokenStream) ([]Statement, error) {
	p := parser.NewMySQLParser(stream)
	lexerErrors := newErrorListener(0)
	lexer.RemoveErrorListeners()
	lexer.AddErrorListener(lexerErrors)
	parserErrors := newErrorListener(0)
	p.RemoveErrorListeners()
	p.AddErrorListener(parserErrors)
	p.BuildParseTrees = true

	tree := p.Script()
	if lexerErrors.err != nil {
		return nil, lexerErrors.err
	}
	if parserErrors.err != nil {
		return nil, parserErrors.err
	}

	var result []Statement
	tokens := stream.GetAllTokens()
	start := 0
	for _, semicolon := range tree.AllSEMICOLON_SYMBOL() {
		pos := semicolon.GetSymbol().GetTokenIndex()
		result = append(result, newStatement(stream, tokens, start, pos))
		start = pos + 1
	}
	if eof := len(tokens) - 1; start < eof {
		result = append(result, newStatement(stream, tokens, start, eof-1))
	}
	return result, nil
}

// newStatement builds the statement spanning tokens[first..last].
func newStatement(stream *antlr.CommonTokenStream, tokens []antlr.Token, first, last int) Statement {
	return Statement{
		Text:     stream.GetTextFromTokens(tokens[first], tokens[last]),
		BaseLine: tokens[first].GetLine() - 1,
		Start:    firstDefaultPosition(tokens[first:]),
		End:      tokenPosition(tokens[last]),
		Empty:    isEmpty(tokens[first : last+1]),
	}
}

func tokenPosition(token antlr.Token) Position {
	return Position{Line: token.GetLine() - 1, Column: token.GetColumn()}
}

func firstDefaultPosition(tokens []antlr.Token) Position {
	for _, token := range tokens {
		if token.GetChannel() == antlr.TokenDefaultChannel {
			return tokenPosition(token)
		}
	}
	return Position{}
}

// defaultTokenType returns the type of the offset-th default channel token
// counted from base, or EOF when running off either end.
func defaultTokenType(tokens []antlr.Token, base, offset int) int {
	step := 1
	if offset < 0 {
		step, offset = -1, -offset
	}
	current := base
	for offset > 0 {
		current += step
		if current < 0 || current >= len(tokens) {
			return antlr.TokenEOF
		}
		if tokens[current].GetChannel() == antlr.TokenDefaultChannel {
			offset--
		}
	}
	return tokens[current].GetTokenType()
}

func isEmpty(tokens []antlr.Token) bool {
	for _, token := range tokens {
		if token.GetChannel() == antlr.TokenDefaultChannel &&
			token.GetTokenType() != parser.MySQLLexerSEMICOLON_SYMBOL &&
			token.GetTokenType() != parser.MySQLParserEOF {
			return false
		}
	}
	return true
}
