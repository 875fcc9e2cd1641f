package parser

import (
	"fmt"
	"strings"

	"github.com/andratr/bmtool1/domain"
)

type plsqlKind string

const (
	nodeUnit       plsqlKind = "unit"
	nodeSubprogram plsqlKind = "subprogram"
	nodePackage    plsqlKind = "package"
	nodeBlock      plsqlKind = "block"
	nodeIf         plsqlKind = "if_statement"
	nodeLoop       plsqlKind = "loop_statement"
	nodeCase       plsqlKind = "case_statement"
	nodeForall     plsqlKind = "forall_statement"
	nodeAssignment plsqlKind = "assignment"
	nodeInsert     plsqlKind = "insert_statement"
	nodeHandler    plsqlKind = "exception_handler"
	nodeStatement  plsqlKind = "statement"
)

// plsqlNode is a node of the PL/SQL syntax tree. Expressions and SQL
// clauses are not modelled; a node only records its kind, its byte span
// and its nested statements or declarations.
type plsqlNode struct {
	kind       plsqlKind
	start, end int
	children   []*plsqlNode
}

// sqlplusCommands are client commands that end at the line break rather
// than at a semicolon. They are only recognised between top-level units.
var sqlplusCommands = map[string]bool{
	"SET": true, "SHOW": true, "PROMPT": true, "SPOOL": true, "WHENEVER": true,
	"DEFINE": true, "UNDEFINE": true, "REM": true, "REMARK": true, "EXEC": true,
	"COLUMN": true, "CONNECT": true, "@": true, "@@": true,
}

// subprogramPrefixes may precede PROCEDURE or FUNCTION inside type bodies.
var subprogramPrefixes = map[string]bool{
	"MEMBER": true, "STATIC": true, "CONSTRUCTOR": true, "MAP": true, "ORDER": true,
	"OVERRIDING": true, "FINAL": true, "INSTANTIABLE": true,
}

// parsePLSQL builds the syntax tree of a PL/SQL source file.
func parsePLSQL(src []byte) (*plsqlNode, error) {
	toks, err := lexPLSQL(src)
	if err != nil {
		return nil, err
	}
	p := &plsqlParser{toks: toks}
	return p.parseFile(len(src))
}

type plsqlParser struct {
	toks  []token
	pos   int
	depth int
}

func (p *plsqlParser) peek() token { return p.toks[p.pos] }

func (p *plsqlParser) peekN(n int) token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *plsqlParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *plsqlParser) atEOF() bool { return p.peek().kind == tokEOF }

// lastEnd is the end offset of the most recently consumed token.
func (p *plsqlParser) lastEnd() int {
	if p.pos == 0 {
		return 0
	}
	return p.toks[p.pos-1].end
}

func (p *plsqlParser) malformed(t token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if t.kind == tokEOF {
		return fmt.Errorf("%w: line %d: %s at end of input", domain.ErrMalformedSource, t.line, msg)
	}
	return fmt.Errorf("%w: line %d: %s near %q", domain.ErrMalformedSource, t.line, msg, t.text)
}

func (p *plsqlParser) expectWord(word string) (token, error) {
	t := p.peek()
	if !t.is(word) {
		return t, p.malformed(t, "expected %s", word)
	}
	return p.next(), nil
}

func (p *plsqlParser) expectSemicolon() error {
	if t := p.peek(); !t.isOp(";") {
		return p.malformed(t, "expected ';'")
	}
	p.next()
	return nil
}

func (p *plsqlParser) atAny(words []string) bool {
	t := p.peek()
	for _, w := range words {
		if t.is(w) {
			return true
		}
	}
	return false
}

// skipUntilWord consumes tokens until one of stop appears outside
// parentheses and CASE expressions. The stop word is not consumed.
func (p *plsqlParser) skipUntilWord(stop ...string) error {
	parens, cases := 0, 0
	for {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			return p.malformed(t, "expected %s", strings.Join(stop, " or "))
		case parens == 0 && cases == 0 && p.atAny(stop):
			return nil
		case t.isOp("("):
			parens++
		case t.isOp(")"):
			if parens == 0 {
				return p.malformed(t, "unbalanced ')'")
			}
			parens--
		case t.isOp(";") && parens == 0:
			return p.malformed(t, "expected %s", strings.Join(stop, " or "))
		case t.is("CASE"):
			cases++
		case t.is("END"):
			if cases == 0 {
				return p.malformed(t, "expected %s", strings.Join(stop, " or "))
			}
			cases--
		}
		p.next()
	}
}

// skipStatement consumes tokens through the terminating ';'. It returns
// the end offset of the last token before the ';' and whether a ':='
// appeared at the top nesting level. At the top level of a script the
// final statement may end at end of input.
func (p *plsqlParser) skipStatement() (end int, assigns bool, err error) {
	parens, cases := 0, 0
	for {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			if p.depth == 0 && parens == 0 && cases == 0 {
				return p.lastEnd(), assigns, nil
			}
			return 0, false, p.malformed(t, "expected ';'")
		case t.isOp(";") && parens == 0:
			end = p.lastEnd()
			p.next()
			return end, assigns, nil
		case t.isOp("("):
			parens++
		case t.isOp(")"):
			if parens == 0 {
				return 0, false, p.malformed(t, "unbalanced ')'")
			}
			parens--
		case t.isOp(":=") && parens == 0 && cases == 0:
			assigns = true
		case t.is("CASE"):
			cases++
		case t.is("END"):
			if cases == 0 {
				return 0, false, p.malformed(t, "expected ';'")
			}
			cases--
		}
		p.next()
	}
}

func (p *plsqlParser) parseFile(size int) (*plsqlNode, error) {
	root := &plsqlNode{kind: nodeUnit, start: 0, end: size}
	for !p.atEOF() {
		t := p.peek()
		switch {
		case t.isOp("/") || t.isOp(";"):
			p.next()
			continue
		case sqlplusCommands[t.upper]:
			p.skipLine()
			continue
		}

		var (
			n   *plsqlNode
			err error
		)
		if t.is("CREATE") {
			n, err = p.parseCreate()
		} else {
			n, err = p.parseStatement()
		}
		if err != nil {
			return nil, err
		}
		if n != nil {
			root.children = append(root.children, n)
		}
	}
	return root, nil
}

func (p *plsqlParser) skipLine() {
	line := p.peek().line
	for !p.atEOF() && p.peek().line == line {
		p.next()
	}
}

func (p *plsqlParser) parseCreate() (*plsqlNode, error) {
	start := p.next()
	if p.peek().is("OR") {
		p.next()
		if _, err := p.expectWord("REPLACE"); err != nil {
			return nil, err
		}
	}
	for p.atAny([]string{"EDITIONABLE", "NONEDITIONABLE", "EDITIONING"}) {
		p.next()
	}

	switch t := p.peek(); {
	case t.is("PROCEDURE") || t.is("FUNCTION"):
		return p.parseSubprogram(start)
	case t.is("PACKAGE"):
		p.next()
		if p.peek().is("BODY") {
			p.next()
		}
		return p.parsePackage(start)
	case t.is("TYPE") && p.peekN(1).is("BODY"):
		p.next()
		p.next()
		return p.parsePackage(start)
	case t.is("TRIGGER"):
		return p.parseTrigger(start)
	}

	end, _, err := p.skipStatement()
	if err != nil {
		return nil, err
	}
	return &plsqlNode{kind: nodeStatement, start: start.start, end: end}, nil
}

// parsePackage parses a package or type specification or body from its
// name up to the closing END.
func (p *plsqlParser) parsePackage(start token) (*plsqlNode, error) {
	if err := p.skipUntilWord("IS", "AS"); err != nil {
		return nil, err
	}
	p.next()

	n := &plsqlNode{kind: nodePackage, start: start.start}
	decls, err := p.parseDeclarations()
	if err != nil {
		return nil, err
	}
	n.children = decls

	if p.peek().is("BEGIN") {
		body, err := p.parseBody(p.next())
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, body)
	} else if err := p.parseEnd(); err != nil {
		return nil, err
	}
	n.end = p.lastEnd()
	return n, nil
}

func (p *plsqlParser) parseTrigger(start token) (*plsqlNode, error) {
	if err := p.skipUntilWord("DECLARE", "BEGIN"); err != nil {
		return nil, err
	}
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &plsqlNode{kind: nodeSubprogram, start: start.start, end: block.end, children: []*plsqlNode{block}}, nil
}

// parseSubprogram parses a procedure or function. Forward declarations
// and specification entries yield a nil node.
func (p *plsqlParser) parseSubprogram(start token) (*plsqlNode, error) {
	p.next()
	parens := 0
	for {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			return nil, p.malformed(t, "expected IS or AS")
		case t.isOp("("):
			parens++
		case t.isOp(")"):
			if parens == 0 {
				return nil, p.malformed(t, "unbalanced ')'")
			}
			parens--
		case parens == 0 && t.isOp(";"):
			p.next()
			return nil, nil
		case parens == 0 && t.is("AS") && p.peekN(1).is("RESULT"):
			// RETURN SELF AS RESULT of a type constructor
			p.next()
		case parens == 0 && (t.is("IS") || t.is("AS")):
			p.next()
			return p.parseSubprogramBody(start)
		}
		p.next()
	}
}

func (p *plsqlParser) parseSubprogramBody(start token) (*plsqlNode, error) {
	n := &plsqlNode{kind: nodeSubprogram, start: start.start}
	if p.peek().is("LANGUAGE") || p.peek().is("EXTERNAL") {
		end, _, err := p.skipStatement()
		if err != nil {
			return nil, err
		}
		n.end = end
		return n, nil
	}

	decls, err := p.parseDeclarations()
	if err != nil {
		return nil, err
	}
	begin, err := p.expectWord("BEGIN")
	if err != nil {
		return nil, err
	}
	body, err := p.parseBody(begin)
	if err != nil {
		return nil, err
	}
	n.children = append(decls, body)
	n.end = body.end
	return n, nil
}

// parseDeclarations parses a declare section up to BEGIN or END. Only
// nested subprograms produce nodes.
func (p *plsqlParser) parseDeclarations() ([]*plsqlNode, error) {
	var out []*plsqlNode
	for {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			return nil, p.malformed(t, "expected BEGIN or END")
		case t.is("BEGIN") || t.is("END"):
			return out, nil
		case subprogramPrefixes[t.upper]:
			p.next()
		case t.is("NOT") && p.peekN(1).is("INSTANTIABLE"):
			p.next()
		case t.is("PROCEDURE") || t.is("FUNCTION"):
			n, err := p.parseSubprogram(t)
			if err != nil {
				return nil, err
			}
			if n != nil {
				out = append(out, n)
			}
		default:
			if _, _, err := p.skipStatement(); err != nil {
				return nil, err
			}
		}
	}
}

// parseBody parses from after BEGIN through END [label] ';'.
func (p *plsqlParser) parseBody(begin token) (*plsqlNode, error) {
	p.depth++
	defer func() { p.depth-- }()

	n := &plsqlNode{kind: nodeBlock, start: begin.start}
	stmts, err := p.parseStatements("END", "EXCEPTION")
	if err != nil {
		return nil, err
	}
	n.children = stmts

	if p.peek().is("EXCEPTION") {
		p.next()
		if !p.peek().is("WHEN") {
			return nil, p.malformed(p.peek(), "expected WHEN")
		}
		for p.peek().is("WHEN") {
			h, err := p.parseHandler()
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, h)
		}
	}

	if err := p.parseEnd(); err != nil {
		return nil, err
	}
	n.end = p.lastEnd()
	return n, nil
}

// parseEnd consumes END, an optional trailing label and the ';'.
func (p *plsqlParser) parseEnd() error {
	if _, err := p.expectWord("END"); err != nil {
		return err
	}
	for t := p.peek(); t.kind == tokWord || t.kind == tokQuotedIdent; t = p.peek() {
		p.next()
	}
	return p.expectSemicolon()
}

func (p *plsqlParser) parseHandler() (*plsqlNode, error) {
	when := p.next()
	if err := p.skipUntilWord("THEN"); err != nil {
		return nil, err
	}
	p.next()

	n := &plsqlNode{kind: nodeHandler, start: when.start}
	stmts, err := p.parseStatements("WHEN", "END")
	if err != nil {
		return nil, err
	}
	n.children = stmts
	n.end = p.lastEnd()
	return n, nil
}

// parseStatements parses statements until one of stop is next. Labels
// are skipped.
func (p *plsqlParser) parseStatements(stop ...string) ([]*plsqlNode, error) {
	var out []*plsqlNode
	for {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			return nil, p.malformed(t, "expected %s", strings.Join(stop, " or "))
		case p.atAny(stop):
			return out, nil
		case t.isOp("<<"):
			if err := p.skipLabel(); err != nil {
				return nil, err
			}
			continue
		}
		n, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, n)
		}
	}
}

func (p *plsqlParser) skipLabel() error {
	p.next()
	for !p.peek().isOp(">>") {
		if t := p.peek(); t.kind == tokEOF || t.isOp(";") {
			return p.malformed(t, "unterminated label")
		}
		p.next()
	}
	p.next()
	return nil
}

func (p *plsqlParser) parseStatement() (*plsqlNode, error) {
	switch t := p.peek(); {
	case t.is("IF"):
		return p.parseIf()
	case t.is("LOOP") || t.is("WHILE") || t.is("FOR"):
		return p.parseLoop()
	case t.is("CASE"):
		return p.parseCase()
	case t.is("DECLARE") || t.is("BEGIN"):
		return p.parseBlock()
	case t.is("FORALL"):
		return p.parseForall()
	case t.is("INSERT"):
		return p.parseSimple(nodeInsert)
	}
	return p.parseSimple(nodeStatement)
}

// parseSimple parses a statement that has no nested statements. Its span
// excludes the terminating ';'. A generic statement whose top level holds
// ':=' is an assignment.
func (p *plsqlParser) parseSimple(kind plsqlKind) (*plsqlNode, error) {
	first := p.peek()
	end, assigns, err := p.skipStatement()
	if err != nil {
		return nil, err
	}
	if kind == nodeStatement && assigns && (first.kind == tokWord || first.kind == tokQuotedIdent || first.isOp(":")) {
		kind = nodeAssignment
	}
	return &plsqlNode{kind: kind, start: first.start, end: end}, nil
}

func (p *plsqlParser) parseBlock() (*plsqlNode, error) {
	start := p.peek()
	if !start.is("DECLARE") {
		return p.parseBody(p.next())
	}
	p.next()
	decls, err := p.parseDeclarations()
	if err != nil {
		return nil, err
	}
	begin, err := p.expectWord("BEGIN")
	if err != nil {
		return nil, err
	}
	body, err := p.parseBody(begin)
	if err != nil {
		return nil, err
	}
	return &plsqlNode{kind: nodeBlock, start: start.start, end: body.end, children: append(decls, body)}, nil
}

// parseIf parses IF ... END IF. The span ends at END IF, without the ';'.
func (p *plsqlParser) parseIf() (*plsqlNode, error) {
	n := &plsqlNode{kind: nodeIf, start: p.next().start}
	for {
		if err := p.skipUntilWord("THEN"); err != nil {
			return nil, err
		}
		p.next()
		stmts, err := p.parseStatements("ELSIF", "ELSE", "END")
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, stmts...)
		if !p.peek().is("ELSIF") {
			break
		}
		p.next()
	}

	if p.peek().is("ELSE") {
		p.next()
		stmts, err := p.parseStatements("END")
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, stmts...)
	}

	if _, err := p.expectWord("END"); err != nil {
		return nil, err
	}
	closing, err := p.expectWord("IF")
	if err != nil {
		return nil, err
	}
	n.end = closing.end
	return n, p.expectSemicolon()
}

func (p *plsqlParser) parseLoop() (*plsqlNode, error) {
	n := &plsqlNode{kind: nodeLoop, start: p.peek().start}
	if !p.peek().is("LOOP") {
		p.next()
		if err := p.skipUntilWord("LOOP"); err != nil {
			return nil, err
		}
	}
	p.next()

	stmts, err := p.parseStatements("END")
	if err != nil {
		return nil, err
	}
	n.children = stmts

	p.next()
	closing, err := p.expectWord("LOOP")
	if err != nil {
		return nil, err
	}
	n.end = closing.end
	if t := p.peek(); t.kind == tokWord {
		p.next()
	}
	return n, p.expectSemicolon()
}

func (p *plsqlParser) parseCase() (*plsqlNode, error) {
	n := &plsqlNode{kind: nodeCase, start: p.next().start}
	if !p.peek().is("WHEN") {
		if err := p.skipUntilWord("WHEN"); err != nil {
			return nil, err
		}
	}

	for p.peek().is("WHEN") {
		p.next()
		if err := p.skipUntilWord("THEN"); err != nil {
			return nil, err
		}
		p.next()
		stmts, err := p.parseStatements("WHEN", "ELSE", "END")
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, stmts...)
	}
	if p.peek().is("ELSE") {
		p.next()
		stmts, err := p.parseStatements("END")
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, stmts...)
	}

	if _, err := p.expectWord("END"); err != nil {
		return nil, err
	}
	closing, err := p.expectWord("CASE")
	if err != nil {
		return nil, err
	}
	n.end = closing.end
	if t := p.peek(); t.kind == tokWord {
		p.next()
	}
	return n, p.expectSemicolon()
}

// parseForall parses FORALL bounds followed by a single DML statement,
// which becomes the only child.
func (p *plsqlParser) parseForall() (*plsqlNode, error) {
	start := p.next()
	if err := p.skipUntilWord("INSERT", "UPDATE", "DELETE", "MERGE", "EXECUTE"); err != nil {
		return nil, err
	}
	dml, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &plsqlNode{kind: nodeForall, start: start.start, end: dml.end, children: []*plsqlNode{dml}}, nil
}
