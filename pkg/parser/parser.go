// Package parser wraps github.com/prataprc/goparsec, a parser-combinator
// library used here PEG-style: grammar rules are built by composing
// combinators (ordered choice, sequencing, repetition) instead of compiling
// a separate .peg grammar file. It exposes an ordered sequence of top-level
// declaration nodes, terminated by an explicit end-of-input marker that is
// skipped, matching spec.md's description of the parser-tree contract this
// compiler assumes.
//
// The AST shape produced here is internal to this package: fromAST walks it
// once, immediately, and converts it to pkg/ast types. Nothing downstream
// of Parser.Parse ever sees a goparsec node.
package parser

import (
	"fmt"
	"io"
	"os"
	"strconv"

	pc "github.com/prataprc/goparsec"

	"github.com/prog-lang/purec/pkg/ast"
)

// ----------------------------------------------------------------------------
// Parser Combinator(s)
//
// This section defines the Parser Combinator for every token & construct of
// the source language. Declarations, expressions and the lexical pieces
// that make them up are each one combinator; a "func" and a "call" share a
// parenthesized surface form, disambiguated by an explicit lambda marker
// (`\`) immediately after the opening paren so ordered choice can commit to
// one branch or backtrack into the other without any lookahead trickery.
//
// Concrete grammar (PEG-style, informative):
//
//	program <- decl* EOI
//	decl    <- UID "=" expr
//	expr    <- func / call / INT / IDENT
//	func    <- "(" "\" NAME* "->" expr ")"
//	call    <- "(" expr expr expr* ")"
//
// IDENT matches both a bare identifier and a dotted one (std.add, inc,
// forty_two alike): the grammar alone cannot tell a parameter reference
// (Name) apart from a reference to another top-level declaration or a
// std.* entry (ID), since both are written the same way at the call site.
// That decision is made while walking the parse tree (see handleExpr),
// against a stack of the parameter frames introduced by enclosing funcs —
// the same scoping pkg/ast.validateParameterScoping later re-checks.

var tree = pc.NewAST("purec", 0)

var (
	pLParen    = pc.Atom("(", "LPAREN")
	pRParen    = pc.Atom(")", "RPAREN")
	pAssign    = pc.Atom("=", "ASSIGN")
	pArrow     = pc.Atom("->", "ARROW")
	pLambda    = pc.Atom(`\`, "LAMBDA")
	pInt  = pc.Int()
	pUID  = pc.Token(`[a-z][a-zA-Z0-9_]*`, "UID")
	pName = pc.Token(`[a-z][a-zA-Z0-9_]*`, "NAME")
	// pIdent matches a reference occurrence: a bare identifier or a
	// dotted one, with no distinction at the lexical level. pName above
	// is reused only for a func's own parameter binders, which are
	// always bare.
	pIdent = pc.Token(`[a-z][a-zA-Z0-9_]*(\.[a-z][a-zA-Z0-9_]*)*`, "IDENT")
)

// pExpr is recursive (call/func both contain exprs). goparsec combinators
// are evaluated eagerly when the var block initializes, so a directly
// self-referencing var would be a compile-time initialization cycle;
// exprRef breaks the cycle by only dereferencing pExpr when it is actually
// invoked during parsing, by which point every package-level var has its
// final value.
var pExpr pc.Parser

func exprRef(s pc.Scanner) (pc.ParsecNode, pc.Scanner) { return pExpr(s) }

var (
	pFunc = tree.And("func", nil,
		pLParen, pLambda, tree.Kleene("params", nil, pName), pArrow, pc.Parser(exprRef), pRParen)

	pCall = tree.And("call", nil,
		pLParen, pc.Parser(exprRef), pc.Parser(exprRef), tree.Kleene("rest_args", nil, pc.Parser(exprRef)), pRParen)

	pDecl = tree.And("decl", nil, pUID, pAssign, pc.Parser(exprRef))

	// Grounded directly on the teacher's own top-level rule
	// (pkg/asm/parsing.go's pProgram, pkg/vm/parsing.go's pModule): repeat
	// the item combinator until the end-of-input predicate matches. pc.End
	// is zero-width and produces no node of its own, which is exactly
	// spec.md §4.1's "terminated by an end-of-input marker which is
	// skipped" — the marker gates the loop but never appears in the tree.
	pProgram = tree.ManyUntil("program", nil, pDecl, pc.End())
)

func init() {
	pExpr = tree.OrdChoice("expr", nil, pFunc, pCall, pInt, pIdent)
}

// ----------------------------------------------------------------------------
// Parser

// Parser adapts goparsec's textual front end to the declarations pkg/ast
// expects. It reads its whole input eagerly (this compiler is
// single-file-in, single-artifact-out; see SPEC_FULL.md §5) before parsing.
type Parser struct{ reader io.Reader }

// New returns a Parser reading from r.
func New(r io.Reader) Parser { return Parser{reader: r} }

// Parse reads the full input, builds the parse tree and converts it to a
// validated pkg/ast.AST. Kept for callers (tests, tooling) that just want a
// program and don't need to distinguish a malformed parse tree from a
// well-formed but semantically invalid one; pkg/compiler calls
// ParseDeclarations directly instead, so it can classify the two
// separately into its Syntax/Semantic error taxonomy.
func (p Parser) Parse() (*ast.AST, error) {
	decls, err := p.ParseDeclarations()
	if err != nil {
		return nil, err
	}
	return ast.New(decls)
}

// ParseDeclarations reads the full input and converts it to an ordered,
// unvalidated declaration list. Every failure returned here is a syntax
// error, per SPEC_FULL.md §4.1: this package never returns a semantic
// error, since it never runs pkg/ast's validation pass.
func (p Parser) ParseDeclarations() ([]ast.Declaration, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return nil, fmt.Errorf("cannot read from input: %w", err)
	}

	root, ok := p.fromSource(content)
	if !ok {
		return nil, fmt.Errorf("failed to parse program from input")
	}

	return p.fromAST(root)
}

// fromSource scans the textual input and returns a traversable parse tree.
// Honors the same debug feature flags as the rest of this corpus's
// goparsec-based front ends: PARSEC_DEBUG for verbose combinator tracing,
// EXPORT_AST to dump a Graphviz rendering, PRINT_AST to pretty-print to
// stdout.
func (p Parser) fromSource(source []byte) (pc.Queryable, bool) {
	if os.Getenv("PARSEC_DEBUG") != "" {
		tree.SetDebug()
	}

	root, scanner := tree.Parsewith(pProgram, pc.NewScanner(source))

	if os.Getenv("EXPORT_AST") != "" {
		if file, ferr := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER"))); ferr == nil {
			defer file.Close()
			file.Write([]byte(tree.Dotstring(`"purec AST"`)))
		}
	}
	if os.Getenv("PRINT_AST") != "" {
		tree.Prettyprint()
	}

	return root, root != nil && scanner.Endof()
}

// fromAST takes the root of the raw parse tree and produces the ordered
// declaration list pkg/ast.New expects. The root's children are the
// repeated "decl" matches collected by pProgram's ManyUntil; the
// terminating end-of-input predicate produced no node of its own to walk
// (see the pProgram doc comment).
func (p Parser) fromAST(root pc.Queryable) ([]ast.Declaration, error) {
	if root.GetName() != "program" {
		return nil, fmt.Errorf("expected node 'program', found %s", root.GetName())
	}

	children := root.GetChildren()
	decls := make([]ast.Declaration, 0, len(children))
	for _, node := range children {
		decl, err := p.handleDecl(node)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

// scope is the stack of parameter frames introduced by enclosing funcs,
// innermost last. It decides whether an IDENT node names a bound
// parameter (ast.Name) or a reference to something declared elsewhere
// (ast.ID). A nil/empty scope means "no enclosing func": every IDENT at
// that point is necessarily an ast.ID.
type scope []map[string]struct{}

func (s scope) bound(ident string) bool {
	for i := len(s) - 1; i >= 0; i-- {
		if _, ok := s[i][ident]; ok {
			return true
		}
	}
	return false
}

func (p Parser) handleDecl(node pc.Queryable) (ast.Declaration, error) {
	if node.GetName() != "decl" {
		return ast.Declaration{}, fmt.Errorf("expected node 'decl', found %s", node.GetName())
	}
	children := node.GetChildren()
	if len(children) != 3 {
		return ast.Declaration{}, fmt.Errorf("expected 'decl' with 3 children, got %d", len(children))
	}

	id := children[0].GetValue()
	expr, err := p.handleExpr(children[2], nil)
	if err != nil {
		return ast.Declaration{}, fmt.Errorf("declaration %q: %w", id, err)
	}
	return ast.Declaration{ID: id, Expr: expr}, nil
}

func (p Parser) handleExpr(node pc.Queryable, env scope) (ast.Expr, error) {
	switch node.GetName() {
	case "INT":
		value, err := strconv.ParseInt(node.GetValue(), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed int literal %q: %w", node.GetValue(), err)
		}
		return ast.Int{Value: int32(value)}, nil

	case "IDENT":
		ident := node.GetValue()
		if env.bound(ident) {
			return ast.Name{Ident: ident}, nil
		}
		return ast.ID{Qualified: ident}, nil

	case "call":
		return p.handleCall(node, env)

	case "func":
		return p.handleFunc(node, env)

	default:
		return nil, fmt.Errorf("unrecognized expression node %q", node.GetName())
	}
}

func (p Parser) handleCall(node pc.Queryable, env scope) (ast.Expr, error) {
	children := node.GetChildren()
	if len(children) != 5 {
		return nil, fmt.Errorf("expected 'call' with 5 children, got %d", len(children))
	}
	// children: "(" , head, first-arg, rest_args, ")"
	head, err := p.handleExpr(children[1], env)
	if err != nil {
		return nil, err
	}
	first, err := p.handleExpr(children[2], env)
	if err != nil {
		return nil, err
	}
	args := []ast.Expr{first}
	for _, argNode := range children[3].GetChildren() {
		arg, err := p.handleExpr(argNode, env)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return ast.Call{Func: head, Args: args}, nil
}

func (p Parser) handleFunc(node pc.Queryable, env scope) (ast.Expr, error) {
	children := node.GetChildren()
	if len(children) != 6 {
		return nil, fmt.Errorf("expected 'func' with 6 children, got %d", len(children))
	}
	// children: "(" , "\" , params, "->" , body, ")"
	params := make([]string, 0, len(children[2].GetChildren()))
	frame := make(map[string]struct{}, len(children[2].GetChildren()))
	for _, paramNode := range children[2].GetChildren() {
		params = append(params, paramNode.GetValue())
		frame[paramNode.GetValue()] = struct{}{}
	}
	body, err := p.handleExpr(children[4], append(env, frame))
	if err != nil {
		return nil, err
	}
	return ast.Func{Params: params, Body: body}, nil
}
