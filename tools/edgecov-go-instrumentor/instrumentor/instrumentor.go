package instrumentor

import (
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"strings"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/edgecov/edgecov-go/random"
	"github.com/edgecov/edgecov-go/tools/edgecov-go-instrumentor/common"
)

// Config carries the operator-supplied knobs for one instrumentation
// run. Validation happens once, at construction; the per-block gates
// are total functions with no failure path.
type Config struct {
	Whitelist Whitelist
	Ratio     int   // percentage of eligible blocks to instrument, 1..100
	Seed      int64 // 0 draws a fresh seed from OS entropy
}

func (c Config) Validate() error {
	if c.Ratio < 1 || c.Ratio > 100 {
		return fmt.Errorf("instrumentation ratio must be between 1 and 100 (got %d)", c.Ratio)
	}
	return nil
}

// Instrumentor rewrites one Go source file at a time, inserting a
// coverage-map update at the head of every basic source block that
// passes the whitelist and sampling gates.
type Instrumentor struct {
	fset      *token.FileSet
	logWriter *common.LogWriter
	whitelist Whitelist
	ratio     int
	stream    *random.Stream
	basePath  string
	fullName  string
	funcStack Stack
	nodeStack Stack
	Table     *LocationTable
	Records   []LocationRecord

	// InstrumentedLocations counts every site that received an edge
	// update, across all files this Instrumentor has visited.
	InstrumentedLocations int
}

// CreateInstrumentor is the factory method. A Config that fails
// validation is a fatal startup error: a misconfigured coverage build
// must not quietly produce a partially instrumented binary.
func CreateInstrumentor(basePath string, cfg Config, table *LocationTable) *Instrumentor {
	logWriter := common.GetLogWriter()
	if err := cfg.Validate(); err != nil {
		logWriter.Fatalf("%v", err)
	}
	if len(basePath) > 0 {
		basePath = basePath + "/"
	}
	return &Instrumentor{
		basePath:  basePath,
		fset:      token.NewFileSet(),
		logWriter: logWriter,
		whitelist: cfg.Whitelist,
		ratio:     cfg.Ratio,
		stream:    random.NewStream(cfg.Seed),
		Table:     table,
	}
}

// Stream exposes the draw source so callers can verify how many values
// instrumentation decisions consumed.
func (i *Instrumentor) Stream() *random.Stream {
	return i.stream
}

// Instrument rewrites the file at path and returns the instrumented
// source. Errors should be logged but are generally not fatal, since
// the input file can simply be copied to the output uninstrumented. An
// empty string with a nil error means the file received no sites and
// should be copied as-is.
func (i *Instrumentor) Instrument(path string) (string, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return i.InstrumentSource(path, string(bytes))
}

// InstrumentSource is Instrument for source already in memory.
func (i *Instrumentor) InstrumentSource(path, sourceCode string) (string, error) {
	f, err := parser.ParseFile(i.fset, path, sourceCode, parser.ParseComments)
	if err != nil {
		return "", err
	}

	if ExportsFunctions(f) {
		i.logWriter.Printf("File %s exports functions, and will not be instrumented", path)
		return "", nil
	}
	if HasLinkname(f) {
		i.logWriter.Printf("File %s uses go:linkname, and will not be instrumented", path)
		return "", nil
	}

	i.fullName = path
	startingCount := i.InstrumentedLocations

	f.Comments = trimComments(f, i.fset)

	ast.Walk(i, f)

	if i.InstrumentedLocations == startingCount {
		if i.logWriter.VerboseLevel(1) {
			i.logWriter.Printf("File %s has no code to be instrumented, and will simply be copied", path)
		}
		return "", nil
	}

	// One reference to the runtime per file, shared by every site in it.
	astutil.AddNamedImport(i.fset, f, RuntimePackageAlias, common.CoveragePackageName())

	return i.formatInstrumentedAst(path, f)
}

// visitBlock runs the per-block pipeline: whitelist, sampling,
// location assignment, emission. It returns nil when the block is to
// be skipped; a skipped block consumes no location identifier.
func (i *Instrumentor) visitBlock(pos token.Pos) []ast.Stmt {
	origin := resolveOrigin(i.fset, pos)
	if !i.whitelist.Permits(origin) {
		return nil
	}
	if !i.sampleBlock() {
		return nil
	}

	loc := i.nextLocation()
	i.recordLocation(origin, loc)
	i.InstrumentedLocations++
	return edgeUpdate(loc)
}

func (i *Instrumentor) recordLocation(origin Origin, loc uint16) {
	fname := common.NAME_NOT_AVAILABLE
	if top, ok := i.funcStack.Peek(); ok {
		if decl, isDecl := top.(*ast.FuncDecl); isDecl {
			fname = decl.Name.Name
		}
	}
	// Recorded paths are relative to the instrumented module, so the
	// artifacts compare equal across build hosts.
	record := LocationRecord{
		Path:     strings.TrimPrefix(origin.Filename, i.basePath),
		Function: fname,
		Line:     origin.Line,
		Column:   origin.Column,
		Location: loc,
	}
	if !origin.Known {
		record.Path = strings.TrimPrefix(i.fullName, i.basePath)
	}
	i.Records = append(i.Records, record)
	if i.Table != nil {
		if err := i.Table.WriteRecord(record); err != nil {
			i.logWriter.Fatalf("Could not write location table line: %s", err.Error())
		}
	}
}

// Visit is the ast.Visitor hook. The traversal order is the source
// order of the file, which keeps instrumentation deterministic for a
// fixed seed.
func (i *Instrumentor) Visit(node ast.Node) ast.Visitor {
	if node == nil {
		top, _ := i.nodeStack.Pop()
		if _, isDecl := top.(*ast.FuncDecl); isDecl {
			i.funcStack.Pop()
		}
		return i
	}

	// The walker can encounter statements it inserted ahead of itself.
	// The coverage bookkeeping is never instrumented again.
	if isEdgeUpdate(node) {
		return nil
	}

	switch n := node.(type) {
	case *ast.FuncDecl:
		if n.Name.String() == "init" {
			// init runs regardless of what the fuzzer does, so the
			// edges in it are just noise.
			return nil
		}
	case *ast.GenDecl:
		if n.Tok != token.VAR {
			return nil // constants and types carry no control flow
		}
	case *ast.BlockStmt:
		// If it's a switch or select, the body is a list of case
		// clauses; don't tag the block itself.
		if len(n.List) > 0 {
			switch n.List[0].(type) {
			case *ast.CaseClause: // switch
				for _, stmt := range n.List {
					clause := stmt.(*ast.CaseClause)
					clause.Body = i.instrumentSegments(clause.Pos(), clause.End(), clause.Body, false)
				}
				i.nodeStack.Push(node)
				return i
			case *ast.CommClause: // select
				for _, stmt := range n.List {
					clause := stmt.(*ast.CommClause)
					clause.Body = i.instrumentSegments(clause.Pos(), clause.End(), clause.Body, false)
				}
				i.nodeStack.Push(node)
				return i
			}
		}
		n.List = i.instrumentSegments(n.Lbrace, n.Rbrace+1, n.List, true) // +1 to step past closing brace
	case *ast.IfStmt:
		if n.Init != nil {
			ast.Walk(i, n.Init)
		}
		if n.Cond != nil {
			ast.Walk(i, n.Cond)
		}
		ast.Walk(i, n.Body)
		if n.Else == nil {
			// Add an else so the "not taken" edge exists.
			n.Else = &ast.BlockStmt{
				Lbrace: n.Body.End(),
				Rbrace: n.Body.End(),
			}
		}
		switch stmt := n.Else.(type) {
		case *ast.IfStmt:
			n.Else = &ast.BlockStmt{
				Lbrace: n.Body.End(),
				List:   []ast.Stmt{stmt},
				Rbrace: stmt.End(),
			}
		case *ast.BlockStmt:
			stmt.Lbrace = n.Body.End()
		default:
			i.logWriter.Fatalf("Unexpected node type in if: %v (%T)", n, n)
		}
		ast.Walk(i, n.Else)
		return nil
	case *ast.SelectStmt:
		// Don't annotate an empty select - creates a syntax error.
		if n.Body == nil || len(n.Body.List) == 0 {
			return nil
		}
	case *ast.SwitchStmt:
		if n.Body == nil {
			n.Body = new(ast.BlockStmt)
		}
		hasDefault := false
		for _, s := range n.Body.List {
			if cas, ok := s.(*ast.CaseClause); ok && cas.List == nil {
				hasDefault = true
				break
			}
		}
		if !hasDefault {
			// Add a default case so the fall-through edge is visible.
			n.Body.List = append(n.Body.List, &ast.CaseClause{})
		}
		if len(n.Body.List) == 0 {
			return nil
		}
	case *ast.TypeSwitchStmt:
		// Don't annotate an empty type switch - creates a syntax error.
		if n.Body == nil || len(n.Body.List) == 0 {
			return nil
		}
	case *ast.BinaryExpr:
		if n.Op == token.LAND || n.Op == token.LOR {
			// Wrap the right operand in a closure so short-circuit
			// evaluation gets its own block, and its own edge. The
			// comparison with the intrinsic "true" works around
			// specialized Boolean types rejecting the closure result.
			compareYToTrue := &ast.BinaryExpr{X: n.Y, OpPos: n.Y.End(), Op: token.EQL, Y: ast.NewIdent("true")}
			closure := &ast.FuncLit{
				Type: &ast.FuncType{Results: &ast.FieldList{List: []*ast.Field{{Type: ast.NewIdent("bool")}}}},
				Body: &ast.BlockStmt{Lbrace: n.Y.End(), List: []ast.Stmt{&ast.ReturnStmt{Results: []ast.Expr{compareYToTrue}}}, Rbrace: n.OpPos},
			}
			call := &ast.CallExpr{
				Lparen: n.Y.End(),
				Fun:    closure,
				Rparen: n.Y.End(),
			}
			n.Y = &ast.BinaryExpr{X: call, OpPos: n.Y.End(), Op: token.EQL, Y: ast.NewIdent("true")}
		}
	case *ast.BadExpr:
		i.logWriter.Fatalf("Invalid input: %v (%T)", node, node)
	case *ast.BadDecl:
		i.logWriter.Fatalf("Invalid input: %v (%T)", node, node)
	}

	if _, isDecl := node.(*ast.FuncDecl); isDecl {
		i.funcStack.Push(node)
	}
	i.nodeStack.Push(node)
	return i
}

// instrumentSegments splits a statement list into basic source blocks
// and offers each block's first insertion point to the per-block
// pipeline. A statement that affects the flow of control ends the
// current block.
func (i *Instrumentor) instrumentSegments(pos, blockEnd token.Pos, list []ast.Stmt, extendToClosingBrace bool) []ast.Stmt {
	// Special case: an empty block is still a block. Can't fold this
	// into the loop below or a counter would land after a return
	// statement.
	if len(list) == 0 {
		return i.visitBlock(pos)
	}

	var newList []ast.Stmt
	for {
		var last int
		end := blockEnd
		for last = 0; last < len(list); last++ {
			end = i.statementBoundary(list[last])
			if endsBasicSourceBlock(list[last]) {
				extendToClosingBrace = false // block is broken up now
				last++
				break
			}
		}
		if extendToClosingBrace {
			end = blockEnd
		}
		if pos != end { // can have no source to cover if e.g. blocks abut
			newList = append(newList, i.visitBlock(pos)...)
		}
		newList = append(newList, list[0:last]...)
		list = list[last:]
		if len(list) == 0 {
			break
		}
		pos = list[0].Pos()
	}
	return newList
}

// statementBoundary returns the position past which counters in this
// statement's block would be miscounted, per the go cover lineage.
func (i *Instrumentor) statementBoundary(s ast.Stmt) token.Pos {
	switch s := s.(type) {
	case *ast.BlockStmt:
		// Treat blocks like basic blocks to avoid overlapping counters.
		return s.Lbrace
	case *ast.IfStmt:
		if found, pos := hasFuncLiteral(s.Init); found {
			return pos
		}
		if found, pos := hasFuncLiteral(s.Cond); found {
			return pos
		}
		return s.Body.Lbrace
	case *ast.ForStmt:
		if found, pos := hasFuncLiteral(s.Init); found {
			return pos
		}
		if found, pos := hasFuncLiteral(s.Cond); found {
			return pos
		}
		if found, pos := hasFuncLiteral(s.Post); found {
			return pos
		}
		return s.Body.Lbrace
	case *ast.LabeledStmt:
		return i.statementBoundary(s.Stmt)
	case *ast.RangeStmt:
		if found, pos := hasFuncLiteral(s.X); found {
			return pos
		}
		return s.Body.Lbrace
	case *ast.SwitchStmt:
		if found, pos := hasFuncLiteral(s.Init); found {
			return pos
		}
		if found, pos := hasFuncLiteral(s.Tag); found {
			return pos
		}
		return s.Body.Lbrace
	case *ast.SelectStmt:
		return s.Body.Lbrace
	case *ast.TypeSwitchStmt:
		if found, pos := hasFuncLiteral(s.Init); found {
			return pos
		}
		return s.Body.Lbrace
	}
	if found, pos := hasFuncLiteral(s); found {
		return pos
	}
	return s.End()
}

func endsBasicSourceBlock(s ast.Stmt) bool {
	switch s := s.(type) {
	case *ast.BlockStmt:
		return true
	case *ast.BranchStmt:
		return true
	case *ast.ForStmt:
		return true
	case *ast.IfStmt:
		return true
	case *ast.LabeledStmt:
		return endsBasicSourceBlock(s.Stmt)
	case *ast.RangeStmt:
		return true
	case *ast.SwitchStmt:
		return true
	case *ast.SelectStmt:
		return true
	case *ast.TypeSwitchStmt:
		return true
	case *ast.ExprStmt:
		// Calls to panic change the flow. We really should verify that
		// "panic" is the predefined function, but without type checking
		// we can't, and the likelihood of it being an actual problem is
		// vanishingly small.
		if call, ok := s.X.(*ast.CallExpr); ok {
			if ident, ok := call.Fun.(*ast.Ident); ok && ident.Name == "panic" && len(call.Args) == 1 {
				return true
			}
		}
	}
	found, _ := hasFuncLiteral(s)
	return found
}

type functionLiteralFinder token.Pos

func (f *functionLiteralFinder) Visit(node ast.Node) ast.Visitor {
	if f.found() {
		return nil // prune search
	}
	if n, ok := node.(*ast.FuncLit); ok {
		*f = functionLiteralFinder(n.Body.Lbrace)
		return nil
	}
	return f
}

func (f *functionLiteralFinder) found() bool {
	return token.Pos(*f) != token.NoPos
}

func hasFuncLiteral(n ast.Node) (bool, token.Pos) {
	if n == nil {
		return false, 0
	}
	var literal functionLiteralFinder
	ast.Walk(&literal, n)
	return literal.found(), token.Pos(literal)
}

func (i *Instrumentor) formatInstrumentedAst(inputPath string, astFile *ast.File) (string, error) {
	writer := strings.Builder{}
	if err := format.Node(&writer, i.fset, astFile); err != nil {
		i.logWriter.Printf("Error: Could not write instrumented AST from %s: %v", inputPath, err)
		return "", err
	}

	source := writer.String()
	if _, err := parser.ParseFile(&token.FileSet{}, inputPath, source, parser.ParseComments); err != nil {
		i.logWriter.Printf("Error: Instrumented source for %s could not be parsed; simply copying original: %s", inputPath, err)
		return "", err
	}

	return source, nil
}
