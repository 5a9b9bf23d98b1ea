package instrumentor

import (
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/edgecov/edgecov-go/coverage"
	"github.com/edgecov/edgecov-go/random"
)

func renderStmt(t *testing.T, s ast.Stmt) string {
	t.Helper()
	var buf strings.Builder
	if err := format.Node(&buf, token.NewFileSet(), s); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestEdgeUpdateShape(t *testing.T) {
	stmts := edgeUpdate(0x41ce)
	qt.Assert(t, qt.HasLen(stmts, 2))

	qt.Assert(t, qt.Equals(renderStmt(t, stmts[0]),
		"__edgecov__.CoverTab[__edgecov__.PrevLoc^0x41ce]++"))

	// The stored value is the location shifted right by one bit.
	qt.Assert(t, qt.Equals(renderStmt(t, stmts[1]),
		"__edgecov__.PrevLoc = 0x20e7"))
}

func TestIsEdgeUpdateRecognizesEmittedStatements(t *testing.T) {
	for _, s := range edgeUpdate(0x0001) {
		qt.Assert(t, qt.IsTrue(isEdgeUpdate(s)))
	}
	for _, s := range edgeUpdate(0xffff) {
		qt.Assert(t, qt.IsTrue(isEdgeUpdate(s)))
	}
}

func TestIsEdgeUpdateIgnoresLookalikes(t *testing.T) {
	const src = `package demo

func f(counters []byte, prev uint16) {
	counters[prev^0x0001]++
	prev = 0x0002
	other.CoverTab[prev]++
}
`
	f, err := parser.ParseFile(token.NewFileSet(), "demo.go", src, 0)
	if err != nil {
		t.Fatal(err)
	}
	body := f.Decls[0].(*ast.FuncDecl).Body
	for _, s := range body.List {
		qt.Assert(t, qt.IsFalse(isEdgeUpdate(s)))
	}
}

func TestEdgeIndexDirectionAsymmetry(t *testing.T) {
	stream := random.NewStream(7)

	const samples = 10000
	symmetric := 0
	for k := 0; k < samples; k++ {
		a := uint16(stream.Intn(coverage.MapSize))
		b := uint16(stream.Intn(coverage.MapSize))

		forward := (a >> 1) ^ b
		backward := (b >> 1) ^ a
		if forward == backward {
			symmetric++
		}
	}

	// Without the shift every pair would collide, since XOR commutes.
	// With it, the two directions of an edge almost always land in
	// different map slots.
	qt.Assert(t, qt.IsTrue(symmetric*100 < samples))
}
