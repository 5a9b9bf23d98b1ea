package instrumentor

import (
	"fmt"
	"go/ast"
	"go/token"
)

// RuntimePackageAlias is the import alias under which every instrumented
// file refers to the coverage runtime. Underscore characters are
// considered bad style, which is exactly why they appear here: a
// collision with a package the target program already imports is less
// likely.
const RuntimePackageAlias = "__edgecov__"

// Names of the two shared symbols in the coverage runtime. They are
// declared once, by the runtime package; instrumented code only
// references them.
const (
	coverTabSymbol = "CoverTab"
	prevLocSymbol  = "PrevLoc"
)

func runtimeSymbol(name string) *ast.SelectorExpr {
	return &ast.SelectorExpr{
		X:   ast.NewIdent(RuntimePackageAlias),
		Sel: ast.NewIdent(name),
	}
}

func locationLiteral(loc uint16) *ast.BasicLit {
	return &ast.BasicLit{
		Kind:  token.INT,
		Value: fmt.Sprintf("0x%04x", loc),
	}
}

// edgeUpdate builds the statements inserted at a block's first insertion
// point, equivalent to:
//
//	__edgecov__.CoverTab[__edgecov__.PrevLoc^0xNNNN]++
//	__edgecov__.PrevLoc = 0xMMMM
//
// where 0xNNNN is the block's freshly assigned location and 0xMMMM is
// that location shifted right by one bit. The XOR of the stored previous
// location with the current one is the edge index; the shift before the
// store keeps the index asymmetric between the two directions of an
// edge, so a loop's forward and back edges land in different slots.
func edgeUpdate(loc uint16) []ast.Stmt {
	bump := &ast.IncDecStmt{
		X: &ast.IndexExpr{
			X: runtimeSymbol(coverTabSymbol),
			Index: &ast.BinaryExpr{
				X:  runtimeSymbol(prevLocSymbol),
				Op: token.XOR,
				Y:  locationLiteral(loc),
			},
		},
		Tok: token.INC,
	}
	store := &ast.AssignStmt{
		Lhs: []ast.Expr{runtimeSymbol(prevLocSymbol)},
		Tok: token.ASSIGN,
		Rhs: []ast.Expr{locationLiteral(loc >> 1)},
	}
	return []ast.Stmt{bump, store}
}

// isRuntimeSelector reports whether an expression is a reference to one
// of the coverage runtime's shared symbols.
func isRuntimeSelector(e ast.Expr, symbol string) bool {
	sel, selOk := e.(*ast.SelectorExpr)
	if !selOk {
		return false
	}
	if sel.X == nil || sel.Sel == nil {
		return false
	}
	x, xOk := sel.X.(*ast.Ident)
	if !xOk {
		return false
	}
	return x.Name == RuntimePackageAlias && sel.Sel.Name == symbol
}

// isEdgeUpdate recognizes the statements emitted by edgeUpdate. The
// walker can encounter statements it inserted ahead of itself, and the
// coverage bookkeeping must never itself be instrumented, so both
// emitted shapes are detected:
//
//	__edgecov__.CoverTab[...]++   (*ast.IncDecStmt)
//	__edgecov__.PrevLoc = ...     (*ast.AssignStmt)
func isEdgeUpdate(n ast.Node) bool {
	switch s := n.(type) {
	case *ast.IncDecStmt:
		idx, idxOk := s.X.(*ast.IndexExpr)
		if !idxOk {
			return false
		}
		return isRuntimeSelector(idx.X, coverTabSymbol)
	case *ast.AssignStmt:
		if len(s.Lhs) != 1 {
			return false
		}
		return isRuntimeSelector(s.Lhs[0], prevLocSymbol)
	}
	return false
}
