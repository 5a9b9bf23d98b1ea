package instrumentor

import (
	"go/ast"
	"go/token"
	"strings"

	"golang.org/x/tools/go/ast/astutil"
)

// IsFunctionExported checks the comments preceding a function
// declaration for an //export directive.
func IsFunctionExported(group *ast.CommentGroup, name string) bool {
	if group == nil {
		return false
	}
	// No characters may precede or follow the directive.
	exportDeclaration := "//export " + name
	for _, comment := range group.List {
		if comment.Text == exportDeclaration {
			return true
		}
	}
	return false
}

// ExportsFunctions warns the caller that the .go file includes export
// directives in comments, which AST-rewriting may damage.
func ExportsFunctions(file *ast.File) bool {
	foundExport := false
	finder := func(cursor *astutil.Cursor) bool {
		if n, ok := cursor.Node().(*ast.FuncDecl); ok {
			if IsFunctionExported(n.Doc, n.Name.Name) {
				foundExport = true
				return false
			}
		}
		return true
	}

	astutil.Apply(file, finder, nil)
	return foundExport
}

// HasLinkname lets us exclude .go files that interact with other
// languages.
func HasLinkname(file *ast.File) bool {
	foundLinkname := false
	finder := func(cursor *astutil.Cursor) bool {
		if n, ok := cursor.Node().(*ast.FuncDecl); ok && n.Doc != nil {
			for _, comment := range n.Doc.List {
				if strings.Contains(comment.Text, "go:linkname") {
					foundLinkname = true
					return false
				}
			}
		}
		return true
	}

	astutil.Apply(file, finder, nil)
	return foundLinkname
}

// trimComments discards every comment that is not relevant to
// compilation. Inserted statements carry no positions, so keeping
// ordinary comments around would let the printer attach them to the
// wrong nodes; compiler directives in column 1 must survive, including
// the pre-go1.17 "// +build" constraint form the toolchain still honors.
func trimComments(file *ast.File, fset *token.FileSet) []*ast.CommentGroup {
	var comments []*ast.CommentGroup
	for _, group := range file.Comments {
		var list []*ast.Comment
		for _, comment := range group.List {
			if !compilationRelevantComment(comment.Text) {
				continue
			}
			if fset.Position(comment.Slash).Column == 1 {
				list = append(list, comment)
			}
		}
		if list != nil {
			comments = append(comments, &ast.CommentGroup{List: list})
		}
	}
	return comments
}

func compilationRelevantComment(text string) bool {
	return strings.HasPrefix(text, "//go:") || strings.HasPrefix(text, "// +build")
}
