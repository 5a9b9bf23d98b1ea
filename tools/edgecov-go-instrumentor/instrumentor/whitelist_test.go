package instrumentor

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-quicktest/qt"
)

func TestWhitelistSuffixMatching(t *testing.T) {
	w := Whitelist{"foo.c", "bar/baz.c"}

	qt.Assert(t, qt.IsTrue(w.Permits(Origin{Filename: "/src/foo.c", Known: true})))
	qt.Assert(t, qt.IsTrue(w.Permits(Origin{Filename: "/x/bar/baz.c", Known: true})))

	// Suffix match, not substring match: the comparison anchors at the
	// filename's tail.
	qt.Assert(t, qt.IsFalse(w.Permits(Origin{Filename: "/src/foobar.c", Known: true})))
	qt.Assert(t, qt.IsFalse(w.Permits(Origin{Filename: "/x/baz.c", Known: true})))
}

func TestEmptyWhitelistPermitsEverything(t *testing.T) {
	var w Whitelist
	qt.Assert(t, qt.IsTrue(w.Permits(Origin{Filename: "/anything/at/all.go", Known: true})))
	qt.Assert(t, qt.IsTrue(w.Permits(Origin{})))
}

func TestWhitelistFailsOpenOnUnknownOrigin(t *testing.T) {
	w := Whitelist{"only/this.go"}
	qt.Assert(t, qt.IsTrue(w.Permits(Origin{Known: false})))
}

func TestLoadWhitelist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whitelist")
	content := "# comment line\nparser.go\n\n  codec/frame.go  \n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := LoadWhitelist(path)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(w, Whitelist{"parser.go", "codec/frame.go"}))
}

func TestLoadWhitelistUnconfigured(t *testing.T) {
	w, err := LoadWhitelist("")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(w, 0))
}

func TestLoadWhitelistUnreadable(t *testing.T) {
	_, err := LoadWhitelist(filepath.Join(t.TempDir(), "does-not-exist"))
	qt.Assert(t, qt.IsNotNil(err))
}

func TestResolveOriginPrefersLineDirective(t *testing.T) {
	const src = `package demo

//line original.go:100
func f() int {
	return 1
}
`
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "generated.go", src, parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}

	fn := f.Decls[0].(interface{ Pos() token.Pos })
	origin := resolveOrigin(fset, fn.Pos())
	qt.Assert(t, qt.IsTrue(origin.Known))
	qt.Assert(t, qt.Equals(origin.Filename, "original.go"))
	qt.Assert(t, qt.Equals(origin.Line, 100))
}

func TestResolveOriginCurrentLocation(t *testing.T) {
	const src = `package demo

func f() int {
	return 1
}
`
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "plain.go", src, parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}

	origin := resolveOrigin(fset, f.Decls[0].Pos())
	qt.Assert(t, qt.IsTrue(origin.Known))
	qt.Assert(t, qt.Equals(origin.Filename, "plain.go"))
	qt.Assert(t, qt.Equals(origin.Line, 3))
}

func TestResolveOriginUnknown(t *testing.T) {
	origin := resolveOrigin(token.NewFileSet(), token.NoPos)
	qt.Assert(t, qt.IsFalse(origin.Known))
}
