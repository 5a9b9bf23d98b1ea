package instrumentor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-quicktest/qt"
)

func TestInMemoryLocationTable(t *testing.T) {
	table := CreateInMemoryLocationTable("go-abc123.loc.tsv", "example.com/demo")
	err := table.WriteRecord(LocationRecord{
		Path:     "demo.go",
		Function: "sign",
		Line:     4,
		Column:   2,
		Location: 0x41ce,
	})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNil(table.Close()))

	text := table.String()
	qt.Assert(t, qt.IsTrue(strings.Contains(text, "# language = Go")))
	qt.Assert(t, qt.IsTrue(strings.Contains(text, "# module = example.com/demo")))
	qt.Assert(t, qt.IsTrue(strings.Contains(text, "# map_size = 65536")))
	qt.Assert(t, qt.IsTrue(strings.Contains(text, "file\tfunction\tline\tcolumn\tlocation")))
	qt.Assert(t, qt.IsTrue(strings.Contains(text, "demo.go\tsign\t4\t2\t16846")))
}

func TestFileLocationTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "go-abc123.loc.tsv")
	table, err := CreateLocationTableFile(path, "example.com/demo")
	qt.Assert(t, qt.IsNil(err))

	err = table.WriteRecord(LocationRecord{Path: "a.go", Function: "f", Line: 10, Column: 1, Location: 7})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNil(table.Close()))

	data, err := os.ReadFile(path)
	qt.Assert(t, qt.IsNil(err))

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	qt.Assert(t, qt.HasLen(lines, 6))
	qt.Assert(t, qt.Equals(lines[len(lines)-1], "a.go\tf\t10\t1\t7"))
}
