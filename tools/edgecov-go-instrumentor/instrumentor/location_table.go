package instrumentor

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/edgecov/edgecov-go/coverage"
)

// LocationTable is the serialization of every instrumented site: which
// source position received which location identifier. The coverage map
// itself only carries hashed edge indices at run time, so this table is
// what lets an external driver translate hot map slots back into code.
type LocationTable struct {
	Path       string
	writer     locationTableWriter
	executable string
}

// LocationRecord is one instrumented site.
type LocationRecord struct {
	Path     string `json:"path"`
	Function string `json:"function"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Location uint16 `json:"location"`
}

// CreateLocationTableFile opens a .loc.tsv file on disk.
func CreateLocationTableFile(tablePath, instrumentedModule string) (*LocationTable, error) {
	w, err := createFileLocationTableWriter(tablePath)
	if err != nil {
		return nil, err
	}

	// There can be an error if the file has been moved!
	executable, _ := os.Executable()
	table := &LocationTable{
		Path:       tablePath,
		writer:     w,
		executable: executable,
	}
	if err = table.writeHeader(instrumentedModule); err != nil {
		return nil, err
	}
	return table, nil
}

// CreateInMemoryLocationTable creates an in-memory table for testing.
func CreateInMemoryLocationTable(tablePath, instrumentedModule string) *LocationTable {
	table := &LocationTable{
		Path:       tablePath,
		writer:     &inMemoryLocationTableWriter{},
		executable: "edgecov-go-instrumentor",
	}
	table.writeHeader(instrumentedModule)
	return table
}

func (t *LocationTable) writeHeader(module string) error {
	if err := t.writer.WriteLine("# language = Go"); err != nil {
		return err
	}
	if err := t.writer.WriteLine("# instrumentor = " + t.executable); err != nil {
		return err
	}
	if err := t.writer.WriteLine("# module = " + module); err != nil {
		return err
	}
	if err := t.writer.WriteLine(fmt.Sprintf("# map_size = %d", coverage.MapSize)); err != nil {
		return err
	}
	return t.writer.WriteLine("file\tfunction\tline\tcolumn\tlocation")
}

// WriteRecord appends one instrumented site to the table.
func (t *LocationTable) WriteRecord(r LocationRecord) error {
	line := fmt.Sprintf("%s\t%s\t%d\t%d\t%d", r.Path, r.Function, r.Line, r.Column, r.Location)
	return t.writer.WriteLine(line)
}

func (t *LocationTable) Close() error {
	return t.writer.Close()
}

func (t *LocationTable) String() string {
	return t.writer.String()
}

// --------------------------------------------------------------------------------
// locationTableWriter
// --------------------------------------------------------------------------------
type locationTableWriter interface {
	WriteLine(s string) error
	Close() error
	String() string
}

type fileLocationTableWriter struct {
	f      *os.File
	writer *bufio.Writer
}

func createFileLocationTableWriter(name string) (*fileLocationTableWriter, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	return &fileLocationTableWriter{f: f, writer: bufio.NewWriter(f)}, nil
}

func (w *fileLocationTableWriter) WriteLine(s string) error {
	if _, err := w.writer.WriteString(s + "\n"); err != nil {
		return err
	}
	return w.writer.Flush()
}

func (w *fileLocationTableWriter) Close() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.f.Close()
}

func (fileLocationTableWriter) String() string {
	return ""
}

type inMemoryLocationTableWriter struct {
	writer strings.Builder
}

func (w *inMemoryLocationTableWriter) WriteLine(s string) error {
	_, err := w.writer.WriteString(s + "\n")
	return err
}

func (w *inMemoryLocationTableWriter) Close() error {
	return nil
}

func (w *inMemoryLocationTableWriter) String() string {
	return w.writer.String()
}
