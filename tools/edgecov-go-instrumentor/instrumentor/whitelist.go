package instrumentor

import (
	"bufio"
	"go/token"
	"os"
	"strings"
)

// Whitelist is the set of source-filename suffixes permitted to receive
// instrumentation, one per line in the file it is loaded from. An empty
// Whitelist disables the filter entirely.
type Whitelist []string

// LoadWhitelist reads a newline-delimited suffix list, skipping blank
// lines and lines beginning with #. An empty path yields an empty
// (disabled) Whitelist and never an error; a configured-but-unreadable
// path is an error the caller must treat as fatal, since silently
// producing an uninstrumented binary is worse than failing the build.
func LoadWhitelist(path string) (Whitelist, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var w Whitelist
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		entry := strings.TrimSpace(scanner.Text())
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}
		w = append(w, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return w, nil
}

// Origin is the resolved debug origin of a block's insertion point.
// Known is false when no source position could be determined at all.
type Origin struct {
	Filename string
	Line     int
	Column   int
	Known    bool
}

// resolveOrigin determines where a block's insertion point came from.
// It prefers the //line-adjusted position, which for generated code
// names the original source the generator consumed; when that carries
// no filename it falls back to the position in the file actually being
// parsed. A block with no position at all resolves to Unknown.
func resolveOrigin(fset *token.FileSet, pos token.Pos) Origin {
	if pos == token.NoPos {
		return Origin{}
	}
	if p := fset.PositionFor(pos, true); p.Filename != "" {
		return Origin{Filename: p.Filename, Line: p.Line, Column: p.Column, Known: true}
	}
	if p := fset.PositionFor(pos, false); p.Filename != "" {
		return Origin{Filename: p.Filename, Line: p.Line, Column: p.Column, Known: true}
	}
	return Origin{}
}

// Permits reports whether a block with the given origin may be
// instrumented. A block whose origin cannot be resolved is instrumented
// unconditionally: losing coverage silently is worse than occasionally
// covering a file the operator meant to exclude.
func (w Whitelist) Permits(origin Origin) bool {
	if len(w) == 0 {
		return true
	}
	if !origin.Known {
		return true
	}
	for _, suffix := range w {
		// Resolved filenames are usually full paths, so entries match
		// against the tail of the path rather than the whole of it.
		if strings.HasSuffix(origin.Filename, suffix) {
			return true
		}
	}
	return false
}
