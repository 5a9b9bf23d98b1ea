package instrumentor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-quicktest/qt"
)

func TestMetadataRoundTrip(t *testing.T) {
	records := []LocationRecord{
		{Path: "demo.go", Function: "sign", Line: 4, Column: 2, Location: 16846},
		{Path: "demo.go", Function: "sign", Line: 5, Column: 3, Location: 9},
	}
	md := NewMetadata("example.com/demo", Config{Ratio: 75, Seed: 42}, true, records)

	path := filepath.Join(t.TempDir(), "edgecov-metadata.json")
	qt.Assert(t, qt.IsNil(md.Write(path)))

	data, err := os.ReadFile(path)
	qt.Assert(t, qt.IsNil(err))

	var decoded Metadata
	qt.Assert(t, qt.IsNil(json.Unmarshal(data, &decoded)))
	qt.Assert(t, qt.Equals(decoded.Module, "example.com/demo"))
	qt.Assert(t, qt.Equals(decoded.MapSize, 65536))
	qt.Assert(t, qt.Equals(decoded.Ratio, 75))
	qt.Assert(t, qt.IsTrue(decoded.Hardened))
	qt.Assert(t, qt.Equals(decoded.Seed, int64(42)))
	qt.Assert(t, qt.DeepEquals(decoded.Locations, records))
}
