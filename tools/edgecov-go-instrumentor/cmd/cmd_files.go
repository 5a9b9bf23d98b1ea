package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/edgecov/edgecov-go/tools/edgecov-go-instrumentor/common"
	"github.com/edgecov/edgecov-go/tools/edgecov-go-instrumentor/instrumentor"
)

// Capitalized struct items are accessed outside this file
type CommandFiles struct {
	// The base directory of the go module to be instrumented.
	// Contains a go.mod file.
	inputDirectory string

	// Required to exist, and to be empty, prior to instrumentation.
	// Afterwards contains the 'instrumented' and 'locations'
	// subdirectories.
	outputDirectory string

	// A copy of inputDirectory in which every whitelisted .go file
	// carries coverage instrumentation.
	instrumentedDirectory string

	// Receives the .loc.tsv location table and the JSON metadata
	// sidecar expected by external fuzz drivers.
	locationsDirectory string

	// Optional file of source-filename suffixes; empty disables the
	// whitelist filter.
	whitelistPath string

	moduleName   string
	ratio        int
	seed         int64
	quiet        bool
	hardened     bool
	filesHash    string
	filesSkipped int
	tableName    string

	logWriter *common.LogWriter
}

func (cfx *CommandFiles) GetSourceFiles() (sourceFiles []string, err error) {
	cfx.filesSkipped = 0
	if sourceFiles, err = cfx.FindSourceCode(); err != nil {
		return
	}
	cfx.filesHash = hashFileContent(sourceFiles, cfx.logWriter)
	return
}

// NewCoverageInstrumentor wires the whitelist, the sampling ratio, and
// the location table into a ready instrumentor. An unreadable
// configured whitelist is fatal here, before any file is touched.
func (cfx *CommandFiles) NewCoverageInstrumentor() *instrumentor.CoverageInstrumentor {
	whitelist, err := instrumentor.LoadWhitelist(cfx.whitelistPath)
	if err != nil {
		cfx.logWriter.Fatalf("Unable to open whitelist %s: %v", cfx.whitelistPath, err)
	}
	if len(whitelist) > 0 {
		cfx.logWriter.Printf("Whitelist: %d %s from %s",
			len(whitelist), common.Pluralize(len(whitelist), "suffix line"), cfx.whitelistPath)
	}

	table := cfx.createLocationTable()
	goInstrumentor := instrumentor.CreateInstrumentor(
		cfx.inputDirectory,
		instrumentor.Config{
			Whitelist: whitelist,
			Ratio:     cfx.ratio,
			Seed:      cfx.seed,
		},
		table,
	)

	return &instrumentor.CoverageInstrumentor{
		GoInstrumentor: goInstrumentor,
		Table:          table,
		Ratio:          cfx.ratio,
		Hardened:       cfx.hardened,
		Quiet:          cfx.quiet,
		FilesSkipped:   cfx.filesSkipped,
	}
}

func (cfx *CommandFiles) createLocationTable() *instrumentor.LocationTable {
	baseName := fmt.Sprintf("%s-%s", common.LOCATIONS_FILE_HASH_PREFIX, cfx.filesHash)
	cfx.tableName = baseName + common.LOCATIONS_FILE_SUFFIX
	tablePath := filepath.Join(cfx.locationsDirectory, cfx.tableName)
	table, err := instrumentor.CreateLocationTableFile(tablePath, cfx.moduleName)
	if err != nil {
		cfx.logWriter.Fatalf("Could not create location table %s: %v", tablePath, err)
	}
	return table
}

// WrapUp completes the output tree: the runtime dependency goes into
// go.mod, the metadata sidecar is written, and everything the
// instrumentor did not rewrite is copied across unmodified.
func (cfx *CommandFiles) WrapUp(cI *instrumentor.CoverageInstrumentor, version string) {
	if err := AddRuntimeRequirement(cfx.inputDirectory, cfx.instrumentedDirectory, version); err != nil {
		cfx.logWriter.Fatalf("Could not add runtime dependency to go.mod: %v", err)
	}
	cfx.logWriter.Printf("Coverage runtime dependency added to %s/go.mod", cfx.instrumentedDirectory)

	metadataPath := filepath.Join(cfx.locationsDirectory, common.METADATA_FILE)
	md := instrumentor.NewMetadata(cfx.moduleName, instrumentor.Config{
		Ratio: cfx.ratio,
		Seed:  cfx.seed,
	}, cfx.hardened, cI.GoInstrumentor.Records)
	if err := md.Write(metadataPath); err != nil {
		cfx.logWriter.Printf("Error: could not write metadata %s: %v", metadataPath, err)
	} else {
		cfx.logWriter.Printf("Metadata: %s", metadataPath)
	}

	common.CopyRecursiveNoClobber(cfx.inputDirectory, cfx.instrumentedDirectory)
	cfx.logWriter.Printf("All other files copied unmodified from %s to %s", cfx.inputDirectory, cfx.instrumentedDirectory)
}

func (cfx *CommandFiles) WriteInstrumentedOutput(fileName string, instrumentedSource string, cI *instrumentor.CoverageInstrumentor) {
	// Skip over the base inputDirectory from the input filename, and
	// create the output directories needed.
	skipLength := len(cfx.inputDirectory)
	outputPath := filepath.Join(cfx.instrumentedDirectory, fileName[skipLength:])
	outputSubdirectory := filepath.Dir(outputPath)
	os.MkdirAll(outputSubdirectory, 0755)

	if cfx.logWriter.VerboseLevel(1) {
		cfx.logWriter.Printf("Writing instrumented file %s with locations %d-%d",
			outputPath, cI.PreviousCount, cI.GoInstrumentor.InstrumentedLocations)
	}

	if err := common.WriteTextFile(instrumentedSource, outputPath); err == nil {
		cI.FilesInstrumented++
	}
}

// FindSourceCode scans the input directory recursively for .go files.
func (cfx *CommandFiles) FindSourceCode() (paths []string, err error) {
	paths = []string{}
	cfx.logWriter.Printf("Scanning %s recursively for .go source", cfx.inputDirectory)
	// Files are read in lexical order, i.e. we can later deterministically
	// hash their content: https://pkg.go.dev/path/filepath#WalkDir
	err = filepath.WalkDir(cfx.inputDirectory,
		func(path string, info fs.DirEntry, erx error) error {
			if erx != nil {
				cfx.logWriter.Printf("Error %v in directory %s; skipping", erx, path)
				return erx
			}

			if b := filepath.Base(path); strings.HasPrefix(b, ".") {
				if cfx.logWriter.VerboseLevel(2) {
					cfx.logWriter.Printf("Ignoring 'dot' directory: %s", path)
				}
				if info.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if info.IsDir() {
				return nil
			}
			if !strings.HasSuffix(path, ".go") {
				cfx.filesSkipped++
				return nil
			}
			// This is the mandatory format of unit test file names.
			if strings.HasSuffix(path, "_test.go") {
				if cfx.logWriter.VerboseLevel(2) {
					cfx.logWriter.Printf("Skipping test file %s", path)
				}
				cfx.filesSkipped++
				return nil
			} else if strings.HasSuffix(path, ".pb.go") {
				if cfx.logWriter.VerboseLevel(1) {
					cfx.logWriter.Printf("Skipping generated file %s", path)
				}
				cfx.filesSkipped++
				return nil
			}

			paths = append(paths, path)

			return nil
		})

	if err != nil {
		err = fmt.Errorf("error walking input directory %s: %v", cfx.inputDirectory, err)
	}
	return
}

// hashFileContent reads the binary content of every file in paths
// (assumed to be in lexical order) and returns a short SHA-256 digest,
// used to name the location table.
func hashFileContent(paths []string, logWriter *common.LogWriter) string {
	hasher := sha256.New()
	for _, path := range paths {
		bytes, err := os.ReadFile(path)
		if err != nil {
			logWriter.Fatalf("Error reading file %s: %v", path, err)
		}
		hasher.Write(bytes)
	}

	return hex.EncodeToString(hasher.Sum(nil))[0:12]
}
