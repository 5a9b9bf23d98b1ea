package instrumentor

import (
	"github.com/edgecov/edgecov-go/tools/edgecov-go-instrumentor/common"
)

// CoverageInstrumentor drives an Instrumentor across a whole source
// tree and aggregates the numbers the summary is built from.
type CoverageInstrumentor struct {
	GoInstrumentor    *Instrumentor
	Table             *LocationTable
	logWriter         *common.LogWriter
	Ratio             int
	Hardened          bool
	Quiet             bool
	PreviousCount     int
	FilesInstrumented int
	FilesSkipped      int
}

// InstrumentFile rewrites one file, returning "" when the file should
// simply be copied to the output unmodified.
func (cI *CoverageInstrumentor) InstrumentFile(fileName string) string {
	if cI.GoInstrumentor == nil {
		return ""
	}
	if cI.logWriter == nil {
		cI.logWriter = common.GetLogWriter()
	}
	cI.logWriter.Printf("Instrumenting %s", fileName)
	cI.PreviousCount = cI.GoInstrumentor.InstrumentedLocations
	instrumented, err := cI.GoInstrumentor.Instrument(fileName)
	if err != nil {
		cI.logWriter.Printf("Error: File %s produced error %s; simply copying source", fileName, err)
		return ""
	}

	return instrumented
}

// WrapUp closes the location table and returns the total number of
// instrumented locations.
func (cI *CoverageInstrumentor) WrapUp() (locationCount int) {
	if cI.logWriter == nil {
		cI.logWriter = common.GetLogWriter()
	}
	if cI.GoInstrumentor != nil {
		if err := cI.Table.Close(); err != nil {
			cI.logWriter.Printf("Error: Could not close location table %s: %s", cI.Table.Path, err)
		}
		cI.logWriter.Printf("Location table: %s", cI.Table.Path)
		locationCount = cI.GoInstrumentor.InstrumentedLocations
	}
	return
}

// SummarizeWork reports what the run did. A run that found nothing to
// instrument is almost always a misconfigured build, hence the warning.
func (cI *CoverageInstrumentor) SummarizeWork(numFiles int) {
	if cI.GoInstrumentor == nil || cI.Quiet {
		return
	}
	if cI.logWriter == nil {
		cI.logWriter = common.GetLogWriter()
	}

	numLocations := cI.GoInstrumentor.InstrumentedLocations
	if numLocations == 0 {
		cI.logWriter.Printf("WARNING: No instrumentation targets found.")
		return
	}

	mode := "non-hardened"
	if cI.Hardened {
		mode = "hardened"
	}
	numSkipped := (numFiles - cI.FilesInstrumented) + cI.FilesSkipped
	cI.logWriter.Printf("Instrumented %d locations (%s mode, ratio %d%%).", numLocations, mode, cI.Ratio)
	cI.logWriter.Printf("%d '.go' %s visited, %d %s copied unmodified",
		numFiles, common.Pluralize(numFiles, "file"),
		numSkipped, common.Pluralize(numSkipped, "file"))
}
