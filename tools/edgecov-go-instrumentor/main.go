package main

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/edgecov/edgecov-go/tools/edgecov-go-instrumentor/cmd"
	"github.com/edgecov/edgecov-go/tools/edgecov-go-instrumentor/common"
)

//go:embed version.txt
var versionString string

// runtimeVersion is the released version of the coverage runtime that
// instrumented go.mod files will require.
const runtimeVersion = "v0.3.1"

func main() {
	//--------------------------------------------------------------------------------
	// Parse and validate command arguments
	// Establish global logging
	//--------------------------------------------------------------------------------
	cmdArgs := cmd.ParseArgs(versionString)
	if cmdArgs.ShowVersion {
		fmt.Println(strings.TrimSpace(versionString))
		os.Exit(0)
	}
	if cmdArgs.InvalidArgs {
		os.Exit(1)
	}

	logWriter := common.GetLogWriter()
	if logWriter.IsVerbose() {
		cmdArgs.ShowArguments()
	}

	//--------------------------------------------------------------------------------
	// Verify directories and files are all as expected
	// Prepare instrumentation output directories
	//--------------------------------------------------------------------------------
	cmdFiles, err := cmdArgs.NewCommandFiles()
	if err != nil {
		logWriter.Printf("%s", err.Error())
		os.Exit(1)
	}

	sourceFiles, err := cmdFiles.GetSourceFiles()
	if err != nil {
		logWriter.Printf("%s", err.Error())
		os.Exit(1)
	}

	//--------------------------------------------------------------------------------
	// Instrument every file; files with nothing to instrument are
	// copied verbatim during wrap-up.
	//--------------------------------------------------------------------------------
	cI := cmdFiles.NewCoverageInstrumentor()

	for _, fileName := range sourceFiles {
		if instrumentedSource := cI.InstrumentFile(fileName); instrumentedSource != "" {
			cmdFiles.WriteInstrumentedOutput(fileName, instrumentedSource, cI)
		}
	}

	//--------------------------------------------------------------------------------
	// Wrap-up processing, summarize results in logger
	//--------------------------------------------------------------------------------
	cmdFiles.WrapUp(cI, runtimeVersion)
	cI.WrapUp()
	cI.SummarizeWork(len(sourceFiles))
}
