package cmd

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/mod/modfile"

	"github.com/edgecov/edgecov-go/tools/edgecov-go-instrumentor/common"
)

// ratioUnset is the flag sentinel that lets the environment variable,
// and finally the default of 100, take over.
const ratioUnset = -1

// Capitalized struct items are accessed outside this file
type CommandArgs struct {
	logWriter     *common.LogWriter
	whitelistPath string
	ratio         int
	seed          int64
	quiet         bool
	hardened      bool
	inputDir      string
	outputDir     string
	VersionText   string
	ShowVersion   bool
	InvalidArgs   bool
}

func ParseArgs(versionText string) *CommandArgs {
	versionPtr := flag.Bool("version", false, "the current version of this application")
	whitelistPtr := flag.String("whitelist", "", "path to a file of source-filename suffixes permitted to receive instrumentation (optional)")
	ratioPtr := flag.Int("ratio", ratioUnset, "percentage of eligible blocks to instrument, 1-100 (default 100)")
	seedPtr := flag.Int64("seed", 0, "seed for location assignment; 0 draws a fresh seed every run")
	quietPtr := flag.Bool("quiet", false, "suppress the summary output")
	hardenPtr := flag.Bool("harden", false, "label the output as a hardened build in the summary")
	logfilePtr := flag.String("logfile", "", "file path to log into (default=stderr)")
	verbosePtr := flag.Int("V", 0, "verbosity level (default to 0)")
	flag.Parse()

	cmdArgs := CommandArgs{
		InvalidArgs: false,
		ShowVersion: *versionPtr,
		VersionText: versionText,
	}

	if cmdArgs.ShowVersion {
		return &cmdArgs
	}

	cmdArgs.logWriter = common.NewLogWriter(*logfilePtr, *verbosePtr)

	if flag.NArg() < 2 {
		fmt.Fprintf(os.Stderr, "%s", strings.TrimSpace(versionText))
		fmt.Fprintf(os.Stderr, "\n\n")
		fmt.Fprintf(os.Stderr, "  $ edgecov-go-instrumentor [options] go_project_dir target_dir\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "  - The go_project_dir should contain a valid go.mod file\n")
		fmt.Fprintf(os.Stderr, "  - The target_dir should be an existing, but empty directory\n")
		fmt.Fprintf(os.Stderr, "\n\n")
		flag.Usage()
		cmdArgs.InvalidArgs = true
		return &cmdArgs
	}

	cmdArgs.whitelistPath = resolveWhitelistPath(*whitelistPtr)
	cmdArgs.ratio = resolveRatio(*ratioPtr, cmdArgs.logWriter)
	cmdArgs.seed = *seedPtr
	cmdArgs.quiet = *quietPtr || envFlag(common.QUIET_ENV_VAR)
	cmdArgs.hardened = *hardenPtr || envFlag(common.HARDEN_ENV_VAR)
	cmdArgs.inputDir = flag.Arg(0)
	cmdArgs.outputDir = flag.Arg(1)

	return &cmdArgs
}

// resolveRatio applies the flag-over-environment-over-default
// precedence and validates the result. An unusable ratio is a fatal
// startup error; it is never rechecked per block.
func resolveRatio(flagValue int, logWriter *common.LogWriter) int {
	ratio := flagValue
	if ratio == ratioUnset {
		if env := strings.TrimSpace(os.Getenv(common.RATIO_ENV_VAR)); env != "" {
			parsed, err := strconv.Atoi(env)
			if err != nil {
				logWriter.Fatalf("Bad value of %s (must be between 1 and 100): %q", common.RATIO_ENV_VAR, env)
			}
			ratio = parsed
		} else {
			ratio = 100
		}
	}
	if ratio < 1 || ratio > 100 {
		logWriter.Fatalf("Bad instrumentation ratio %d (must be between 1 and 100)", ratio)
	}
	return ratio
}

func resolveWhitelistPath(flagValue string) string {
	if path := strings.TrimSpace(flagValue); path != "" {
		return path
	}
	return strings.TrimSpace(os.Getenv(common.WHITELIST_ENV_VAR))
}

func envFlag(name string) bool {
	return strings.TrimSpace(os.Getenv(name)) != ""
}

func (ca *CommandArgs) ShowArguments() {
	ca.logWriter.Printf("inputDir: %q", ca.inputDir)
	ca.logWriter.Printf("outputDir: %q", ca.outputDir)
	if ca.whitelistPath != "" {
		ca.logWriter.Printf("whitelist: %q", ca.whitelistPath)
	}
	ca.logWriter.Printf("ratio: %d%%", ca.ratio)
	if ca.seed != 0 {
		ca.logWriter.Printf("seed: %d", ca.seed)
	}
	if ca.hardened {
		ca.logWriter.Printf("hardened: %t", ca.hardened)
	}
}

func (ca *CommandArgs) NewCommandFiles() (cfx *CommandFiles, err error) {
	inputDirectory := common.GetAbsoluteDirectory(ca.inputDir)
	outputDirectory := common.GetAbsoluteDirectory(ca.outputDir)
	if err = common.ValidateDirectories(inputDirectory, outputDirectory); err != nil {
		return
	}

	var moduleName string
	if moduleName, err = GetModuleName(inputDirectory); err != nil {
		err = fmt.Errorf("unable to obtain go module name from %q", inputDirectory)
		return
	}

	instrumentedDirectory := filepath.Join(outputDirectory, common.INSTRUMENTED_SOURCE_FOLDER)
	locationsDirectory := filepath.Join(outputDirectory, common.LOCATIONS_FOLDER)
	if err = CreateOutputDirectories(instrumentedDirectory, locationsDirectory); err != nil {
		return
	}

	cfx = &CommandFiles{
		inputDirectory:        inputDirectory,
		outputDirectory:       outputDirectory,
		instrumentedDirectory: instrumentedDirectory,
		locationsDirectory:    locationsDirectory,
		whitelistPath:         ca.whitelistPath,
		moduleName:            moduleName,
		ratio:                 ca.ratio,
		seed:                  ca.seed,
		quiet:                 ca.quiet,
		hardened:              ca.hardened,
		logWriter:             common.GetLogWriter(),
	}
	return
}

func GetModuleName(inputDir string) (moduleName string, err error) {
	var moduleData []byte
	moduleFilenamePath := filepath.Join(inputDir, "go.mod")
	if moduleData, err = os.ReadFile(moduleFilenamePath); err != nil {
		return
	}

	var f *modfile.File
	if f, err = modfile.ParseLax("go.mod", moduleData, nil); err == nil {
		moduleName = f.Module.Mod.Path
	}
	return
}

func CreateOutputDirectories(instrumentedDirectory, locationsDirectory string) (err error) {
	if err = os.Mkdir(instrumentedDirectory, 0755); err != nil {
		return
	}
	return os.Mkdir(locationsDirectory, 0755)
}
