package cmd

import (
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"

	"github.com/edgecov/edgecov-go/tools/edgecov-go-instrumentor/common"
)

// AddRuntimeRequirement writes the target project's go.mod into the
// instrumented output tree with a requirement on the coverage runtime
// added, so the emitted references to the shared coverage symbols
// resolve when the instrumented copy is built.
func AddRuntimeRequirement(inputDirectory, outputDirectory, version string) error {
	data, err := os.ReadFile(filepath.Join(inputDirectory, "go.mod"))
	if err != nil {
		return err
	}

	f, err := modfile.Parse("go.mod", data, nil)
	if err != nil {
		return err
	}

	if err = f.AddRequire(common.EDGECOV_MODULE, version); err != nil {
		return err
	}
	f.Cleanup()

	out, err := f.Format()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outputDirectory, "go.mod"), out, 0644)
}
