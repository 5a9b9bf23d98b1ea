package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/edgecov/edgecov-go/tools/edgecov-go-instrumentor/common"
)

func TestResolveRatioPrecedence(t *testing.T) {
	logWriter := common.GetLogWriter()

	t.Setenv(common.RATIO_ENV_VAR, "")
	qt.Assert(t, qt.Equals(resolveRatio(ratioUnset, logWriter), 100))
	qt.Assert(t, qt.Equals(resolveRatio(55, logWriter), 55))

	t.Setenv(common.RATIO_ENV_VAR, "25")
	qt.Assert(t, qt.Equals(resolveRatio(ratioUnset, logWriter), 25))

	// An explicit flag beats the environment.
	qt.Assert(t, qt.Equals(resolveRatio(80, logWriter), 80))
}

func TestResolveWhitelistPathPrecedence(t *testing.T) {
	t.Setenv(common.WHITELIST_ENV_VAR, "")
	qt.Assert(t, qt.Equals(resolveWhitelistPath(""), ""))
	qt.Assert(t, qt.Equals(resolveWhitelistPath("from-flag"), "from-flag"))

	t.Setenv(common.WHITELIST_ENV_VAR, "from-env")
	qt.Assert(t, qt.Equals(resolveWhitelistPath(""), "from-env"))
	qt.Assert(t, qt.Equals(resolveWhitelistPath("from-flag"), "from-flag"))
}

func TestEnvFlag(t *testing.T) {
	t.Setenv(common.QUIET_ENV_VAR, "")
	qt.Assert(t, qt.IsFalse(envFlag(common.QUIET_ENV_VAR)))

	t.Setenv(common.QUIET_ENV_VAR, "1")
	qt.Assert(t, qt.IsTrue(envFlag(common.QUIET_ENV_VAR)))
}

func TestGetModuleName(t *testing.T) {
	dir := t.TempDir()
	gomod := "module example.com/target\n\ngo 1.21\n"
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(gomod), 0644); err != nil {
		t.Fatal(err)
	}

	name, err := GetModuleName(dir)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(name, "example.com/target"))
}

func TestGetModuleNameMissing(t *testing.T) {
	_, err := GetModuleName(t.TempDir())
	qt.Assert(t, qt.IsNotNil(err))
}
