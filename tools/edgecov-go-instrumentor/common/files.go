package common

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

func WriteTextFile(text, fileName string) (err error) {
	var f *os.File
	if f, err = os.Create(fileName); err != nil {
		GetLogWriter().Printf("Error: could not create %s", fileName)
		return
	}
	defer f.Close()
	if _, err = f.WriteString(text); err != nil {
		GetLogWriter().Printf("Error: could not write text to %s", fileName)
	}
	return
}

// CopyRecursiveNoClobber fills the output tree with every input file the
// instrumentor did not rewrite (non-Go sources, excluded files, assets).
func CopyRecursiveNoClobber(from, to string) {
	logWriter := GetLogWriter()
	commandLine := fmt.Sprintf("cp -n -R %s/* %s", from, to)
	cmd := exec.Command("bash", "-c", commandLine)
	logWriter.Printf("Copying all non-instrumented files")
	logWriter.Printf("Executing %s", commandLine)
	allOutput, err := cmd.CombinedOutput()
	for _, line := range strings.Split(strings.TrimSpace(string(allOutput)), "\n") {
		if len(line) > 0 {
			logWriter.Printf("cp: %s", line)
		}
	}
	if err != nil {
		logWriter.Printf("cp completed with %+v", err)
	}
}

// GetAbsoluteDirectory converts a path, whether a symlink or
// a relative path, into an absolute path.
func GetAbsoluteDirectory(path string) string {
	logWriter := GetLogWriter()
	absolute, e := filepath.Abs(path)
	if e != nil {
		logWriter.Fatalf("Could not evaluate %s as an absolute path: %v", path, e)
	}
	s, err := os.Stat(absolute)
	if err != nil {
		logWriter.Fatalf("%v", err)
	}
	if !s.IsDir() {
		logWriter.Fatalf("%s is not a directory", absolute)
	}
	return absolute
}

func CanonicalizeDirectory(d string) string {
	logWriter := GetLogWriter()
	target, e := filepath.EvalSymlinks(d)
	if e != nil {
		logWriter.Fatalf("filepath.EvalSymlinks(%s) failed: %v", d, e)
	}

	a, e := filepath.Abs(target)
	if e != nil {
		logWriter.Fatalf("filepath.Abs(%s) failed: %v", target, e)
	}
	return a
}

// ValidateDirectories checks that neither directory is a child of the
// other, and of course that they're not the same.
func ValidateDirectories(input, output string) (err error) {
	input = CanonicalizeDirectory(input) + "/"
	output = CanonicalizeDirectory(output) + "/"
	if strings.HasPrefix(output, input) {
		return fmt.Errorf("input directory %s is a prefix of the output directory %s", input, output)
	}
	if strings.HasPrefix(input, output) {
		return fmt.Errorf("output directory %s is a prefix of the input directory %s", output, input)
	}
	return nil
}
