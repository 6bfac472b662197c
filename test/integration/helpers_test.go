// Package integration runs utrun against real processes: shell scripts
// standing in for cmake, make, lcov, valgrind and the suite executables.
package integration

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
)

const abcConfig = `
suites:
  - {id: a, name: ATests, path: /tests/a/}
  - {id: b, name: BTests, path: /tests/b/}
  - {id: c, name: CTests, path: /tests/c/}
`

// traceTool appends its name and arguments to $UTRUN_TRACE.
const traceTool = `echo "$(basename "$0")${*:+ $*}" >> "$UTRUN_TRACE"` + "\n"

// workspace is a temporary project with fake tools first on PATH.
type workspace struct {
	root   string
	bin    string
	build  string
	config string
	trace  string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are shell scripts")
	}

	root := t.TempDir()
	w := &workspace{
		root:   root,
		bin:    filepath.Join(root, "bin"),
		build:  filepath.Join(root, "build"),
		config: filepath.Join(root, "utrun.yaml"),
		trace:  filepath.Join(root, "trace.txt"),
	}
	writeFile(t, w.config, abcConfig, 0o644)
	t.Setenv("PATH", w.bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv("UTRUN_TRACE", w.trace)

	w.tool(t, "cmake", "exit 0")
	w.tool(t, "make", "exit 0")
	for _, s := range []string{"a/ATests", "b/BTests", "c/CTests"} {
		w.suite(t, s, passingSuite, 0)
	}
	return w
}

// tool installs a fake executable on PATH that traces its invocation.
func (w *workspace) tool(t *testing.T, name, body string) {
	t.Helper()
	writeFile(t, filepath.Join(w.bin, name), "#!/bin/sh\n"+traceTool+body+"\n", 0o755)
}

// suite installs a fake suite executable under the build directory.
func (w *workspace) suite(t *testing.T, rel, output string, code int) {
	t.Helper()
	script := "#!/bin/sh\n" + traceTool + "cat <<'GTEST'\n" + output + "GTEST\nexit " + strconv.Itoa(code) + "\n"
	writeFile(t, filepath.Join(w.build, "tests", rel), script, 0o755)
}

// calls returns the traced invocations in order.
func (w *workspace) calls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(w.trace)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

const passingSuite = `[==========] Running 1 test from 1 test suite.
[ RUN      ] SuiteTest.Works
[       OK ] SuiteTest.Works (0 ms)
[==========] 1 test from 1 test suite ran. (0 ms total)
[  PASSED  ] 1 test.
`

const failingSuite = `[==========] Running 2 tests from 1 test suite.
[ RUN      ] SuiteTest.Works
[       OK ] SuiteTest.Works (0 ms)
[ RUN      ] SuiteTest.Breaks
suite_test.cpp:7: Failure
[  FAILED  ] SuiteTest.Breaks (0 ms)
[==========] 2 tests from 1 test suite ran. (0 ms total)
[  PASSED  ] 1 test.
[  FAILED  ] 1 test, listed below:
[  FAILED  ] SuiteTest.Breaks
`
