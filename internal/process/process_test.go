package process_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	runerrors "github.com/AndreyAkinshin/utrun/internal/errors"
	"github.com/AndreyAkinshin/utrun/internal/process"
	"github.com/AndreyAkinshin/utrun/internal/testing/mocks"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		code int
		want process.Outcome
	}{
		{0, process.Success},
		{101, process.ToolWarning},
		{1, process.Failure},
		{2, process.Failure},
		{100, process.Failure},
		{102, process.Failure},
		{-1, process.Failure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, process.Classify(tt.code), "code %d", tt.code)
	}
}

func TestOutcome_Acceptable(t *testing.T) {
	assert.True(t, process.Success.Acceptable())
	assert.True(t, process.ToolWarning.Acceptable())
	assert.False(t, process.Failure.Acceptable())
}

func TestEnvironment_OverridesShadowBase(t *testing.T) {
	env := process.NewEnvironment(
		[]string{"PATH=/usr/bin", "RIALTO_CONSOLE_LOG=0", "HOME=/root"},
		map[string]string{"RIALTO_CONSOLE_LOG": "1", "RIALTO_SOCKET_PATH": "/tmp/rialto-0"},
	)

	assert.Equal(t, []string{
		"PATH=/usr/bin",
		"HOME=/root",
		"RIALTO_CONSOLE_LOG=1",
		"RIALTO_SOCKET_PATH=/tmp/rialto-0",
	}, env.Environ())

	v, ok := env.Lookup("RIALTO_CONSOLE_LOG")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestEnvironment_WithDoesNotMutate(t *testing.T) {
	base := process.NewEnvironment(nil, map[string]string{"A": "1"})
	next := base.With("A", "2").WithAll(map[string]string{"B": "3"})

	v, _ := base.Lookup("A")
	assert.Equal(t, "1", v)
	_, ok := base.Lookup("B")
	assert.False(t, ok)

	v, _ = next.Lookup("A")
	assert.Equal(t, "2", v)
}

func TestReadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("RIALTO_SOCKET_PATH=/tmp/custom\n# comment\nGST_DEBUG=2\n"), 0o644))

	vars, err := process.ReadEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"RIALTO_SOCKET_PATH": "/tmp/custom", "GST_DEBUG": "2"}, vars)

	_, err = process.ReadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "make", process.Command{Name: "make"}.String())
	assert.Equal(t, "make -j4 A B", process.Command{Name: "make", Args: []string{"-j4", "A", "B"}}.String())
}

func TestCheck(t *testing.T) {
	ctx := context.Background()

	m := mocks.NewRunner().OnName("ok", 0).OnName("probe", 101).OnName("broken", 2)

	outcome, err := process.Check(ctx, m, process.Command{Name: "ok"})
	assert.NoError(t, err)
	assert.Equal(t, process.Success, outcome)

	outcome, err = process.Check(ctx, m, process.Command{Name: "probe"})
	assert.NoError(t, err)
	assert.Equal(t, process.ToolWarning, outcome)

	outcome, err = process.Check(ctx, m, process.Command{Name: "broken", Args: []string{"-x"}})
	require.Error(t, err)
	assert.Equal(t, process.Failure, outcome)
	assert.True(t, runerrors.IsKind(err, runerrors.KindSubprocess))
	assert.Contains(t, err.Error(), `"broken -x"`)
	assert.Contains(t, err.Error(), "2 error code")
}

func TestCheck_StartFailure(t *testing.T) {
	m := mocks.NewRunner().OnStartError("cmake", &exec.Error{Name: "cmake", Err: exec.ErrNotFound})

	_, err := process.Check(context.Background(), m, process.Command{Name: "cmake"})
	require.Error(t, err)
	assert.True(t, runerrors.IsKind(err, runerrors.KindEnvironment))
	assert.Equal(t, runerrors.ExitEnvironmentError, runerrors.GetExitCode(err))
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	env := process.NewEnvironment(nil, map[string]string{"UTRUN_PROBE": "hello"})
	r := process.NewExecRunner(env, nil)

	var out bytes.Buffer
	code, err := r.Run(context.Background(), process.Command{
		Name:   "sh",
		Args:   []string{"-c", `printf "%s" "$UTRUN_PROBE"; exit 3`},
		Stdout: &out,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, "hello", out.String())

	code, err = r.Run(context.Background(), process.Command{Name: "utrun-definitely-missing-binary"})
	assert.Equal(t, -1, code)
	assert.True(t, errors.Is(err, exec.ErrNotFound))
}
