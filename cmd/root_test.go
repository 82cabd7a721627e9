package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/pymesh/depbuild/internal/builder"
	"github.com/pymesh/depbuild/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	calls []*builder.Command
	err   error
}

func (r *recordingRunner) Run(ctx context.Context, c *builder.Command) error {
	r.calls = append(r.calls, c)
	return r.err
}

// setup swaps the runner and the environment lookup for the duration of the test
func setup(t *testing.T, env map[string]string) *recordingRunner {
	t.Helper()
	runner := &recordingRunner{}

	oldRunner, oldLookup := newRunner, lookupEnv
	newRunner = func() builder.Runner { return runner }
	lookupEnv = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	t.Cleanup(func() { newRunner, lookupEnv = oldRunner, oldLookup })
	return runner
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

var numericEnv = map[string]string{
	"GMP_LIB":  "/gmp/lib",
	"GMP_INC":  "/gmp/inc",
	"MPFR_LIB": "/mpfr/lib",
	"MPFR_INC": "/mpfr/inc",
}

func TestInvalidPackage(t *testing.T) {
	runner := setup(t, numericEnv)
	_, err := execute(t, "--root", t.TempDir(), "boost")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
	assert.Contains(t, err.Error(), "all, cgal, cork")
	assert.Empty(t, runner.calls)
}

func TestMissingPackage(t *testing.T) {
	runner := setup(t, numericEnv)
	_, err := execute(t, "--root", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
	assert.Empty(t, runner.calls)
}

func TestUnknownFlag(t *testing.T) {
	setup(t, numericEnv)
	_, err := execute(t, "--frobnicate", "json")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestBadJobs(t *testing.T) {
	runner := setup(t, numericEnv)
	_, err := execute(t, "--root", t.TempDir(), "-j", "0", "json")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
	assert.Empty(t, runner.calls)
}

func TestBuildJSON(t *testing.T) {
	runner := setup(t, nil)
	root := t.TempDir()
	_, err := execute(t, "--root", root, "json")
	require.NoError(t, err)

	require.Len(t, runner.calls, 3)
	configure := runner.calls[0]
	assert.Equal(t, filepath.Join(root, "third_party", "json"), configure.Args[0])
	assert.Contains(t, configure.Args, "-DJSON_BuildTests=Off")
	assert.Contains(t, configure.Args, "-DCMAKE_INSTALL_PREFIX="+filepath.Join(root, "python", "pymesh", "third_party"))

	// cleanup is on by default
	assert.NoDirExists(t, filepath.Join(root, "third_party", "build", "json"))
}

func TestBuildKeepsDirWithoutCleanup(t *testing.T) {
	setup(t, nil)
	root := t.TempDir()
	_, err := execute(t, "--root", root, "--cleanup=false", "json")
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(root, "third_party", "build", "json"))
}

func TestBuildGenerator(t *testing.T) {
	runner := setup(t, nil)
	_, err := execute(t, "--root", t.TempDir(), "-G", "ninja", "eigen")
	require.NoError(t, err)
	assert.Equal(t, []string{"-G", "Ninja"}, runner.calls[0].Args[3:5])

	_, err = execute(t, "--root", t.TempDir(), "-G", "xcode", "eigen")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestBuildAllMissingEnv(t *testing.T) {
	runner := setup(t, nil)
	_, err := execute(t, "--root", t.TempDir(), "all")

	var missing *registry.MissingEnvError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, 1, exitCode(err))
	assert.Empty(t, runner.calls)
}

func TestBuildAll(t *testing.T) {
	runner := setup(t, numericEnv)
	_, err := execute(t, "--root", t.TempDir(), "all")
	require.NoError(t, err)
	assert.Len(t, runner.calls, 3*len(registry.Default().Names()))
}

func TestStepFailure(t *testing.T) {
	runner := setup(t, nil)
	runner.err = errors.New("boom")
	root := t.TempDir()
	_, err := execute(t, "--root", root, "json")

	var stepErr *builder.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, builder.StepConfigure, stepErr.Step)
	assert.Equal(t, 1, exitCode(err))
	assert.Len(t, runner.calls, 1)
	assert.DirExists(t, filepath.Join(root, "third_party", "build", "json"))
}

func TestExitCodeFromTool(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	err := exec.Command("sh", "-c", "exit 3").Run()
	require.Error(t, err)
	wrapped := &builder.StepError{Package: "cgal", Step: builder.StepCompile, Err: err}
	assert.Equal(t, 3, exitCode(wrapped))
}

func TestList(t *testing.T) {
	setup(t, nil)
	out, err := execute(t, "--root", t.TempDir(), "list")
	require.NoError(t, err)

	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Clipper/cpp")
	assert.Contains(t, out, "-DJSON_BuildTests=Off")
	assert.Contains(t, out, "missing")

	// registry order
	last := -1
	for _, name := range registry.Default().Names() {
		i := bytes.Index([]byte(out), []byte("\n"+name+" "))
		require.Greater(t, i, last, name)
		last = i
	}
}

func TestClean(t *testing.T) {
	setup(t, nil)
	root := t.TempDir()
	buildRoot := filepath.Join(root, "third_party", "build")
	for _, dir := range []string{"cgal", "cork", "json", filepath.Join("Clipper", "cpp")} {
		require.NoError(t, os.MkdirAll(filepath.Join(buildRoot, dir), 0755))
	}

	_, err := execute(t, "--root", root, "clean", "c*")
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(buildRoot, "cgal"))
	assert.NoDirExists(t, filepath.Join(buildRoot, "cork"))
	assert.NoDirExists(t, filepath.Join(buildRoot, "Clipper"))
	assert.DirExists(t, filepath.Join(buildRoot, "json"))

	_, err = execute(t, "--root", root, "clean")
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(buildRoot, "json"))
	assert.DirExists(t, buildRoot)
}

func TestCleanBadPattern(t *testing.T) {
	setup(t, nil)
	_, err := execute(t, "--root", t.TempDir(), "clean", "[")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestEnumValue(t *testing.T) {
	e := NewEnumValue("", EnumChoices("b", "a"))
	assert.Equal(t, "", e.Value())
	assert.Equal(t, []string{"b", "a"}, e.AllowedKeys())
	assert.Equal(t, "[b, a]", e.HelpString())
	require.NoError(t, e.Set("a"))
	assert.Equal(t, "a", e.String())
	assert.EqualError(t, e.Set("c"), "must be one of: b, a")
	assert.Panics(t, func() { NewEnumValue("c", EnumChoices("a")) })
}
