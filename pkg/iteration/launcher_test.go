package iteration_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/iteration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLauncher_Python(t *testing.T) {
	dir := t.TempDir()
	launcher := filepath.Join(dir, "launch.py")

	err := iteration.BuildLauncher(launcher, "/jobs/body.py", []string{"/jobs/g1.py", "/jobs/g2.py"})
	require.NoError(t, err)

	data, err := os.ReadFile(launcher)
	require.NoError(t, err)
	assert.Equal(t,
		"execfile(r\"/jobs/g1.py\")\n"+
			"execfile(r\"/jobs/g2.py\")\n"+
			"execfile(r\"/jobs/body.py\")\n",
		string(data))
}

func TestBuildLauncher_Mel(t *testing.T) {
	dir := t.TempDir()
	launcher := filepath.Join(dir, "launch.mel")

	require.NoError(t, iteration.BuildLauncher(launcher, "/jobs/body.py", []string{"/jobs/g1.py"}))

	data, err := os.ReadFile(launcher)
	require.NoError(t, err)
	assert.Equal(t,
		"python(\"execfile(\\\"/jobs/g1.py\\\")\");\n"+
			"python(\"execfile(\\\"/jobs/body.py\\\")\");\n",
		string(data))
}

func TestBuildLauncher_Errors(t *testing.T) {
	dir := t.TempDir()

	err := iteration.BuildLauncher(filepath.Join(dir, "launch.nk"), "/jobs/body.py", nil)
	assert.ErrorIs(t, err, domain.ErrLauncherWrite)

	err = iteration.BuildLauncher(filepath.Join(dir, "launch.py"), "/jobs/bo\"dy.py", nil)
	assert.ErrorIs(t, err, domain.ErrLauncherWrite)
	_, statErr := os.Stat(filepath.Join(dir, "launch.py"))
	assert.True(t, os.IsNotExist(statErr), "nothing is written on a rejected path")

	err = iteration.BuildLauncher(filepath.Join(dir, "launch.py"), `/jobs/body.py\`, nil)
	assert.ErrorIs(t, err, domain.ErrLauncherWrite)
	_, statErr = os.Stat(filepath.Join(dir, "launch.py"))
	assert.True(t, os.IsNotExist(statErr))
}

type shellDialect struct{}

func (shellDialect) Name() string            { return "sh" }
func (shellDialect) Extension() string       { return ".sh" }
func (shellDialect) Exec(path string) string { return ". \"" + path + "\"" }

func TestRegisterDialect(t *testing.T) {
	iteration.RegisterDialect(shellDialect{})

	d, ok := iteration.DialectFor(".SH")
	require.True(t, ok)
	assert.Equal(t, "sh", d.Name())

	d, ok = iteration.DialectNamed("mel")
	require.True(t, ok)
	assert.Equal(t, ".mel", d.Extension())

	assert.Contains(t, iteration.Extensions(), ".sh")
}
