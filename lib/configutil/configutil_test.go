package configutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	MainNation string            `json:"main_nation"`
	JumpPoint  string            `json:"jump_point"`
	Nations    map[string]string `json:"nations"`
}

func (c testConfig) Validate() error {
	if c.MainNation == "" {
		return errors.New("main_nation is required")
	}
	return nil
}

func write(t *testing.T, path, contents string) {
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "config.json5"), `{
		main_nation: "testlandia",
		jump_point: "artificial_solar_system",
		nations: {"puppet_one": "hunter2"},
	}`)
	write(t, filepath.Join(dir, "config.local.json5"), `{jump_point: "suspicious"}`)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)

	expected := testConfig{
		MainNation: "testlandia",
		JumpPoint:  "suspicious",
		Nations:    map[string]string{"puppet_one": "hunter2"},
	}
	if diff := cmp.Diff(expected, config); diff != "" {
		t.Fatal(diff)
	}
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigValidates(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "config.json5"), `{jump_point: "suspicious"}`)
	_, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.ErrorContains(t, err, "main_nation is required")
}

func TestReadOrTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	template := testConfig{MainNation: "your_main_nation", Nations: map[string]string{"puppet": "password"}}

	config, created, err := ReadOrTemplate(path, template)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, template, config)

	config, created, err = ReadOrTemplate(path, testConfig{MainNation: "other"})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, template, config)

	require.Error(t, WriteTemplate(path, template))
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0700))
	write(t, filepath.Join(root, "found.json5"), `{main_nation: "testlandia"}`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	defer os.Chdir(wd)

	config, err := ReadRecursively[testConfig]("found.json5")
	require.NoError(t, err)
	require.Equal(t, "testlandia", config.MainNation)

	_, err = ReadRecursively[testConfig]("definitely_not_here_4f1c.json5")
	require.ErrorIs(t, err, os.ErrNotExist)
}
