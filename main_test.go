package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "catload.yaml")
	body := fmt.Sprintf(`input: %s
read_batch: 2
database:
  driver: sqlite
  name: %s
`, filepath.Join("testdata", "amazon-meta-sample.txt"), filepath.Join(dir, "catalog.db"))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// flag values outlive an Execute call
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSchemaThenLoad(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "schema", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "produtos")

	out, err = execute(t, "load", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "5 blocks, 1 rejected")
	assert.Regexp(t, `produto_categoria\s+19\s+19`, out)

	// second run inserts nothing
	out, err = execute(t, "load", "--config", cfg)
	require.NoError(t, err)
	assert.Regexp(t, `produtos\s+4\s+0`, out)
}

func TestLoadWithoutSchemaFails(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "load", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, out, "FAILED")
}

func TestParseDryRun(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "parse", "--config", cfg, "--workers", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "line 41")
	assert.Regexp(t, `categoria\s+12`, out)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(cfg), "catalog.db"))
}

func TestInvalidConfig(t *testing.T) {
	_, err := execute(t, "parse", "--config", writeConfig(t), "--workers", "0")
	assert.ErrorContains(t, err, "workers")
}
