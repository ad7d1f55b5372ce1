package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareCommandWritesExports(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(a, []byte("#Cavity\nTotal Cost,1000\nCavity,S136,,2,10,20\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("#Cavity\nTotal Cost,800\n"), 0o644))
	csvOut := filepath.Join(dir, "out.csv")
	xlsxOut := filepath.Join(dir, "out.xlsx")

	t.Setenv("DATA_DIR", dir)
	t.Setenv("LOG_LEVEL", "error")
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"compare", a, b, "--csv", csvOut, "--xlsx", xlsxOut, "--format", "table"})
	require.NoError(t, rootCmd.Execute())

	require.Contains(t, stdout.String(), "Cavity Unit Cost(RMB)")
	blob, err := os.ReadFile(csvOut)
	require.NoError(t, err)
	require.Equal(t, "\n# Cavity\nField,a.csv,b.csv\nTotal Cost,1000,800\n", string(blob))
	require.FileExists(t, xlsxOut)
}

func TestImportCommandPrintsFormFields(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "quote.csv")
	require.NoError(t, os.WriteFile(src, []byte("Program Name,P100\nCavity,S136,Nitriding\n"), 0o644))

	t.Setenv("DATA_DIR", dir)
	t.Setenv("LOG_LEVEL", "error")
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"import", src})
	require.NoError(t, rootCmd.Execute())

	require.Contains(t, stdout.String(), `"program_name": "P100"`)
	require.Contains(t, stdout.String(), `"cavity_treatment": "Nitriding"`)
}
