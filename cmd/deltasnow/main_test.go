package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hsInput = `stn,year,date,hs
A,2021,2021-01-01,0
A,2021,2021-01-02,10
A,2021,2021-01-03,10
B,2021,2021-01-01,0
B,2021,2021-01-02,30
`

func TestRunWritesCSV(t *testing.T) {
	var out bytes.Buffer
	code := run(context.Background(), []string{"-hs-unit", "cm", "-workers", "2"}, strings.NewReader(hsInput), &out)
	require.Equal(t, exitOK, code)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "stn,year,date,hs,swe", lines[0])
	assert.Equal(t, "A,2021,2021-01-02,10,8.119417", lines[2])
	assert.True(t, strings.HasPrefix(lines[5], "B,2021,2021-01-02,30,24.35825"))
}

func TestRunJSONToFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "hs.csv")
	output := filepath.Join(dir, "swe.json")
	require.NoError(t, os.WriteFile(input, []byte(hsInput), 0o644))

	code := run(context.Background(), []string{"-input", input, "-output", output, "-format", "json", "-hs-unit", "cm"}, nil, &bytes.Buffer{})
	require.Equal(t, exitOK, code)

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"run_id"`)
	assert.Contains(t, string(content), `"stn":"B"`)
}

func TestRunReference(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "hs.csv")
	require.NoError(t, os.WriteFile(input, []byte("date,hs\n2021-01-01,0\n2021-01-02,0.1\n"), 0o644))

	good := filepath.Join(dir, "good.csv")
	require.NoError(t, os.WriteFile(good, []byte("date,swe\n2021-01-01,0\n2021-01-02,8.5\n"), 0o644))
	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("date,swe\n2021-01-01,0\n2021-01-02,12\n"), 0o644))

	code := run(context.Background(), []string{"-input", input, "-reference", good}, nil, &bytes.Buffer{})
	assert.Equal(t, exitOK, code)

	code = run(context.Background(), []string{"-input", input, "-reference", bad}, nil, &bytes.Buffer{})
	assert.Equal(t, exitNoParity, code)

	code = run(context.Background(), []string{"-input", input, "-reference", bad, "-tolerance", "5"}, nil, &bytes.Buffer{})
	assert.Equal(t, exitOK, code)
}

func TestRunSaveProfile(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "profiles.db")

	code := run(context.Background(), []string{"-config", db, "-save-profile", "field", "-hs-unit", "cm"}, nil, &bytes.Buffer{})
	require.Equal(t, exitOK, code)

	var out bytes.Buffer
	code = run(context.Background(), []string{"-config", db, "-profile", "field"}, strings.NewReader(hsInput), &out)
	require.Equal(t, exitOK, code)
	assert.Contains(t, out.String(), "A,2021,2021-01-02,10,8.119417")

	// a new profile can start from a stored one
	code = run(context.Background(), []string{"-config", db, "-profile", "field", "-save-profile", "field-gaps", "-max-gap", "5"}, nil, &bytes.Buffer{})
	require.Equal(t, exitOK, code)

	code = run(context.Background(), []string{"-config", db, "-profile", "field-gaps"}, strings.NewReader(hsInput), &bytes.Buffer{})
	assert.Equal(t, exitOK, code)

	code = run(context.Background(), []string{"-save-profile", "field"}, nil, &bytes.Buffer{})
	assert.Equal(t, exitError, code, "no database given")

	yamlFile := filepath.Join(dir, "deltasnow.yaml")
	require.NoError(t, os.WriteFile(yamlFile, []byte("workers: 2\n"), 0o644))
	code = run(context.Background(), []string{"-config", yamlFile, "-save-profile", "field"}, nil, &bytes.Buffer{})
	assert.Equal(t, exitError, code, "YAML sources are read-only")
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		input string
	}{
		{"bad unit", []string{"-hs-unit", "inch"}, hsInput},
		{"bad format", []string{"-format", "xml"}, hsInput},
		{"negative depth", nil, "date,hs\n2021-01-01,0\n2021-01-02,-1\n"},
		{"missing config", []string{"-config", "does-not-exist.yaml"}, hsInput},
		{"unknown flag", []string{"-frobnicate"}, hsInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := run(context.Background(), tt.args, strings.NewReader(tt.input), &bytes.Buffer{})
			assert.Equal(t, exitError, code)
		})
	}
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	require.Equal(t, exitOK, run(context.Background(), []string{"-version"}, nil, &out))
	assert.True(t, strings.HasPrefix(out.String(), "deltasnow "))
}
