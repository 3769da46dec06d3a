package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/issues-dataset/internal/config"
	"github.com/jonathan/issues-dataset/internal/export"
	"github.com/jonathan/issues-dataset/internal/window"
)

func newTestCommand(f *commonFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)
	return cmd
}

func TestJoinQuery(t *testing.T) {
	assert.Equal(t, "#IDEA", joinQuery([]string{"#IDEA"}))
	assert.Equal(t, "project: KT #Unresolved", joinQuery([]string{"project:", " KT ", "", "#Unresolved"}))
	assert.Empty(t, joinQuery(nil))
}

func TestLoadSettings_DefaultsOnly(t *testing.T) {
	var f commonFlags
	cmd := newTestCommand(&f)

	cfg, err := loadSettings(cmd, &f, nil)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultServerAddress, cfg.ServerAddress)
	assert.Equal(t, config.DefaultQuery, cfg.Query)
	assert.Equal(t, 1000, cfg.PageSize)
	assert.True(t, cfg.InsecureOrDefault())
}

func TestLoadSettings_FlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("query: '#KT'\npage_size: 50\ndirection: desc\n"), 0644))

	var f commonFlags
	cmd := newTestCommand(&f)
	require.NoError(t, cmd.Flags().Set("config", path))
	require.NoError(t, cmd.Flags().Set("page-size", "200"))
	require.NoError(t, cmd.Flags().Set("insecure", "false"))

	cfg, err := loadSettings(cmd, &f, func(cfg *config.Config) {
		cfg.OrderBy = "updated"
	})
	require.NoError(t, err)

	assert.Equal(t, "#KT", cfg.Query)
	assert.Equal(t, 200, cfg.PageSize)
	assert.Equal(t, "desc", cfg.Direction)
	assert.Equal(t, "updated", cfg.OrderBy)
	assert.False(t, cfg.InsecureOrDefault())
}

func TestLoadSettings_InvalidOverride(t *testing.T) {
	var f commonFlags
	cmd := newTestCommand(&f)

	_, err := loadSettings(cmd, &f, func(cfg *config.Config) {
		cfg.Direction = "sideways"
	})
	var dirErr *window.InvalidDirectionError
	assert.ErrorAs(t, err, &dirErr)
}

func TestLoadSettings_MissingConfigFile(t *testing.T) {
	var f commonFlags
	cmd := newTestCommand(&f)
	require.NoError(t, cmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.json")))

	_, err := loadSettings(cmd, &f, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestNewLogger_AppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "download.log")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0644))

	logger, closeLog, err := newLogger(path)
	require.NoError(t, err)
	logger.Printf("Loaded %d issues", 3)
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "previous run", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "Loaded 3 issues"))
}

func TestCollectIssueIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(path, []byte("KT-3\nKT-4\n"), 0644))

	ids, err := collectIssueIDs([]string{"KT-1"}, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"KT-1", "KT-3", "KT-4"}, ids)

	_, err = collectIssueIDs(nil, "")
	assert.ErrorIs(t, err, export.ErrNoIssueSource)
}

func TestFinishRun_WritesManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.manifest.json")
	var logBuf bytes.Buffer
	logger := log.New(&logBuf, "", 0)

	started := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	result := &export.Result{
		RunID:     uuid.New(),
		Totals:    export.Totals{Issues: 2, Activities: 7},
		StartedAt: started,
	}
	runErr := errors.New("window failed")

	err := finishRun(path, export.Manifest{Query: "#IDEA"}, result, runErr, false, logger)
	assert.Equal(t, runErr, err)
	assert.False(t, result.FinishedAt.IsZero())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "#IDEA", m["query"])
	assert.Equal(t, "window failed", m["error"])
	assert.Equal(t, result.RunID.String(), m["run_id"])
}

func TestRecordMirror_NilIsPassthrough(t *testing.T) {
	var m *recordMirror
	assert.Nil(t, m.wrap(nil))
	m.complete(nil, nil)
	m.observe(export.ProgressEvent{Step: export.StepWindowDone})
	assert.Nil(t, progress(false, nil))
	assert.NotNil(t, progress(true, nil))
}
