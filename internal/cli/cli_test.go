package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/worklog/internal/config"
	"github.com/sadopc/worklog/internal/migrate"
)

const payload = `{
	"2025-03-05": {"tasks": [
		{"text": "Invoice", "assignedBy": ["Marta"], "startTime": "09:00", "endTime": "11:00", "status": "w trakcie"},
		"Clean office"
	]}
}`

func writeConfig(t *testing.T, cfg config.Config) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.Save(path, &cfg))
	return path
}

func jsonSetup(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := writeConfig(t, config.Config{Mode: config.ModeJSON, DataDir: dir, UserID: 1, ClientID: 2})
	return path, dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func savePayload(t *testing.T, cfgFile string) {
	t.Helper()
	file := filepath.Join(t.TempDir(), "days.json")
	require.NoError(t, os.WriteFile(file, []byte(payload), 0o644))
	out, err := run(t, "", "save", "--config", cfgFile, "--user", "1", "--client", "2", "--month", "2025-03", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved 1 days of 2025-03 to the json backend")
}

func TestSaveThenMonth(t *testing.T) {
	cfgFile, _ := jsonSetup(t)
	savePayload(t, cfgFile)

	out, err := run(t, "", "month", "--config", cfgFile, "--user", "1", "--client", "2", "--month", "2025-03")
	require.NoError(t, err)
	assert.Contains(t, out, "Invoice")
	assert.Contains(t, out, "Clean office")
	assert.Contains(t, out, "Total 2025-03: 8.00h")
}

func TestSaveFromStdin(t *testing.T) {
	cfgFile, _ := jsonSetup(t)
	_, err := run(t, payload, "save", "--config", cfgFile, "--user", "1", "--client", "2", "--month", "2025-03", "--file", "-")
	require.NoError(t, err)

	out, err := run(t, "", "month", "--config", cfgFile, "--user", "1", "--client", "2", "--month", "2025-03")
	require.NoError(t, err)
	assert.Contains(t, out, "Invoice")
}

func TestMonthEmpty(t *testing.T) {
	cfgFile, _ := jsonSetup(t)
	out, err := run(t, "", "month", "--config", cfgFile, "--user", "1", "--client", "2", "--month", "2024-01")
	require.NoError(t, err)
	assert.Contains(t, out, "No tasks in 2024-01")
}

func TestMonthRejectsBadMonth(t *testing.T) {
	cfgFile, _ := jsonSetup(t)
	_, err := run(t, "", "month", "--config", cfgFile, "--user", "1", "--client", "2", "--month", "March")
	assert.Error(t, err)
}

func TestExportCSVToStdout(t *testing.T) {
	cfgFile, _ := jsonSetup(t)
	savePayload(t, cfgFile)

	out, err := run(t, "", "export", "--config", cfgFile, "--user", "1", "--client", "2", "--month", "2025-03", "--format", "csv", "--out", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Date,Task ID,Description")
	assert.Contains(t, out, "Invoice")
}

func TestExportJSONToFile(t *testing.T) {
	cfgFile, _ := jsonSetup(t)
	savePayload(t, cfgFile)
	target := filepath.Join(t.TempDir(), "march.json")

	_, err := run(t, "", "export", "--config", cfgFile, "--user", "1", "--client", "2", "--month", "2025-03", "--format", "json", "--out", target)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"client": "Client 2"`)
	assert.Contains(t, string(data), `"total_hours": 8`)
}

func TestExportUnknownFormat(t *testing.T) {
	cfgFile, _ := jsonSetup(t)
	_, err := run(t, "", "export", "--config", cfgFile, "--user", "1", "--client", "2", "--month", "2025-03", "--format", "xml", "--out", "-")
	assert.ErrorContains(t, err, "unknown format")
}

func TestMigrateNeedsDatabase(t *testing.T) {
	cfgFile, _ := jsonSetup(t)
	_, err := run(t, "", "migrate", "--config", cfgFile, "--user", "1")
	assert.True(t, errors.Is(err, migrate.ErrNoDatabase), "got %v", err)
}

func TestMigrateIntoSQLite(t *testing.T) {
	dir := t.TempDir()
	cfgFile := writeConfig(t, config.Config{
		Mode:     config.ModeJSON,
		DataDir:  dir,
		UserID:   1,
		ClientID: 2,
		Database: config.Database{Driver: config.DriverSQLite, Path: filepath.Join(dir, "worklog.db")},
	})
	savePayload(t, cfgFile)

	out, err := run(t, "", "migrate", "--config", cfgFile, "--user", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "2 inserted")
	assert.Contains(t, out, "0 errors")

	out, err = run(t, "", "migrate", "--config", cfgFile, "--user", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "0 inserted, 0 updated, 0 deleted, 2 unchanged")
}

func TestScopeRequiresClient(t *testing.T) {
	dir := t.TempDir()
	cfgFile := writeConfig(t, config.Config{Mode: config.ModeJSON, DataDir: dir, UserID: 1})
	_, err := run(t, "", "month", "--config", cfgFile, "--user", "1", "--client", "0", "--month", "2025-03")
	assert.ErrorContains(t, err, "client id is required")
}

func TestConfigShowMasksPassword(t *testing.T) {
	cfgFile := writeConfig(t, config.Config{
		Mode:     config.ModeMySQL,
		UserID:   1,
		Database: config.Database{Driver: config.DriverMySQL, Host: "db", User: "app", Password: "hunter2", Name: "worklog"},
	})
	out, err := run(t, "", "config", "--config", cfgFile, "--show")
	require.NoError(t, err)
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "host: db")
}
