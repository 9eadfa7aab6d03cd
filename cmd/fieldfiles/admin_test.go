package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gartstein/fieldfiles/internal/pkg/utils"
	"github.com/gartstein/fieldfiles/internal/uploader/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintCompanies(t *testing.T) {
	var buf bytes.Buffer
	err := printCompanies(&buf, []models.Company{
		{ID: 1, Name: "Emerald Green Energy", ContactEmail: utils.Ptr("info@egreen.co.uk")},
		{ID: 2, Name: "Solar Pro"},
	})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Emerald Green Energy")
	assert.Contains(t, buf.String(), "info@egreen.co.uk")
	assert.Contains(t, buf.String(), "Solar Pro")
}

func TestPrintStaff(t *testing.T) {
	var buf bytes.Buffer
	err := printStaff(&buf, []models.Staff{{ID: 1, Name: "Jane Doe", Role: "Surveyor", CompanyID: 1, FolderPath: "/Surveyor/Emerald_Green_Energy"}})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "/Surveyor/Emerald_Green_Energy")
}

func TestCompanyCommands(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	dbPath := filepath.Join(dir, "fieldfiles.db")
	require.NoError(t, os.WriteFile(configPath, []byte("DB_DSN: "+dbPath+"\n"), 0o600))

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		root := newRootCommand(&CLI{})
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(append([]string{"--config", configPath}, args...))
		err := root.Execute()
		return out.String(), err
	}

	out, err := run("company", "add", "Solar Pro", "--email", "hello@solarpro.example")
	require.NoError(t, err)
	assert.Contains(t, out, "created company 2")

	out, err = run("company", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Emerald Green Energy")
	assert.Contains(t, out, "Solar Pro")

	_, err = run("company", "add", "Solar Pro")
	assert.Error(t, err)

	out, err = run("company", "deactivate", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "deactivated company 2")

	out, err = run("company", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Solar Pro")

	_, err = run("company", "deactivate", "abc")
	assert.Error(t, err)

	out, err = run("staff", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "FOLDER")
}
