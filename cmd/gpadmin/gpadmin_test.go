package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/grampanchayat/villagestats_backend/config"
	"github.com/grampanchayat/villagestats_backend/docstore"
	"github.com/grampanchayat/villagestats_backend/models"
	"github.com/grampanchayat/villagestats_backend/utils"
	"github.com/stretchr/testify/require"
)

func useMemoryStore(t *testing.T) {
	t.Helper()
	s, err := docstore.OpenInMemory()
	require.NoError(t, err)
	config.SetDocStore(s)
	t.Cleanup(func() {
		config.SetDocStore(nil)
		_ = s.Close()
	})
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTenantCreateFromFile(t *testing.T) {
	useMemoryStore(t)
	file := filepath.Join(t.TempDir(), "tenant.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
id: wagholi
name: Wagholi
nameMr: वाघोली
domain: wagholi.example.in
adminEmail: admin@wagholi.example.in
`), 0o600))

	out, err := run(t, "tenant", "create", "--file", file, "--name", "Wagholi GP")
	require.NoError(t, err, out)
	require.Contains(t, out, "created gram panchayat wagholi (Wagholi GP)")
	require.Contains(t, out, "generated password: ")

	gp, err := models.GetGramPanchayat(context.Background(), "wagholi")
	require.NoError(t, err)
	require.Equal(t, "वाघोली", gp.NameMr)

	var password string
	for _, line := range strings.Split(out, "\n") {
		if p, ok := strings.CutPrefix(line, "generated password: "); ok {
			password = p
		}
	}
	_, err = models.Authenticate(context.Background(), "admin@wagholi.example.in", password)
	require.NoError(t, err)

	_, err = run(t, "tenant", "create", "--file", file)
	require.Error(t, err)
}

func TestYearsAndOrphans(t *testing.T) {
	useMemoryStore(t)
	_, err := run(t, "tenant", "create", "--id", "wagholi", "--name", "Wagholi",
		"--domain", "wagholi.example.in", "--admin-email", "admin@wagholi.example.in", "--admin-password", "s3cret-pass")
	require.NoError(t, err)

	out, err := run(t, "years", "add", "--tenant", "wagholi", "--year", "2001")
	require.NoError(t, err, out)
	require.Contains(t, out, "added year 2001")

	_, err = run(t, "years", "add", "--tenant", "wagholi", "--year", "1800")
	require.Error(t, err)
	_, err = run(t, "years", "list")
	require.Error(t, err)
	_, err = run(t, "years", "list", "--tenant", "nowhere")
	require.Error(t, err)

	out, err = run(t, "years", "list", "--tenant", "WAGHOLI")
	require.NoError(t, err)
	require.Equal(t, []string{time.Now().Format("2006"), "2001"}, strings.Fields(out))

	out, err = run(t, "orphans", "list", "--tenant", "wagholi")
	require.NoError(t, err)
	require.Contains(t, out, "0 orphaned rows")
	out, err = run(t, "orphans", "purge", "--tenant", "wagholi")
	require.NoError(t, err)
	require.Contains(t, out, "purged 0 orphaned rows")
}

func TestReportRender(t *testing.T) {
	useMemoryStore(t)
	t.Setenv("GCS_BUCKET", "")
	_, err := run(t, "tenant", "create", "--id", "wagholi", "--name", "Wagholi",
		"--domain", "wagholi.example.in", "--admin-email", "admin@wagholi.example.in", "--admin-password", "s3cret-pass")
	require.NoError(t, err)

	_, err = run(t, "report", "render", "--tenant", "wagholi", "--year", "2024")
	require.Error(t, err)
	require.Contains(t, err.Error(), "No data available for year 2024")

	ctx := context.Background()
	_, err = models.CreateVillage(utils.SetTenantIdInContext(ctx, "wagholi"), &models.NewVillage{NameEn: "A", NameMr: "A"})
	require.NoError(t, err)

	dir := t.TempDir()
	out, err := run(t, "report", "render", "--tenant", "wagholi", "--year", "2024", "--format", "xlsx", "--out", dir)
	require.NoError(t, err, out)
	matches, err := filepath.Glob(filepath.Join(dir, "Village_Statistics_2024_*.xlsx"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	_, err = run(t, "report", "render", "--tenant", "wagholi", "--year", "2024", "--format", "docx")
	require.Error(t, err)
}
