package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/commitflow/internal/store"
)

// seedReportStore builds a database file with one project and one ledger
// entry and returns a config file pointing at it.
func seedReportStore(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "report.db")

	st, err := store.Open(dbPath)
	require.NoError(t, err)

	ctx := context.Background()

	project := &store.Project{Key: "acme-app", ExternalID: 1}
	require.NoError(t, st.CreateProject(ctx, project))

	require.NoError(t, st.WithTx(ctx, func(tx *store.Tx) error {
		return tx.ApplyLedgerDelta(ctx, store.LedgerDelta{
			ProjectID:    project.ID,
			Email:        "alice@example.com",
			Name:         "Alice",
			LinesAdded:   1200,
			FilesChanged: 4,
			CommittedAt:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		})
	}))
	require.NoError(t, st.Close())

	configPath := filepath.Join(dir, "config.yaml")
	configBody := fmt.Sprintf("store:\n  path: %q\n", dbPath)
	require.NoError(t, os.WriteFile(configPath, []byte(configBody), 0o600))

	return configPath
}

func TestReport_Table(t *testing.T) {
	t.Parallel()

	rc := &ReportCommand{
		configPath: seedReportStore(t),
		projectKey: "acme-app",
		format:     formatTable,
		noColor:    true,
	}

	var out bytes.Buffer

	require.NoError(t, rc.run(context.Background(), &out))

	assert.Contains(t, out.String(), "Alice <alice@example.com>")
	assert.Contains(t, out.String(), "1,200")
}

func TestReport_YAML(t *testing.T) {
	t.Parallel()

	rc := &ReportCommand{
		configPath: seedReportStore(t),
		projectKey: "acme-app",
		format:     formatYAML,
	}

	var out bytes.Buffer

	require.NoError(t, rc.run(context.Background(), &out))

	assert.Contains(t, out.String(), "alice@example.com")
	assert.Contains(t, out.String(), "productivity:")
}

func TestReport_UnknownFormat(t *testing.T) {
	t.Parallel()

	rc := &ReportCommand{
		configPath: seedReportStore(t),
		projectKey: "acme-app",
		format:     "xml",
	}

	err := rc.run(context.Background(), &bytes.Buffer{})
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestReport_UnknownProject(t *testing.T) {
	t.Parallel()

	rc := &ReportCommand{
		configPath: seedReportStore(t),
		projectKey: "missing",
		format:     formatTable,
	}

	err := rc.run(context.Background(), &bytes.Buffer{})
	require.ErrorIs(t, err, store.ErrProjectNotFound)
}
