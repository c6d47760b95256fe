package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/commitflow/internal/directive"
)

const (
	testHash  = "a1b2c3d4"
	testEmail = "alice@example.com"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := Open(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() { _ = st.Close() })

	return st
}

func seedProject(t *testing.T, st *Store) *Project {
	t.Helper()

	project := &Project{Key: "acme-app", ExternalID: 42, HTMLURL: "https://git.example.com/acme/app", Secret: "s3cret"}
	require.NoError(t, st.CreateProject(context.Background(), project))

	return project
}

func TestProjectByRepository(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	project := seedProject(t, st)
	ctx := context.Background()

	byID, err := st.ProjectByRepository(ctx, 42, "")
	require.NoError(t, err)
	assert.Equal(t, project.ID, byID.ID)

	byURL, err := st.ProjectByRepository(ctx, 0, "https://git.example.com/acme/app")
	require.NoError(t, err)
	assert.Equal(t, project.ID, byURL.ID)

	_, err = st.ProjectByRepository(ctx, 999, "https://nowhere")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestUserByToken(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()

	user := &User{Nickname: "alice", Email: testEmail, Name: "Alice"}
	require.NoError(t, st.CreateUser(ctx, user))

	byNick, err := st.UserByToken(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byNick.ID)

	byEmail, err := st.UserByToken(ctx, testEmail)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = st.UserByToken(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestInsertCommit_Deduplicates(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	project := seedProject(t, st)
	ctx := context.Background()

	record := &CommitRecord{
		ProjectID:  project.ID,
		Hash:       testHash,
		Message:    "Feature1: Thing",
		AuthoredAt: time.Now(),
	}

	err := st.WithTx(ctx, func(tx *Tx) error {
		inserted, err := tx.InsertCommit(ctx, record)
		require.NoError(t, err)
		assert.True(t, inserted)

		return nil
	})
	require.NoError(t, err)

	exists, err := st.CommitExists(ctx, project.ID, testHash)
	require.NoError(t, err)
	assert.True(t, exists)

	// Second delivery of the same (project, hash) must be a silent no-op.
	err = st.WithTx(ctx, func(tx *Tx) error {
		duplicate := &CommitRecord{ProjectID: project.ID, Hash: testHash, AuthoredAt: time.Now()}

		inserted, err := tx.InsertCommit(ctx, duplicate)
		require.NoError(t, err)
		assert.False(t, inserted)

		return nil
	})
	require.NoError(t, err)

	commits, err := st.ListCommits(ctx, project.ID, 10)
	require.NoError(t, err)
	assert.Len(t, commits, 1)
}

func TestTaskRoundtrip(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	project := seedProject(t, st)
	ctx := context.Background()

	sprint := "3"
	points := 5

	task := &Task{
		ProjectID:   project.ID,
		FeatureCode: "Feature12",
		Title:       "Build login",
		Status:      directive.StatusInProgress,
		Sprint:      &sprint,
		StoryPoints: &points,
		Tags:        []string{"perf", "auth"},
	}

	err := st.WithTx(ctx, func(tx *Tx) error {
		return tx.CreateTask(ctx, task)
	})
	require.NoError(t, err)

	err = st.WithTx(ctx, func(tx *Tx) error {
		got, err := tx.TaskByFeature(ctx, project.ID, "Feature12")
		require.NoError(t, err)

		assert.Equal(t, "Build login", got.Title)
		assert.Equal(t, directive.StatusInProgress, got.Status)
		assert.Equal(t, []string{"perf", "auth"}, got.Tags)
		require.NotNil(t, got.Sprint)
		assert.Equal(t, "3", *got.Sprint)
		require.NotNil(t, got.StoryPoints)
		assert.Equal(t, 5, *got.StoryPoints)

		got.Status = directive.StatusDone
		got.Tags = append(got.Tags, "cleanup")

		return tx.UpdateTask(ctx, got)
	})
	require.NoError(t, err)

	tasks, err := st.ListTasks(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, directive.StatusDone, tasks[0].Status)
	assert.Equal(t, []string{"perf", "auth", "cleanup"}, tasks[0].Tags)

	err = st.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.TaskByFeature(ctx, project.ID, "Feature99")

		return err
	})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestApplyLedgerDelta_Accumulates(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	project := seedProject(t, st)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	deltas := []LedgerDelta{
		{
			ProjectID: project.ID, Email: testEmail, Name: "Alice",
			LinesAdded: 10, LinesModified: 2, LinesDeleted: 1, FilesChanged: 3,
			Languages:   map[string]LineStats{"Go": {Added: 10, Modified: 2, Deleted: 1}},
			CommittedAt: base.Add(time.Hour),
		},
		{
			ProjectID: project.ID, Email: testEmail, Name: "Alice",
			LinesAdded: 4, FilesChanged: 1,
			Languages:   map[string]LineStats{"Go": {Added: 4}},
			CommittedAt: base,
		},
		{
			ProjectID: project.ID, Email: testEmail, Name: "Alice",
			LinesDeleted: 6, FilesChanged: 2,
			Languages:   map[string]LineStats{"Python": {Deleted: 6}},
			CommittedAt: base.Add(2 * time.Hour),
		},
	}

	for _, delta := range deltas {
		require.NoError(t, st.WithTx(ctx, func(tx *Tx) error {
			return tx.ApplyLedgerDelta(ctx, delta)
		}))
	}

	entries, err := st.ListLedger(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, 3, entry.Commits)
	assert.Equal(t, 14, entry.LinesAdded)
	assert.Equal(t, 2, entry.LinesModified)
	assert.Equal(t, 7, entry.LinesDeleted)
	assert.Equal(t, 6, entry.FilesChanged)
	assert.Equal(t, LineStats{Added: 14, Modified: 2, Deleted: 1}, entry.Languages["Go"])
	assert.Equal(t, LineStats{Deleted: 6}, entry.Languages["Python"])
	assert.True(t, entry.FirstCommitAt.Equal(base), "min timestamp")
	assert.True(t, entry.LastCommitAt.Equal(base.Add(2*time.Hour)), "max timestamp")
}

func TestApplyLedgerDelta_OrderIndependent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	makeDeltas := func(projectID int64) []LedgerDelta {
		return []LedgerDelta{
			{ProjectID: projectID, Email: testEmail, LinesAdded: 5, FilesChanged: 1, CommittedAt: base},
			{ProjectID: projectID, Email: testEmail, LinesModified: 3, FilesChanged: 2, CommittedAt: base.Add(time.Hour)},
			{ProjectID: projectID, Email: testEmail, LinesDeleted: 7, FilesChanged: 1, CommittedAt: base.Add(2 * time.Hour)},
		}
	}

	apply := func(st *Store, projectID int64, order []int) LedgerEntry {
		deltas := makeDeltas(projectID)

		for _, i := range order {
			require.NoError(t, st.WithTx(ctx, func(tx *Tx) error {
				return tx.ApplyLedgerDelta(ctx, deltas[i])
			}))
		}

		entries, err := st.ListLedger(ctx, projectID)
		require.NoError(t, err)
		require.Len(t, entries, 1)

		return entries[0]
	}

	stA := openTestStore(t)
	entryA := apply(stA, seedProject(t, stA).ID, []int{0, 1, 2})

	stB := openTestStore(t)
	entryB := apply(stB, seedProject(t, stB).ID, []int{2, 0, 1})

	entryA.ID, entryB.ID = 0, 0
	entryA.ProjectID, entryB.ProjectID = 0, 0
	assert.Equal(t, entryA, entryB, "ledger totals commute across processing order")
}

func TestArchivePayload_Roundtrip(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	project := seedProject(t, st)
	ctx := context.Background()

	body := []byte(`{"repository":{"id":42},"commits":[{"id":"a","message":"` +
		"compressible compressible compressible compressible compressible" +
		`","timestamp":"2025-06-01T10:00:00Z"}]}`)

	archived := &ArchivedPayload{
		DeliveryID: "delivery-1",
		ProjectID:  project.ID,
		Provider:   "github",
		Body:       body,
	}
	require.NoError(t, st.ArchivePayload(ctx, archived))

	loaded, err := st.PayloadByID(ctx, archived.ID)
	require.NoError(t, err)

	assert.Equal(t, body, loaded.Body)
	assert.Equal(t, "delivery-1", loaded.DeliveryID)
	assert.Equal(t, "github", loaded.Provider)
}
