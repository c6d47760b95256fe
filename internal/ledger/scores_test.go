package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/commitflow/internal/store"
)

var testDay = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestDerive_SingleCommitContributor(t *testing.T) {
	t.Parallel()

	entry := store.LedgerEntry{
		Email:         "solo@example.com",
		Commits:       1,
		LinesAdded:    100,
		FilesChanged:  2,
		FirstCommitAt: testDay,
		LastCommitAt:  testDay,
	}

	scores := Derive(entry)

	// One commit plus 100 added lines = 2 units over one active day.
	assert.InDelta(t, 20.0, scores.Productivity, 0.001)
	// No churn at all.
	assert.InDelta(t, 100.0, scores.Quality, 0.001)
	assert.InDelta(t, 10.0, scores.Impact, 0.001)
	assert.InDelta(t, 20.0, scores.Consistency, 0.001)
}

func TestDerive_ChurnLowersQuality(t *testing.T) {
	t.Parallel()

	entry := store.LedgerEntry{
		Commits:       10,
		LinesAdded:    100,
		LinesModified: 200,
		LinesDeleted:  100,
		FirstCommitAt: testDay,
		LastCommitAt:  testDay.Add(9 * 24 * time.Hour),
	}

	scores := Derive(entry)

	assert.InDelta(t, 25.0, scores.Quality, 0.001)
}

func TestDerive_ScoresClampToRange(t *testing.T) {
	t.Parallel()

	entry := store.LedgerEntry{
		Commits:       10_000,
		LinesAdded:    5_000_000,
		FilesChanged:  1_000_000,
		FirstCommitAt: testDay,
		LastCommitAt:  testDay,
	}

	scores := Derive(entry)

	assert.Equal(t, 100.0, scores.Productivity)
	assert.Equal(t, 100.0, scores.Quality)
	assert.Equal(t, 100.0, scores.Impact)
	assert.Equal(t, 100.0, scores.Consistency)
}

func TestDerive_EmptyEntry(t *testing.T) {
	t.Parallel()

	scores := Derive(store.LedgerEntry{FirstCommitAt: testDay, LastCommitAt: testDay})

	assert.Equal(t, 0.0, scores.Productivity)
	assert.Equal(t, 100.0, scores.Quality)
	assert.Equal(t, 0.0, scores.Impact)
	assert.Equal(t, 0.0, scores.Consistency)
}

func TestRank_SortsByProductivity(t *testing.T) {
	t.Parallel()

	low := store.LedgerEntry{
		Email:         "low@example.com",
		Commits:       1,
		FirstCommitAt: testDay,
		LastCommitAt:  testDay,
	}
	high := store.LedgerEntry{
		Email:         "high@example.com",
		Commits:       8,
		LinesAdded:    500,
		FirstCommitAt: testDay,
		LastCommitAt:  testDay,
	}

	ranked := Rank([]store.LedgerEntry{low, high})

	assert.Equal(t, "high@example.com", ranked[0].Entry.Email)
	assert.Equal(t, "low@example.com", ranked[1].Entry.Email)
}
