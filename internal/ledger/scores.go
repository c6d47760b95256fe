// Package ledger derives contributor scores from the running totals kept by
// the store. Scores are computed at read time from the additive counters, so
// adjusting a weight constant re-scores all history without a migration.
package ledger

import (
	"math"
	"time"

	"github.com/Sumatoshi-tech/commitflow/internal/store"
)

// Score weights and normalization caps. Tuned against repositories in the
// thousands-of-commits range; all derived scores clamp to scoreMin..scoreMax.
const (
	scoreMin = 0.0
	scoreMax = 100.0

	// lineWeightDivisor converts added+modified lines into commit-equivalent
	// productivity units.
	lineWeightDivisor = 100.0

	// productivityDayCap is the per-active-day productivity that maps to a
	// full score.
	productivityDayCap = 10.0

	// impactFilesCap is the files-per-commit figure that maps to a full
	// impact score.
	impactFilesCap = 20.0

	// consistencyDayCap is the commits-per-active-day figure that maps to a
	// full consistency score.
	consistencyDayCap = 5.0
)

// Scores are the derived 0..100 contributor metrics.
type Scores struct {
	Productivity float64 `json:"productivity" yaml:"productivity"`
	Quality      float64 `json:"quality"      yaml:"quality"`
	Impact       float64 `json:"impact"       yaml:"impact"`
	Consistency  float64 `json:"consistency"  yaml:"consistency"`
}

// Contributor pairs a ledger entry with its derived scores.
type Contributor struct {
	Entry  store.LedgerEntry `json:"entry"  yaml:"entry"`
	Scores Scores            `json:"scores" yaml:"scores"`
}

// Derive computes the four scores for one ledger entry.
func Derive(entry store.LedgerEntry) Scores {
	days := activeDays(entry.FirstCommitAt, entry.LastCommitAt)

	return Scores{
		Productivity: productivity(entry, days),
		Quality:      quality(entry),
		Impact:       impact(entry),
		Consistency:  consistency(entry, days),
	}
}

// Rank derives scores for every entry and returns contributors sorted by
// productivity, highest first. Ties keep the store's ordering.
func Rank(entries []store.LedgerEntry) []Contributor {
	contributors := make([]Contributor, 0, len(entries))

	for _, entry := range entries {
		contributors = append(contributors, Contributor{Entry: entry, Scores: Derive(entry)})
	}

	for i := 1; i < len(contributors); i++ {
		for j := i; j > 0 && contributors[j].Scores.Productivity > contributors[j-1].Scores.Productivity; j-- {
			contributors[j], contributors[j-1] = contributors[j-1], contributors[j]
		}
	}

	return contributors
}

// activeDays is the whole-day span between the first and last commit,
// never below one so single-commit contributors still score.
func activeDays(first, last time.Time) float64 {
	span := last.Sub(first).Hours() / 24

	return math.Max(1, math.Ceil(span))
}

func productivity(entry store.LedgerEntry, days float64) float64 {
	units := float64(entry.Commits) + float64(entry.LinesAdded+entry.LinesModified)/lineWeightDivisor

	return clamp(units / days / productivityDayCap * scoreMax)
}

// quality inverts churn: contributors whose modified+deleted volume dominates
// their added volume score lower.
func quality(entry store.LedgerEntry) float64 {
	added := float64(entry.LinesAdded)
	churn := float64(entry.LinesModified + entry.LinesDeleted)

	if added+churn == 0 {
		return scoreMax
	}

	return clamp(added / (added + churn) * scoreMax)
}

func impact(entry store.LedgerEntry) float64 {
	if entry.Commits == 0 {
		return scoreMin
	}

	perCommit := float64(entry.FilesChanged) / float64(entry.Commits)

	return clamp(perCommit / impactFilesCap * scoreMax)
}

func consistency(entry store.LedgerEntry, days float64) float64 {
	perDay := float64(entry.Commits) / days

	return clamp(perDay / consistencyDayCap * scoreMax)
}

func clamp(v float64) float64 {
	return math.Min(scoreMax, math.Max(scoreMin, v))
}
