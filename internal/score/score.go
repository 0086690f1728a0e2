// Package score computes build queue candidate scores. Builders always pick
// the highest scoring candidate they can build.
package score

import (
	"time"

	"github.com/distr1/soyuz/internal/store"
)

var urgencyScore = map[string]int64{
	"low":       5,
	"medium":    10,
	"high":      15,
	"emergency": 20,
}

var pocketScore = map[string]int64{
	"release":   1500,
	"updates":   1500,
	"security":  4500,
	"proposed":  500,
	"backports": 0,
}

var componentScore = map[string]int64{
	"main":       1000,
	"restricted": 750,
	"universe":   250,
	"multiverse": 0,
	"partner":    0,
}

const (
	// MaxAgeScore caps the queue age term: after a day in the queue, a
	// candidate stops gaining points.
	MaxAgeScore = 1440

	PrivateBonus = 10000
	CopyPenalty  = -2600
)

// Score returns the score of c at now.
func Score(c *store.Candidate, now time.Time) int64 {
	score := urgencyScore[c.Urgency] +
		pocketScore[c.Pocket] +
		componentScore[c.Component]

	if !c.DateQueued.IsZero() {
		age := int64(now.Sub(c.DateQueued) / time.Minute)
		if age > MaxAgeScore {
			age = MaxAgeScore
		}
		if age > 0 {
			score += age
		}
	}

	if c.ArchivePrivate {
		score += PrivateBonus
	}
	if c.ArchivePurpose == store.PurposeCopy {
		score += CopyPenalty
	}
	return score + c.RelativeBuildScore
}

// Less reports whether a should be dispatched after b: lower scores go
// last, and among equal scores the younger queue entry goes last.
func Less(a, b *store.Candidate) bool {
	if a.LastScore != b.LastScore {
		return a.LastScore < b.LastScore
	}
	return a.QueueID > b.QueueID
}
