// Package verification scores job completion photos and classifies their GPS
// accuracy.
package verification

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Status is the review state of a photo.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

// Accuracy is a GPS accuracy band.
type Accuracy string

const (
	AccuracyExcellent Accuracy = "excellent"
	AccuracyGood      Accuracy = "good"
	AccuracyFair      Accuracy = "fair"
	AccuracyPoor      Accuracy = "poor"
	AccuracyNone      Accuracy = "none"
)

var (
	// ErrInvalidTarget is returned when a review targets a status other than verified or rejected.
	ErrInvalidTarget = errors.New("verification: status must be verified or rejected")
	// ErrReasonRequired is returned when a rejection carries no reason.
	ErrReasonRequired = errors.New("verification: rejection reason required")
)

// Photo is the part of a job photo relevant to scoring.
type Photo struct {
	ID        int64
	JobID     string
	Status    Status
	Latitude  *float64
	Longitude *float64
	AccuracyM *float64
}

// Score returns round(100 * verified / total), or 0 when total is zero.
func Score(verified, total int) int {
	if total <= 0 || verified <= 0 {
		return 0
	}
	if verified > total {
		verified = total
	}
	return int(math.Round(100 * float64(verified) / float64(total)))
}

// ClassifyAccuracy places a GPS fix on the accuracy ladder. A fix without
// coordinates or without a reported accuracy is none.
func ClassifyAccuracy(lat, lng, accuracyMeters *float64) Accuracy {
	if lat == nil || lng == nil || accuracyMeters == nil || *accuracyMeters < 0 {
		return AccuracyNone
	}
	switch m := *accuracyMeters; {
	case m <= 10:
		return AccuracyExcellent
	case m <= 30:
		return AccuracyGood
	case m <= 100:
		return AccuracyFair
	default:
		return AccuracyPoor
	}
}

// Summary aggregates the photos of one job.
type Summary struct {
	JobID    string           `json:"jobId"`
	Total    int              `json:"total"`
	Verified int              `json:"verified"`
	Rejected int              `json:"rejected"`
	Pending  int              `json:"pending"`
	Score    int              `json:"score"`
	Accuracy map[Accuracy]int `json:"accuracy"`
}

// Summarize counts photos by status and accuracy band.
func Summarize(jobID string, photos []Photo) Summary {
	s := Summary{JobID: jobID, Accuracy: map[Accuracy]int{}}
	for _, p := range photos {
		s.Total++
		switch p.Status {
		case StatusVerified:
			s.Verified++
		case StatusRejected:
			s.Rejected++
		default:
			s.Pending++
		}
		s.Accuracy[ClassifyAccuracy(p.Latitude, p.Longitude, p.AccuracyM)]++
	}
	s.Score = Score(s.Verified, s.Total)
	return s
}

// ValidateTransition checks a reviewer action. Any photo may be re-reviewed;
// the new state overwrites the previous one.
func ValidateTransition(target Status, reason string) error {
	switch target {
	case StatusVerified:
		return nil
	case StatusRejected:
		if strings.TrimSpace(reason) == "" {
			return ErrReasonRequired
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidTarget, target)
}

// Digest returns the hex blake2b-256 digest of photo content.
func Digest(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}
