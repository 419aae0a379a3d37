// Package scanguard holds the one-shot flag for a scanner session.
//
// A scan session is opened when the user starts the camera. The first decode
// claims it; any further decode on the same session is rejected so one
// physical scan produces exactly one check-in. Closing the scanner before a
// decode discards the session with no side effects.
package scanguard

import (
	"context"
	"errors"
	"time"
)

var (
	ErrScanNotFound    = errors.New("scan session not found")
	ErrDuplicateDecode = errors.New("scan session already claimed")
)

const DefaultTTL = 2 * time.Minute

type Scan struct {
	ID        string    `json:"scanId"`
	UserID    string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Guard interface {
	Open(ctx context.Context, userID string) (Scan, error)
	// Claim marks the scan as consumed. Unknown, expired or foreign scans
	// return ErrScanNotFound; a second claim returns ErrDuplicateDecode.
	Claim(ctx context.Context, scanID, userID string) error
	// Close discards the scan. Unknown scans are a no-op.
	Close(ctx context.Context, scanID, userID string) error
}

func ownerKey(scanID string) string   { return "scan:" + scanID }
func claimedKey(scanID string) string { return "scan:" + scanID + ":claimed" }
