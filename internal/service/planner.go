package service

import (
	"strings"
	"time"
)

type SyncMode string

const (
	SyncModeManual      SyncMode = "manual"
	SyncModeIncremental SyncMode = "incremental"
	SyncModeFull        SyncMode = "full"
)

// SyncWindow is the date range used to scope a mailbox search. Bounds are in
// Gmail's YYYY/MM/DD query form; an empty string leaves that side unbounded.
type SyncWindow struct {
	Start string
	End   string
	Mode  SyncMode
}

// PlanSyncWindow computes the search window for one run. Caller-supplied
// bounds (YYYY-MM-DD) win when both are present and are taken verbatim; a
// stored sync cursor yields an open-ended incremental window; a user that has
// never synced gets an unbounded full scan. Pure function, no side effects.
func PlanSyncWindow(lastSync *time.Time, startDate, endDate string) SyncWindow {
	if startDate != "" && endDate != "" {
		return SyncWindow{
			Start: toGmailDate(startDate),
			End:   toGmailDate(endDate),
			Mode:  SyncModeManual,
		}
	}

	if lastSync != nil {
		return SyncWindow{
			Start: lastSync.UTC().Format("2006/01/02"),
			Mode:  SyncModeIncremental,
		}
	}

	return SyncWindow{Mode: SyncModeFull}
}

// toGmailDate rewrites an ISO date into Gmail's slash-separated query form.
func toGmailDate(isoDate string) string {
	return strings.ReplaceAll(isoDate, "-", "/")
}
