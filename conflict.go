package docsync

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ConflictType string

const (
	ConflictContent    ConflictType = "content"
	ConflictAnnotation ConflictType = "annotation"
	ConflictForm       ConflictType = "form"
)

// Strategy is the policy chosen to reconcile a conflict.
type Strategy string

const (
	StrategyNewestWins Strategy = "newest-wins"
	StrategyMerge      Strategy = "merge"
	StrategyLocalWins  Strategy = "local-wins"
	StrategyPrompt     Strategy = "prompt"
)

// SyncConflict records a detected divergence between a local and a
// remote document version.
type SyncConflict struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"document_id"`
	Local      DocumentVersion `json:"local_version"`
	Remote     DocumentVersion `json:"remote_version"`
	Type       ConflictType    `json:"conflict_type"`
	DetectedAt time.Time       `json:"detected_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}

// DetectConflict reports whether two versions have truly diverged.
// Identical checksums mean identical bytes, conflict or no change log
// differences. Otherwise the two sides conflict only when their edit-time
// windows overlap; non-overlapping windows are a clean linear history (a
// higher layer may still rebase, see Resolver.NeedsRebase).
func DetectConflict(local, remote DocumentVersion) bool {
	if local.Checksum == remote.Checksum {
		return false
	}
	lmin, lmax, lok := editWindow(local.Changes)
	rmin, rmax, rok := editWindow(remote.Changes)
	if !lok || !rok {
		return false
	}
	return !lmin.After(rmax) && !rmin.After(lmax)
}

func editWindow(changes []EditHistoryEntry) (min, max time.Time, ok bool) {
	for _, c := range changes {
		if !ok || c.Timestamp.Before(min) {
			min = c.Timestamp
		}
		if !ok || c.Timestamp.After(max) {
			max = c.Timestamp
		}
		ok = true
	}
	return
}

// NewConflict builds a conflict record. The conflict type is the most
// frequent change type across both logs collapsed to annotation/form;
// everything else, including ties, is a content conflict.
func NewConflict(docID string, local, remote DocumentVersion) SyncConflict {
	return SyncConflict{
		ID:         uuid.Must(uuid.NewV7()).String(),
		DocumentID: docID,
		Local:      local,
		Remote:     remote,
		Type:       dominantType(local.Changes, remote.Changes),
		DetectedAt: time.Now().UTC(),
	}
}

func dominantType(local, remote []EditHistoryEntry) ConflictType {
	counts := map[ChangeType]int{}
	for _, c := range local {
		counts[c.Type]++
	}
	for _, c := range remote {
		counts[c.Type]++
	}
	best, bestN, tied := ChangeType(""), 0, false
	for t, n := range counts {
		switch {
		case n > bestN:
			best, bestN, tied = t, n, false
		case n == bestN:
			tied = true
		}
	}
	if tied {
		return ConflictContent
	}
	switch best {
	case ChangeAnnotation:
		return ConflictAnnotation
	case ChangeForm:
		return ConflictForm
	default:
		return ConflictContent
	}
}

// RecommendStrategy picks a resolution policy. A large modification-time
// gap means the edits were almost certainly sequential, so the freshest
// side wins outright. Annotation conflicts merge safely because
// annotations are independently addressable; form conflicts keep the
// local side as the user's most recent direct input. Anything else is
// surfaced to the user.
func RecommendStrategy(c SyncConflict, opts *Options) Strategy {
	var o Options
	if opts != nil {
		o = *opts
	}
	o.SetDefaults()
	gap := c.Local.ModifiedAt.Sub(c.Remote.ModifiedAt)
	if gap < 0 {
		gap = -gap
	}
	switch {
	case gap > o.ConflictTimeGap:
		return StrategyNewestWins
	case c.Type == ConflictAnnotation:
		return StrategyMerge
	case c.Type == ConflictForm:
		return StrategyLocalWins
	default:
		return StrategyPrompt
	}
}

// Summary renders a human-readable conflict report for logs and UI.
// Not parsed by anything.
func (c SyncConflict) Summary() string {
	return fmt.Sprintf(
		"sync conflict %s on document %s: type=%s local=v%d (%d changes) remote=v%d (%d changes), detected %s",
		c.ID, c.DocumentID, c.Type,
		c.Local.Version, len(c.Local.Changes),
		c.Remote.Version, len(c.Remote.Changes),
		c.DetectedAt.Format(time.RFC3339),
	)
}
