package docsync

import (
	"bytes"
	"sort"
	"time"
)

// MergeStats counts what survived a field-level merge.
type MergeStats struct {
	LocalChangesKept   int `json:"local_changes_kept"`
	RemoteChangesKept  int `json:"remote_changes_kept"`
	ConflictingChanges int `json:"conflicting_changes"`
}

type MergeResult[T any] struct {
	Merged T          `json:"merged"`
	Stats  MergeStats `json:"details"`
}

// MergeAnnotations unions two annotation sets by ID. IDs on both sides
// are decided by the later UpdatedAt and counted as conflicting; equal
// timestamps break the tie on serialized content so that argument order
// never changes the winner.
func MergeAnnotations(local, remote []Annotation) MergeResult[[]Annotation] {
	res := MergeResult[[]Annotation]{}
	byID := make(map[string]Annotation, len(local)+len(remote))
	for _, a := range local {
		byID[a.ID] = a
	}
	for _, r := range remote {
		l, shared := byID[r.ID]
		if !shared {
			byID[r.ID] = r
			res.Stats.RemoteChangesKept++
			continue
		}
		byID[r.ID] = laterAnnotation(l, r)
		res.Stats.ConflictingChanges++
	}
	res.Stats.LocalChangesKept = len(local) - res.Stats.ConflictingChanges
	merged := make([]Annotation, 0, len(byID))
	for _, a := range byID {
		merged = append(merged, a)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })
	res.Merged = merged
	return res
}

func laterAnnotation(a, b Annotation) Annotation {
	if a.UpdatedAt.After(b.UpdatedAt) {
		return a
	}
	if b.UpdatedAt.After(a.UpdatedAt) {
		return b
	}
	if bytes.Compare(jsonValue(a), jsonValue(b)) >= 0 {
		return a
	}
	return b
}

// MergeFormValues unions two flat field-value maps. Field-level
// timestamps are not tracked for form values, so differing values go to
// whichever side has the later overall modification time.
func MergeFormValues(local, remote map[string]any, localAt, remoteAt time.Time) MergeResult[map[string]any] {
	res := MergeResult[map[string]any]{Merged: make(map[string]any, len(local)+len(remote))}
	for k, v := range local {
		res.Merged[k] = v
	}
	for k, rv := range remote {
		lv, shared := res.Merged[k]
		if !shared {
			res.Merged[k] = rv
			res.Stats.RemoteChangesKept++
			continue
		}
		lj, rj := jsonValue(lv), jsonValue(rv)
		if bytes.Equal(lj, rj) {
			continue
		}
		res.Stats.ConflictingChanges++
		switch {
		case remoteAt.After(localAt):
			res.Merged[k] = rv
		case localAt.After(remoteAt):
			// keep local
		case bytes.Compare(rj, lj) > 0: // equal stamps: content tiebreak
			res.Merged[k] = rv
		}
	}
	for k := range local {
		if _, ok := remote[k]; !ok {
			res.Stats.LocalChangesKept++
		}
	}
	return res
}

// MergeEditHistories concatenates both change logs, deduplicates by entry
// ID (first occurrence wins) and orders the rest by timestamp.
func MergeEditHistories(local, remote []EditHistoryEntry) []EditHistoryEntry {
	seen := make(map[string]bool, len(local)+len(remote))
	merged := make([]EditHistoryEntry, 0, len(local)+len(remote))
	for _, e := range local {
		if !seen[e.ID] {
			seen[e.ID] = true
			merged = append(merged, e)
		}
	}
	for _, e := range remote {
		if !seen[e.ID] {
			seen[e.ID] = true
			merged = append(merged, e)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}
