package patch

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/danielsimonjr/docsync"
	"github.com/danielsimonjr/docsync/delta"
)

// DiffAnnotations keys both snapshots by annotation ID and emits add,
// delete and update operations for the difference. Output is ordered by
// ID so identical snapshots always produce identical patches.
func DiffAnnotations(docID string, old, new []docsync.Annotation, from, to uint64) Patch {
	oldByID := make(map[string]docsync.Annotation, len(old))
	for _, a := range old {
		oldByID[a.ID] = a
	}
	newByID := make(map[string]docsync.Annotation, len(new))
	for _, a := range new {
		newByID[a.ID] = a
	}
	var ops []Operation
	for _, id := range sortedKeys(oldByID) {
		if _, kept := newByID[id]; !kept {
			ops = append(ops, Operation{Kind: KindDelete, Target: TargetAnnotation, ID: id})
		}
	}
	for _, id := range sortedKeys(newByID) {
		na := newByID[id]
		oa, existed := oldByID[id]
		switch {
		case !existed:
			ops = append(ops, Operation{Kind: KindAdd, Target: TargetAnnotation, ID: id, Value: mustJSON(na)})
		case !bytes.Equal(mustJSON(oa), mustJSON(na)):
			ops = append(ops, Operation{Kind: KindUpdate, Target: TargetAnnotation, ID: id, Value: mustJSON(na)})
		}
	}
	return newPatch(docID, TypeAnnotation, ops, from, to)
}

// DiffFormValues diffs two flat field-value maps, keyed on Path.
func DiffFormValues(docID string, old, new map[string]any, from, to uint64) Patch {
	var ops []Operation
	for _, k := range sortedKeys(old) {
		if _, kept := new[k]; !kept {
			ops = append(ops, Operation{Kind: KindDelete, Target: TargetForm, Path: k})
		}
	}
	for _, k := range sortedKeys(new) {
		nv := mustJSON(new[k])
		ov, existed := old[k]
		switch {
		case !existed:
			ops = append(ops, Operation{Kind: KindAdd, Target: TargetForm, Path: k, Value: nv})
		case !bytes.Equal(mustJSON(ov), nv):
			ops = append(ops, Operation{Kind: KindUpdate, Target: TargetForm, Path: k, Value: nv})
		}
	}
	return newPatch(docID, TypeForm, ops, from, to)
}

// DiffMetadata emits updates only: metadata fields are never added or
// removed, only changed.
func DiffMetadata(docID string, old, new map[string]any, from, to uint64) Patch {
	var ops []Operation
	for _, k := range sortedKeys(new) {
		nv := mustJSON(new[k])
		if ov, existed := old[k]; !existed || !bytes.Equal(mustJSON(ov), nv) {
			ops = append(ops, Operation{Kind: KindUpdate, Target: TargetMetadata, Path: k, Value: nv})
		}
	}
	return newPatch(docID, TypeMetadata, ops, from, to)
}

// Binary wraps the delta engine's diff of two raw buffers as a single
// binary-targeted operation.
func Binary(docID string, old, new []byte, from, to uint64, opts *delta.Options) Patch {
	ops := []Operation{{
		Kind:   KindBinary,
		Target: TargetData,
		Delta:  delta.Calculate(old, new, opts),
	}}
	return newPatch(docID, TypeBinary, ops, from, to)
}

// FromHistory lifts a contiguous slice of edit-history records into a
// mixed patch, replaying a burst of edits rather than diffing snapshots.
func FromHistory(docID string, entries []docsync.EditHistoryEntry, from, to uint64) Patch {
	ops := make([]Operation, 0, len(entries))
	for _, e := range entries {
		ops = append(ops, Operation{
			Kind:   Kind(e.Action),
			Target: historyTarget(e.Type),
			ID:     e.ID,
			Value:  e.Payload,
		})
	}
	return newPatch(docID, TypeMixed, ops, from, to)
}

func historyTarget(t docsync.ChangeType) Target {
	switch t {
	case docsync.ChangeAnnotation:
		return TargetAnnotation
	case docsync.ChangeForm:
		return TargetForm
	case docsync.ChangeMetadata:
		return TargetMetadata
	default:
		return TargetData
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
