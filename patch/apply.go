package patch

import (
	"encoding/json"
	"fmt"

	"github.com/danielsimonjr/docsync"
	"github.com/danielsimonjr/docsync/delta"
)

// ApplyAnnotations folds a patch's annotation operations onto a
// snapshot, in list order: structured operations are keyed by ID, so the
// later of two operations for the same ID wins. Operations for other
// targets are ignored, which lets mixed patches apply per facet.
func ApplyAnnotations(snapshot []docsync.Annotation, p Patch) ([]docsync.Annotation, error) {
	byID := make(map[string]docsync.Annotation, len(snapshot))
	order := make([]string, 0, len(snapshot))
	for _, a := range snapshot {
		if _, dup := byID[a.ID]; !dup {
			order = append(order, a.ID)
		}
		byID[a.ID] = a
	}
	for i := range p.Ops {
		op := &p.Ops[i]
		if op.Target != TargetAnnotation {
			continue
		}
		switch op.Kind {
		case KindAdd, KindUpdate:
			var a docsync.Annotation
			if err := json.Unmarshal(op.Value, &a); err != nil {
				return nil, fmt.Errorf("%w: annotation %s: %v", ErrBadOperation, op.ID, err)
			}
			if _, dup := byID[a.ID]; !dup {
				order = append(order, a.ID)
			}
			byID[a.ID] = a
		case KindDelete:
			delete(byID, op.ID)
		default:
			return nil, fmt.Errorf("%w: kind %q on annotation", ErrBadOperation, op.Kind)
		}
	}
	out := make([]docsync.Annotation, 0, len(byID))
	for _, id := range order {
		if a, kept := byID[id]; kept {
			out = append(out, a)
		}
	}
	return out, nil
}

// ApplyFormValues folds form operations onto a field-value map.
func ApplyFormValues(snapshot map[string]any, p Patch) (map[string]any, error) {
	return applyKeyed(snapshot, p, TargetForm)
}

// ApplyMetadata folds metadata operations onto a metadata map.
func ApplyMetadata(snapshot map[string]any, p Patch) (map[string]any, error) {
	return applyKeyed(snapshot, p, TargetMetadata)
}

func applyKeyed(snapshot map[string]any, p Patch, target Target) (map[string]any, error) {
	out := make(map[string]any, len(snapshot))
	for k, v := range snapshot {
		out[k] = v
	}
	for i := range p.Ops {
		op := &p.Ops[i]
		if op.Target != target {
			continue
		}
		switch op.Kind {
		case KindAdd, KindUpdate:
			var v any
			if err := json.Unmarshal(op.Value, &v); err != nil {
				return nil, fmt.Errorf("%w: %s %q: %v", ErrBadOperation, target, op.Path, err)
			}
			out[op.Path] = v
		case KindDelete:
			delete(out, op.Path)
		default:
			return nil, fmt.Errorf("%w: kind %q on %s", ErrBadOperation, op.Kind, target)
		}
	}
	return out, nil
}

// ApplyBinary unwraps a patch's binary operations and replays their
// deltas through the delta engine.
func ApplyBinary(data []byte, p Patch) ([]byte, error) {
	out := data
	for i := range p.Ops {
		op := &p.Ops[i]
		if op.Target != TargetData || op.Kind != KindBinary {
			continue
		}
		next, err := delta.Apply(out, op.Delta)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}
