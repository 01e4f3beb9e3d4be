package patch

import (
	"fmt"
	"sort"

	"github.com/danielsimonjr/docsync/protocol"
)

// Merge combines a version-contiguous run of patches into one. Inputs
// are sorted by FromVersion first; any gap or overlap in the chain is a
// hard error, never a silently degraded merge. Mixing patch types yields
// a mixed patch.
func Merge(patches []Patch) (Patch, error) {
	if len(patches) == 0 {
		return Patch{}, ErrNoPatches
	}
	sorted := make([]Patch, len(patches))
	copy(sorted, patches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FromVersion < sorted[j].FromVersion
	})
	t := sorted[0].Type
	var ops []Operation
	for i := range sorted {
		if i > 0 && sorted[i].FromVersion != sorted[i-1].ToVersion {
			return Patch{}, fmt.Errorf("%w: expected from-version %d, got %d",
				ErrDiscontinuity, sorted[i-1].ToVersion, sorted[i].FromVersion)
		}
		if sorted[i].Type != t {
			t = TypeMixed
		}
		ops = append(ops, sorted[i].Ops...)
	}
	return newPatch(sorted[0].DocumentID, t, ops,
		sorted[0].FromVersion, sorted[len(sorted)-1].ToVersion), nil
}

// Optimize folds redundant operations so only what is needed to reach
// the final state survives. Operations are grouped by (target, ID/Path):
// a group ending in delete keeps just the delete, unless it also added
// the object, in which case the object never existed remotely and the
// whole group drops; any other group keeps only its last operation.
// Binary operations are never folded.
func Optimize(p Patch) Patch {
	type group struct {
		last   Operation
		hasAdd bool
		ends   Kind
	}
	groups := make(map[string]*group)
	var keyOrder []string
	var binaries []Operation
	for _, op := range p.Ops {
		if op.Kind == KindBinary {
			binaries = append(binaries, op)
			continue
		}
		key := string(op.Target) + "\x00" + op.ID + "\x00" + op.Path
		g, seen := groups[key]
		if !seen {
			g = &group{}
			groups[key] = g
			keyOrder = append(keyOrder, key)
		}
		g.last = op
		g.ends = op.Kind
		if op.Kind == KindAdd {
			g.hasAdd = true
		}
	}
	ops := make([]Operation, 0, len(keyOrder)+len(binaries))
	ops = append(ops, binaries...)
	for _, key := range keyOrder {
		g := groups[key]
		if g.ends == KindDelete && g.hasAdd {
			continue // added then deleted: never existed
		}
		ops = append(ops, g.last)
	}
	out := p
	out.Ops = ops
	blob := serializeOps(ops)
	out.Size = len(blob)
	out.Checksum = protocol.Checksum32(blob)
	return out
}
