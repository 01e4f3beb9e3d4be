package patch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielsimonjr/docsync"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func ann(id, contents string) docsync.Annotation {
	return docsync.Annotation{
		ID:        id,
		Type:      "note",
		Page:      2,
		Contents:  contents,
		CreatedAt: t0,
		UpdatedAt: t0,
	}
}

func TestDiffAnnotations(t *testing.T) {
	old := []docsync.Annotation{ann("a", "keep"), ann("b", "old text"), ann("gone", "bye")}
	new := []docsync.Annotation{ann("a", "keep"), ann("b", "new text"), ann("c", "hello")}

	p := DiffAnnotations("doc-1", old, new, 1, 2)
	assert.Equal(t, TypeAnnotation, p.Type)
	assert.Equal(t, uint64(1), p.FromVersion)
	assert.Equal(t, uint64(2), p.ToVersion)
	assert.NotEmpty(t, p.ID)
	assert.NotZero(t, p.Checksum)

	require.Len(t, p.Ops, 3)
	assert.Equal(t, KindDelete, p.Ops[0].Kind)
	assert.Equal(t, "gone", p.Ops[0].ID)
	assert.Equal(t, KindUpdate, p.Ops[1].Kind)
	assert.Equal(t, "b", p.Ops[1].ID)
	assert.Equal(t, KindAdd, p.Ops[2].Kind)
	assert.Equal(t, "c", p.Ops[2].ID)
}

func TestDiffAnnotationsIdentical(t *testing.T) {
	snap := []docsync.Annotation{ann("a", "same")}
	p := DiffAnnotations("doc-1", snap, snap, 1, 2)
	assert.Empty(t, p.Ops)
	assert.Zero(t, p.Size)
}

func TestDiffFormValues(t *testing.T) {
	old := map[string]any{"name": "Ada", "city": "London", "dropped": true}
	new := map[string]any{"name": "Ada", "city": "Cambridge", "added": 1.5}

	p := DiffFormValues("doc-1", old, new, 2, 3)
	assert.Equal(t, TypeForm, p.Type)
	require.Len(t, p.Ops, 3)
	assert.Equal(t, KindDelete, p.Ops[0].Kind)
	assert.Equal(t, "dropped", p.Ops[0].Path)
	assert.Equal(t, KindAdd, p.Ops[1].Kind)
	assert.Equal(t, "added", p.Ops[1].Path)
	assert.Equal(t, KindUpdate, p.Ops[2].Kind)
	assert.Equal(t, "city", p.Ops[2].Path)
}

func TestDiffMetadataUpdatesOnly(t *testing.T) {
	old := map[string]any{"title": "Draft", "author": "me"}
	new := map[string]any{"title": "Final", "author": "me"}

	p := DiffMetadata("doc-1", old, new, 3, 4)
	assert.Equal(t, TypeMetadata, p.Type)
	require.Len(t, p.Ops, 1)
	assert.Equal(t, KindUpdate, p.Ops[0].Kind)
	assert.Equal(t, TargetMetadata, p.Ops[0].Target)
	assert.Equal(t, "title", p.Ops[0].Path)
}

func TestBinaryPatch(t *testing.T) {
	oldData := []byte("aaaaaaaaaaaaaaaaaaaa")
	newData := []byte("aaaaaaaaaaTAILaaaaaaaaaa")

	p := Binary("doc-1", oldData, newData, 4, 5, nil)
	assert.Equal(t, TypeBinary, p.Type)
	require.Len(t, p.Ops, 1)
	assert.Equal(t, KindBinary, p.Ops[0].Kind)
	assert.Equal(t, TargetData, p.Ops[0].Target)
	assert.NotEmpty(t, p.Ops[0].Delta)

	out, err := ApplyBinary(oldData, p)
	require.NoError(t, err)
	assert.Equal(t, newData, out)
}

func TestFromHistory(t *testing.T) {
	entries := []docsync.EditHistoryEntry{
		{ID: "e1", Timestamp: t0, Type: docsync.ChangeAnnotation, Action: docsync.ActionAdd, Payload: []byte(`{"id":"a"}`)},
		{ID: "e2", Timestamp: t0.Add(time.Minute), Type: docsync.ChangeForm, Action: docsync.ActionUpdate, Payload: []byte(`"v"`)},
		{ID: "e3", Timestamp: t0.Add(2 * time.Minute), Type: docsync.ChangeText, Action: docsync.ActionDelete},
	}
	p := FromHistory("doc-1", entries, 5, 6)
	assert.Equal(t, TypeMixed, p.Type)
	require.Len(t, p.Ops, 3)
	assert.Equal(t, TargetAnnotation, p.Ops[0].Target)
	assert.Equal(t, KindAdd, p.Ops[0].Kind)
	assert.Equal(t, TargetForm, p.Ops[1].Target)
	assert.Equal(t, TargetData, p.Ops[2].Target)
	assert.Equal(t, KindDelete, p.Ops[2].Kind)
}

func TestValidate(t *testing.T) {
	p := DiffFormValues("doc-1", nil, map[string]any{"k": "v"}, 1, 2)
	require.NoError(t, Validate(p))

	p.Ops[0].Value[0] ^= 0xff
	assert.ErrorIs(t, Validate(p), ErrChecksumMismatch)
}

func TestValidateCorruptedVersionFieldsStillPass(t *testing.T) {
	// the checksum covers operations only; version tampering is caught by
	// continuity checks, not by Validate
	p := DiffFormValues("doc-1", nil, map[string]any{"k": "v"}, 1, 2)
	p.FromVersion = 99
	assert.NoError(t, Validate(p))
}
