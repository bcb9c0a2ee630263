package collab

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionOrdering(t *testing.T) {
	assert.True(t, PermissionEdit.AtLeast(PermissionComment))
	assert.True(t, PermissionEdit.AtLeast(PermissionView))
	assert.True(t, PermissionComment.AtLeast(PermissionView))
	assert.False(t, PermissionView.AtLeast(PermissionComment))
	assert.False(t, PermissionComment.AtLeast(PermissionEdit))
}

func TestParsePermission(t *testing.T) {
	p, err := ParsePermission("comment")
	require.NoError(t, err)
	assert.Equal(t, PermissionComment, p)

	_, err = ParsePermission("admin")
	assert.Error(t, err)

	// Parsing is exact; no lexical comparison sneaks through.
	_, err = ParsePermission("Edit")
	assert.Error(t, err)
}

func TestPermissionJSON(t *testing.T) {
	data, err := json.Marshal(PermissionEdit)
	require.NoError(t, err)
	assert.Equal(t, `"edit"`, string(data))

	var p Permission
	require.NoError(t, json.Unmarshal([]byte(`"view"`), &p))
	assert.Equal(t, PermissionView, p)

	assert.Error(t, json.Unmarshal([]byte(`"owner"`), &p))
}

func TestNotePermissions(t *testing.T) {
	note := &Note{
		ID:      "n1",
		OwnerID: "owner",
		Collaborators: []CollaboratorGrant{
			{UserID: "alice", Permission: PermissionComment},
		},
	}

	perm, ok := note.PermissionFor("owner")
	assert.True(t, ok)
	assert.Equal(t, PermissionEdit, perm, "owner always has edit capability")

	perm, ok = note.PermissionFor("alice")
	assert.True(t, ok)
	assert.Equal(t, PermissionComment, perm)

	_, ok = note.PermissionFor("stranger")
	assert.False(t, ok)

	assert.True(t, note.CanAccess("owner"))
	assert.True(t, note.CanAccess("alice"))
	assert.False(t, note.CanAccess("stranger"))
}
