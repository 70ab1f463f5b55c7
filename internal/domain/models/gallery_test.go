package models_test

import (
	"encoding/json"
	"testing"

	"ansel/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sharedGallery() *models.Gallery {
	g := &models.Gallery{ID: 3, Owner: "alice", Name: "Family", Passwd: "hash", Perm: models.NewPermission()}
	g.Perm.AddGuestPermission(models.PermShow)
	g.Perm.AddUserPermission("bob", models.PermEdit)
	g.Perm.AddGroupPermission("cousins", models.PermRead)

	return g
}

func TestGalleryJSON_HidesGrants(t *testing.T) {
	b, err := json.Marshal(sharedGallery())
	require.NoError(t, err)

	body := string(b)
	assert.Contains(t, body, `"name":"Family"`)
	assert.NotContains(t, body, "perm")
	assert.NotContains(t, body, "bob")
	assert.NotContains(t, body, "cousins")
	assert.NotContains(t, body, "hash")
}

func TestGalleryCache_KeepsGrants(t *testing.T) {
	g := sharedGallery()

	data, err := g.MarshalCache()
	require.NoError(t, err)

	got, err := models.UnmarshalCachedGallery(data)
	require.NoError(t, err)

	assert.Equal(t, "hash", got.Passwd)
	assert.Equal(t, models.PermShow, got.Perm.Guest)
	assert.Equal(t, models.PermEdit, got.Perm.Users["bob"])
	assert.Equal(t, models.PermRead, got.Perm.Groups["cousins"])
}
