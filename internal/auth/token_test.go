package auth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAdaptedToken_Nil(t *testing.T) {
	token, err := NewAdaptedToken(nil)
	assert.Nil(t, token)
	require.Error(t, err)
	assert.Equal(t, KindInvalidAuthentication, KindOf(err))
}

func TestNewAdaptedToken_CopiesInput(t *testing.T) {
	a := &Authentication{
		Extensions:  map[string]string{ExtensionClientID: "portal"},
		Scopes:      []string{"records:read"},
		ResourceIDs: []string{"records"},
	}
	token := adapt(t, a)

	a.Extensions[ExtensionClientID] = "changed"
	a.Scopes[0] = "changed"

	assert.Equal(t, "portal", token.ClientID())
	assert.True(t, token.Scopes().Has("records:read"))
	assert.True(t, token.HasResource("records"))
	assert.False(t, token.HasResource("okta"))

	_, ok := token.Identity()
	assert.False(t, ok)
	_, ok = token.Extension(ExtensionTenant)
	assert.False(t, ok)
}

func TestSet(t *testing.T) {
	s := NewSet("b", "a", "", "b")

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"a", "b"}, s.Values())
	assert.True(t, s.HasAny("z", "a"))
	assert.False(t, s.HasAny("z"))

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(raw))

	var empty Set
	assert.False(t, empty.Has("a"))
	assert.Empty(t, empty.Values())
}
