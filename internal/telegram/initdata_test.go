package telegram

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveIdentity_QueryStringUserJSON(t *testing.T) {
	initData := url.Values{
		"user":      {`{"id":123456789,"first_name":"Ana","last_name":"Petrova","username":"anap"}`},
		"auth_date": {"1700000000"},
		"hash":      {"abc123"},
	}.Encode()

	identity, err := ResolveIdentity(initData)
	require.NoError(t, err)
	assert.Equal(t, int64(123456789), identity.TelegramID)
	assert.Equal(t, "Ana", identity.FirstName)
	assert.Equal(t, "Petrova", identity.LastName)
	assert.Equal(t, "anap", identity.Username)
}

func TestResolveIdentity_BareNumericID(t *testing.T) {
	identity, err := ResolveIdentity("  987654321 ")
	require.NoError(t, err)
	assert.Equal(t, int64(987654321), identity.TelegramID)
	assert.Empty(t, identity.FirstName)
}

func TestResolveIdentity_AlternateIDKeys(t *testing.T) {
	for _, key := range []string{"user_id", "id", "tg_user_id"} {
		identity, err := ResolveIdentity(key + "=42&auth_date=1700000000")
		require.NoError(t, err)
		assert.Equal(t, int64(42), identity.TelegramID, "key %q", key)
	}
}

func TestResolveIdentity_EmptyRejected(t *testing.T) {
	_, err := ResolveIdentity("   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInitData)
}

func TestResolveIdentity_FallbackIsStableAndPositive(t *testing.T) {
	first, err := ResolveIdentity("some-opaque-dev-token")
	require.NoError(t, err)
	second, err := ResolveIdentity("some-opaque-dev-token")
	require.NoError(t, err)
	other, err := ResolveIdentity("a-different-token")
	require.NoError(t, err)

	assert.Positive(t, first.TelegramID)
	assert.Equal(t, first.TelegramID, second.TelegramID)
	assert.NotEqual(t, first.TelegramID, other.TelegramID)
}
