package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behaviour every Store backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("empty store loads nil", func(t *testing.T) {
		s := newStore(t)
		creds, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, creds)
	})

	t.Run("load observes latest save", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, Credentials{AccessToken: "a1", RefreshToken: "r1"}))
		require.NoError(t, s.Save(ctx, Credentials{AccessToken: "a2", RefreshToken: "r1"}))

		creds, err := s.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, creds)
		assert.Equal(t, "a2", creds.AccessToken)
		assert.Equal(t, "r1", creds.RefreshToken)
	})

	t.Run("save without refresh token removes it", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, Credentials{AccessToken: "a1", RefreshToken: "r1"}))
		require.NoError(t, s.Save(ctx, Credentials{AccessToken: "a2"}))

		creds, err := s.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, creds)
		assert.Equal(t, "a2", creds.AccessToken)
		assert.Empty(t, creds.RefreshToken)
	})

	t.Run("clear removes both tokens", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, Credentials{AccessToken: "a1", RefreshToken: "r1"}))
		require.NoError(t, s.Clear(ctx))

		creds, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, creds)
	})

	t.Run("clear on empty store is not an error", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Clear(ctx))
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Save(ctx, Credentials{AccessToken: "a1", RefreshToken: "r1"}))

	creds, err := s.Load(ctx)
	require.NoError(t, err)
	creds.AccessToken = "mutated"

	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a1", again.AccessToken)
}

func TestCredentials_Redaction(t *testing.T) {
	creds := Credentials{AccessToken: "secret-access", RefreshToken: "secret-refresh"}

	for _, out := range []string{
		creds.String(),
		fmt.Sprintf("%v", creds),
		fmt.Sprintf("%+v", creds),
		fmt.Sprintf("%#v", creds),
		creds.LogValue().String(),
	} {
		assert.NotContains(t, out, "secret-access")
		assert.NotContains(t, out, "secret-refresh")
	}

	assert.Equal(t, "Credentials{access:[REDACTED] refresh:<unset>}", Credentials{AccessToken: "x"}.String())

	attrs := creds.LogValue().Group()
	require.Len(t, attrs, 2)
	assert.Equal(t, slog.Bool("has_access_token", true), attrs[0])
	assert.Equal(t, slog.Bool("has_refresh_token", true), attrs[1])
}

func TestCredentials_IsEmpty(t *testing.T) {
	assert.True(t, Credentials{}.IsEmpty())
	assert.False(t, Credentials{AccessToken: "a"}.IsEmpty())
	assert.False(t, Credentials{RefreshToken: "r"}.IsEmpty())
}
