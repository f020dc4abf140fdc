package credential

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	stored := map[string]string{WebhookToken: "tok"}
	src := SourceFunc(func(key string) (string, error) {
		if v, ok := stored[key]; ok {
			return v, nil
		}
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
	})

	v, err := Lookup(src, WebhookToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", v)

	v, err = Lookup(src, IMAPPassword)
	require.NoError(t, err, "a missing key is not an error")
	assert.Empty(t, v)

	v, err = Lookup(nil, WebhookToken)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestLookupPropagatesKeyringFailure(t *testing.T) {
	locked := errors.New("keyring locked")
	src := SourceFunc(func(string) (string, error) { return "", locked })

	_, err := Lookup(src, IMAPPassword)
	assert.ErrorIs(t, err, locked)
}

func TestKeysAreDistinct(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range Keys {
		assert.False(t, seen[k], k)
		seen[k] = true
	}
	assert.Len(t, Keys, 2)
}
