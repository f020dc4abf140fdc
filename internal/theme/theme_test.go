package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUse(t *testing.T) {
	t.Cleanup(func() { _ = Use(Default) })

	for _, name := range Names() {
		require.NoError(t, Use(name))
		assert.Equal(t, name, Current().Name)
		assert.True(t, Known(name))
	}

	err := Use("neon")
	assert.ErrorContains(t, err, "unknown theme")
	assert.Equal(t, "ocean", Current().Name, "failed Use keeps the active theme")
}

func TestNext_Cycles(t *testing.T) {
	assert.Equal(t, "dark", Next("light"))
	assert.Equal(t, "light", Next("ocean"))
	assert.Equal(t, "light", Next("unknown"))
}
