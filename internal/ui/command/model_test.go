package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeText(m Model, s string) Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func enter(t *testing.T, m Model) CommandMsg {
	t.Helper()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(CommandMsg)
	require.True(t, ok)
	return msg
}

func TestPalette_ListsAllWhenEmpty(t *testing.T) {
	m := New(80, 24)
	assert.Len(t, m.Matches(), len(Commands))
}

func TestPalette_FuzzyCompletesName(t *testing.T) {
	m := typeText(New(80, 24), "exp")
	require.NotEmpty(t, m.Matches())
	assert.Equal(t, "export", m.Matches()[0].Name)
	assert.Equal(t, CommandMsg("export"), enter(t, m))
}

func TestPalette_KeepsArguments(t *testing.T) {
	m := typeText(New(80, 24), "thm ocean")
	assert.Equal(t, CommandMsg("theme ocean"), enter(t, m))
}

func TestPalette_CursorMovesThroughMatches(t *testing.T) {
	m := New(80, 24)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, CommandMsg(Commands[1].Name), enter(t, m))
}

func TestPalette_NoMatchSendsRawText(t *testing.T) {
	m := typeText(New(80, 24), "zzz")
	assert.Empty(t, m.Matches())
	assert.Equal(t, CommandMsg("zzz"), enter(t, m))
}
