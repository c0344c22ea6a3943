package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectorDerivesMode(t *testing.T) {
	assert.Equal(t, ModeChoice, NewSelector("").CurrentMode())
	assert.Equal(t, ModeChoice, NewSelector("Москва").CurrentMode())

	s := NewSelector("Мытищи")
	assert.Equal(t, ModeFreeText, s.CurrentMode())
	assert.Equal(t, "Мытищи", s.Value())
}

func TestSelectKnownCity(t *testing.T) {
	s := NewSelector("")
	require.NoError(t, s.Select("Казань"))
	assert.Equal(t, ModeChoice, s.CurrentMode())
	assert.Equal(t, "Казань", s.Value())
}

func TestSelectUnknownCityIsRejected(t *testing.T) {
	s := NewSelector("")
	require.NoError(t, s.Select("Омск"))

	assert.Error(t, s.Select("Хогвартс"))
	assert.Equal(t, "Омск", s.Value(), "a rejected choice leaves the state untouched")
	assert.Equal(t, ModeChoice, s.CurrentMode())
}

func TestOtherSwitchesToFreeText(t *testing.T) {
	s := NewSelector("")
	require.NoError(t, s.Select("Пермь"))

	require.NoError(t, s.Select(Other))
	assert.Equal(t, ModeFreeText, s.CurrentMode())
	assert.Empty(t, s.Value(), "switching to free text clears the previous choice")

	s.Type("  деревня Простоквашино ")
	assert.Equal(t, "деревня Простоквашино", s.Value())
}

func TestTypeIgnoredInChoiceMode(t *testing.T) {
	s := NewSelector("")
	require.NoError(t, s.Select("Уфа"))

	s.Type("что-то")
	assert.Equal(t, "Уфа", s.Value())
}

func TestUseListReturnsFromFreeText(t *testing.T) {
	s := NewSelector("хутор Весёлый")
	require.Equal(t, ModeFreeText, s.CurrentMode())

	s.UseList()
	assert.Equal(t, ModeChoice, s.CurrentMode())
	assert.Empty(t, s.Value())
}

func TestKnown(t *testing.T) {
	assert.True(t, Known("Санкт-Петербург"))
	assert.False(t, Known("москва"), "matching is exact, not case-folded")
	assert.False(t, Known(Other))
}
