package i18n_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fakturio/fakturio/internal/i18n"
)

func TestLocalizeDefaultsToGerman(t *testing.T) {
	assert.Equal(t, "Firmen konnten nicht geladen werden.", i18n.Localize("", i18n.KeyLoadFailed))
}

func TestLocalizeEnglish(t *testing.T) {
	assert.Equal(t, "Company not found or access denied.", i18n.Localize("en", i18n.KeyCompanyNotFound))
	assert.Equal(t, "No company assigned. Please contact your administrator.", i18n.Localize("en-US,en;q=0.9", i18n.KeyNoCompanies))
}

func TestLocalizeSwissGermanMatchesGerman(t *testing.T) {
	assert.Equal(t, "Firmenwechsel fehlgeschlagen.", i18n.Localize("de-CH,de;q=0.9,en;q=0.5", i18n.KeySwitchFailed))
}

func TestLocalizeUnsupportedLocaleFallsBack(t *testing.T) {
	assert.Equal(t, "Firmen konnten nicht geladen werden.", i18n.Localize("fr-CH", i18n.KeyLoadFailed))
}

func TestLocalizeEmptyKey(t *testing.T) {
	assert.Empty(t, i18n.Localize("de", ""))
}
