// Package i18n localizes the short user-facing messages of the company
// selection surface. German is the primary locale, English the fallback
// for clients that ask for it.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies a user-facing message independent of locale.
type Key string

const (
	// KeyLoadFailed: the company directory could not be fetched.
	KeyLoadFailed Key = "companies.load_failed"
	// KeyNoCompanies: the directory came back empty for this user.
	KeyNoCompanies Key = "companies.none_assigned"
	// KeyCompanyNotFound: manual switch target missing or not accessible.
	KeyCompanyNotFound Key = "companies.not_found"
	// KeySwitchFailed: persisting a manual switch failed.
	KeySwitchFailed Key = "companies.switch_failed"
)

var supported = []language.Tag{
	language.German, // default
	language.English,
}

var matcher = language.NewMatcher(supported)

var translations = catalog.NewBuilder(catalog.Fallback(language.German))

func init() {
	set := func(tag language.Tag, key Key, msg string) {
		if err := translations.SetString(tag, string(key), msg); err != nil {
			panic(err)
		}
	}

	set(language.German, KeyLoadFailed, "Firmen konnten nicht geladen werden.")
	set(language.German, KeyNoCompanies, "Keine Firma zugeordnet. Bitte kontaktieren Sie Ihren Administrator.")
	set(language.German, KeyCompanyNotFound, "Firma nicht gefunden oder kein Zugriff.")
	set(language.German, KeySwitchFailed, "Firmenwechsel fehlgeschlagen.")

	set(language.English, KeyLoadFailed, "Could not load your companies.")
	set(language.English, KeyNoCompanies, "No company assigned. Please contact your administrator.")
	set(language.English, KeyCompanyNotFound, "Company not found or access denied.")
	set(language.English, KeySwitchFailed, "Switching company failed.")
}

// Localize renders the message for the best match of the Accept-Language
// header. An empty or unparseable header falls back to German.
func Localize(acceptLanguage string, key Key) string {
	if key == "" {
		return ""
	}
	tag := supported[0]
	if acceptLanguage != "" {
		if wanted, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil {
			tag, _, _ = matcher.Match(wanted...)
		}
	}
	printer := message.NewPrinter(tag, message.Catalog(translations))
	return printer.Sprintf(string(key))
}
