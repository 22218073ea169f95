// Package i18n holds the message catalog for user-facing API text.
//
// Messages are looked up by key. Brazilian Portuguese is the default
// language. English is served when the client asks for it.
package i18n

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// LangParam is the query parameter that overrides Accept-Language.
const LangParam = "lang"

// Message keys.
const (
	KeyValidationFailed = "validation.failed"
	KeyFieldRequired    = "field.required"
	KeyFieldTooLong     = "field.too_long"
	KeyInvalidChoice    = "field.invalid_choice"
	KeyInvalidDate      = "field.invalid_date"
	KeyFutureDate       = "found_lost_date.future"
	KeyUnknownCategory  = "category.unknown"
	KeyUnknownLocation  = "location.unknown"
	KeyUsernameTaken    = "username.taken"
	KeyPasswordTooShort = "password.too_short"

	KeyExportSheet       = "export.sheet"
	KeyExportName        = "export.col.name"
	KeyExportDescription = "export.col.description"
	KeyExportCategory    = "export.col.category"
	KeyExportLocation    = "export.col.location"
	KeyExportStatus      = "export.col.status"
	KeyExportDate        = "export.col.found_lost_date"
	KeyExportReporter    = "export.col.reporter"
	KeyStatusFound       = "status.found"
	KeyStatusLost        = "status.lost"
)

var supported = []language.Tag{
	language.BrazilianPortuguese,
	language.English,
}

var matcher = language.NewMatcher(supported)

var messages = map[language.Tag]map[string]string{
	language.BrazilianPortuguese: {
		KeyValidationFailed: "Dados inválidos.",
		KeyFieldRequired:    "Este campo é obrigatório.",
		KeyFieldTooLong:     "Certifique-se de que este campo não tenha mais de %d caracteres.",
		KeyInvalidChoice:    "\"%s\" não é uma escolha válida.",
		KeyInvalidDate:      "Formato de data e hora inválido.",
		KeyFutureDate:       "A data em que o item foi achado ou perdido não pode estar no futuro.",
		KeyUnknownCategory:  "Categoria inexistente.",
		KeyUnknownLocation:  "Local inexistente.",
		KeyUsernameTaken:    "Já existe um usuário com este nome.",
		KeyPasswordTooShort: "A senha deve ter pelo menos %d caracteres.",

		KeyExportSheet:       "Itens",
		KeyExportName:        "Nome",
		KeyExportDescription: "Descrição",
		KeyExportCategory:    "Categoria",
		KeyExportLocation:    "Local",
		KeyExportStatus:      "Situação",
		KeyExportDate:        "Data achado/perdido",
		KeyExportReporter:    "Registrado por",
		KeyStatusFound:       "Achado",
		KeyStatusLost:        "Perdido",
	},
	language.English: {
		KeyValidationFailed: "Invalid data.",
		KeyFieldRequired:    "This field is required.",
		KeyFieldTooLong:     "Ensure this field has no more than %d characters.",
		KeyInvalidChoice:    "\"%s\" is not a valid choice.",
		KeyInvalidDate:      "Invalid date and time format.",
		KeyFutureDate:       "The date the item was found or lost cannot be in the future.",
		KeyUnknownCategory:  "Unknown category.",
		KeyUnknownLocation:  "Unknown location.",
		KeyUsernameTaken:    "A user with that username already exists.",
		KeyPasswordTooShort: "Password must be at least %d characters.",

		KeyExportSheet:       "Items",
		KeyExportName:        "Name",
		KeyExportDescription: "Description",
		KeyExportCategory:    "Category",
		KeyExportLocation:    "Location",
		KeyExportStatus:      "Status",
		KeyExportDate:        "Found/lost date",
		KeyExportReporter:    "Reported by",
		KeyStatusFound:       "Found",
		KeyStatusLost:        "Lost",
	},
}

var cat = mustBuildCatalog()

func mustBuildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(Default()))
	for tag, msgs := range messages {
		for key, text := range msgs {
			if err := b.SetString(tag, key, text); err != nil {
				panic(fmt.Sprintf("i18n: registering %s/%s: %v", tag, key, err))
			}
		}
	}
	return b
}

// Default returns the fallback language.
func Default() language.Tag {
	return language.BrazilianPortuguese
}

// Supported returns the languages with a full catalog.
func Supported() []language.Tag {
	out := make([]language.Tag, len(supported))
	copy(out, supported)
	return out
}

// Match returns the best supported tag for a list of preferences.
func Match(prefs ...language.Tag) language.Tag {
	if len(prefs) == 0 {
		return Default()
	}
	_, idx, conf := matcher.Match(prefs...)
	if conf == language.No {
		return Default()
	}
	return supported[idx]
}

// Parse converts a language string to a supported tag.
func Parse(value string) (language.Tag, bool) {
	tag, err := language.Parse(strings.TrimSpace(value))
	if err != nil {
		return Default(), false
	}
	return Match(tag), true
}

// Resolve picks the response language for a request: the lang query
// parameter, then Accept-Language, then the default.
func Resolve(r *http.Request) language.Tag {
	if r == nil {
		return Default()
	}
	if v := r.URL.Query().Get(LangParam); v != "" {
		if tag, ok := Parse(v); ok {
			return tag
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil {
			return Match(tags...)
		}
	}
	return Default()
}

// Printer returns a message printer bound to the catalog.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(cat))
}

// Translate renders a message key in the given language.
func Translate(tag language.Tag, key string, args ...any) string {
	return Printer(tag).Sprintf(key, args...)
}
