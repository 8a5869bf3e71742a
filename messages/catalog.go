// Package messages renders localized notification text.
package messages

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Catalog renders message templates for one configured locale, falling
// back to English.
type Catalog struct {
	localizer *i18n.Localizer
	locale    string
}

func NewCatalog(locale string) (*Catalog, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	for _, e := range entries {
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", e.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", e.Name(), err)
		}
	}

	if locale == "" {
		locale = "en"
	}
	if _, err := language.Parse(locale); err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}

	return &Catalog{
		localizer: i18n.NewLocalizer(bundle, locale, "en"),
		locale:    locale,
	}, nil
}

func (c *Catalog) Locale() string {
	return c.locale
}

// Render executes the template registered under id and trims surrounding
// whitespace left by empty optional fields.
func (c *Catalog) Render(id string, data map[string]interface{}) (string, error) {
	out, err := c.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil {
		return "", fmt.Errorf("render %s: %w", id, err)
	}
	return strings.TrimSpace(out), nil
}
