package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed messages/*.json
var messagesFS embed.FS

// Supported locales
const (
	LocaleEnglish = "en"
	LocaleGerman  = "de"
	DefaultLocale = LocaleEnglish
)

var supported = []string{LocaleEnglish, LocaleGerman}

// catalogue maps locale -> flattened dot key -> message
type catalogue map[string]map[string]string

var (
	loadOnce sync.Once
	messages catalogue
)

func catalog() catalogue {
	loadOnce.Do(func() {
		messages = catalogue{}
		for _, locale := range supported {
			data, err := messagesFS.ReadFile("messages/" + locale + ".json")
			if err != nil {
				continue
			}
			var tree map[string]interface{}
			if err := json.Unmarshal(data, &tree); err != nil {
				continue
			}
			flat := map[string]string{}
			flatten("", tree, flat)
			messages[locale] = flat
		}
	})
	return messages
}

// flatten turns {"ocr": {"rate_limited": "..."}} into "ocr.rate_limited"
func flatten(prefix string, tree map[string]interface{}, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case string:
			out[key] = val
		case map[string]interface{}:
			flatten(key, val, out)
		}
	}
}

// Localizer renders catalogue messages in one locale
type Localizer struct {
	locale string
}

// NewLocalizer returns a localizer for locale, falling back to English
func NewLocalizer(locale string) *Localizer {
	if !isSupported(locale) {
		locale = DefaultLocale
	}
	return &Localizer{locale: locale}
}

// LocalizerFromContext uses the locale stored by WithLocale
func LocalizerFromContext(ctx context.Context) *Localizer {
	return NewLocalizer(GetLocaleFromContext(ctx))
}

// T renders key, replacing {name} placeholders from params.
// Missing keys fall back to English, then to the key itself.
func (l *Localizer) T(key string, params ...map[string]string) string {
	msgs := catalog()
	msg, ok := msgs[l.locale][key]
	if !ok {
		msg, ok = msgs[DefaultLocale][key]
	}
	if !ok {
		return key
	}

	if len(params) == 0 || len(params[0]) == 0 {
		return msg
	}
	pairs := make([]string, 0, 2*len(params[0]))
	for k, v := range params[0] {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

func (l *Localizer) Locale() string {
	return l.locale
}

type localeKey struct{}

// WithLocale stores locale in ctx
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey{}, locale)
}

// GetLocaleFromContext returns the stored locale or DefaultLocale
func GetLocaleFromContext(ctx context.Context) string {
	if locale, ok := ctx.Value(localeKey{}).(string); ok && locale != "" {
		return locale
	}
	return DefaultLocale
}

// ParseAcceptLanguage picks the highest weighted supported language from an
// Accept-Language header, e.g. "fr;q=0.9, de-AT;q=0.8" -> "de".
// Malformed headers yield DefaultLocale.
func ParseAcceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return DefaultLocale
	}

	// tags arrive sorted by weight with q=0 entries removed
	for _, tag := range tags {
		base, _ := tag.Base()
		if locale := base.String(); isSupported(locale) {
			return locale
		}
	}
	return DefaultLocale
}

func isSupported(locale string) bool {
	for _, s := range supported {
		if s == locale {
			return true
		}
	}
	return false
}

// T renders key in the default locale
func T(key string, params ...map[string]string) string {
	return NewLocalizer(DefaultLocale).T(key, params...)
}

// TFromContext renders key in the locale stored in ctx
func TFromContext(ctx context.Context, key string, params ...map[string]string) string {
	return LocalizerFromContext(ctx).T(key, params...)
}
