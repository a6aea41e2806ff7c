package models

import (
	"sort"

	"golang.org/x/text/language"
)

// LocalizedText maps BCP 47 language tags ("en", "de-CH", ...) to text.
type LocalizedText map[string]string

// Resolve returns the text best matching locale. It falls back to English and
// then to the alphabetically first tag, so the result is stable for a given map.
func (t LocalizedText) Resolve(locale string) string {
	if len(t) == 0 {
		return ""
	}
	if v, ok := t[locale]; ok {
		return v
	}

	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	supported := make([]language.Tag, 0, len(keys))
	supportedKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		tag, err := language.Parse(k)
		if err != nil {
			continue
		}
		supported = append(supported, tag)
		supportedKeys = append(supportedKeys, k)
	}

	if len(supported) > 0 {
		matcher := language.NewMatcher(supported)
		if _, idx, conf := matcher.Match(language.Make(locale)); conf != language.No {
			return t[supportedKeys[idx]]
		}
	}

	if v, ok := t["en"]; ok {
		return v
	}
	return t[keys[0]]
}
