package i18n

import "sort"

const (
	KeyConversionSuccess = "conversion_success"
	KeyInvalidCurrency   = "invalid_currency"
	KeyExternalAPIError  = "external_api_error"

	fallbackLanguage = "en"
)

var translations = map[string]map[string]string{
	"en": {
		KeyConversionSuccess: "Conversion successful",
		KeyInvalidCurrency:   "Invalid currency code",
		KeyExternalAPIError:  "External API error",
	},
	"es": {
		KeyConversionSuccess: "Conversión exitosa",
		KeyInvalidCurrency:   "Código de moneda inválido",
		KeyExternalAPIError:  "Error en la API externa",
	},
}

// Translator resolves message keys against the static locale tables.
type Translator struct {
	defaultLang string
}

// NewTranslator returns a translator falling back to defaultLang for absent or
// unknown locales. An unknown defaultLang falls back to English.
func NewTranslator(defaultLang string) *Translator {
	if _, ok := translations[defaultLang]; !ok {
		defaultLang = fallbackLanguage
	}
	return &Translator{defaultLang: defaultLang}
}

// Translate never fails: a key missing from the resolved table is returned unchanged.
func (t *Translator) Translate(key, lang string) string {
	table, ok := translations[lang]
	if !ok {
		table = translations[t.defaultLang]
	}
	if msg, ok := table[key]; ok {
		return msg
	}
	return key
}

func (t *Translator) DefaultLanguage() string {
	return t.defaultLang
}

func (t *Translator) Languages() []string {
	langs := make([]string, 0, len(translations))
	for lang := range translations {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
