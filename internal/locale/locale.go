// Package locale resolves the process-wide display language from the
// standard POSIX locale environment variables.
package locale

import (
	"os"
	"strings"
)

// DefaultLanguage is used when no locale variable is set or the value is
// one of the POSIX pseudo-locales.
const DefaultLanguage = "en_US"

// Display returns the configured display-language code, e.g. "de_DE".
// LC_ALL wins over LC_MESSAGES, which wins over LANG, mirroring glibc
// precedence. Encoding and modifier suffixes are stripped.
func Display() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return Normalize(v)
		}
	}
	return DefaultLanguage
}

// Normalize reduces a raw locale value to a plain language code:
// "de_DE.UTF-8@euro" becomes "de_DE". The pseudo-locales "C" and "POSIX"
// map to the default language.
func Normalize(raw string) string {
	lang := raw
	if i := strings.IndexByte(lang, '.'); i >= 0 {
		lang = lang[:i]
	}
	if i := strings.IndexByte(lang, '@'); i >= 0 {
		lang = lang[:i]
	}
	if lang == "" || lang == "C" || lang == "POSIX" {
		return DefaultLanguage
	}
	return lang
}
