package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"de_DE.UTF-8":      "de_DE",
		"de_DE.UTF-8@euro": "de_DE",
		"en_US":            "en_US",
		"cs_CZ@latin":      "cs_CZ",
		"C":                DefaultLanguage,
		"C.UTF-8":          DefaultLanguage,
		"POSIX":            DefaultLanguage,
		"":                 DefaultLanguage,
	}
	for raw, want := range cases {
		assert.Equal(t, want, Normalize(raw), "raw=%q", raw)
	}
}

func TestDisplayPrecedence(t *testing.T) {
	t.Setenv("LANG", "fr_FR.UTF-8")
	t.Setenv("LC_MESSAGES", "de_DE.UTF-8")
	t.Setenv("LC_ALL", "")
	assert.Equal(t, "de_DE", Display())

	t.Setenv("LC_ALL", "cs_CZ")
	assert.Equal(t, "cs_CZ", Display())
}

func TestDisplayUnset(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "")
	assert.Equal(t, DefaultLanguage, Display())
}
