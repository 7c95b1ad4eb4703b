package i18n

import "testing"

func TestT(t *testing.T) {
	t.Run("substitutes placeholders", func(t *testing.T) {
		got := T(PT, FormRequired, "field", "title")
		if got != "Campo obrigatório em falta: title" {
			t.Errorf("Unexpected message %q", got)
		}
	})

	t.Run("unknown language falls back to portuguese", func(t *testing.T) {
		if got := T(Lang("de"), AuthWrongPassword); got != "Palavra-passe incorreta." {
			t.Errorf("Unexpected message %q", got)
		}
	})

	t.Run("unknown key is returned as is", func(t *testing.T) {
		if got := T(EN, "nope.key"); got != "nope.key" {
			t.Errorf("Unexpected message %q", got)
		}
	})
}

func TestEveryLanguageHasEveryKey(t *testing.T) {
	for lang, msgs := range catalog {
		for key := range catalog[Default] {
			if _, ok := msgs[key]; !ok {
				t.Errorf("%s is missing %s", lang, key)
			}
		}
	}
}

func TestFromAcceptLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   Lang
		ok     bool
	}{
		{"fr-FR,fr;q=0.9,en;q=0.8", FR, true},
		{"de-DE, en-GB;q=0.7", EN, true},
		{"pt-CV", PT, true},
		{"", PT, false},
		{"ja", PT, false},
	}
	for _, tc := range tests {
		got, ok := FromAcceptLanguage(tc.header)
		if got != tc.want || ok != tc.ok {
			t.Errorf("%q: expected %s/%v, got %s/%v", tc.header, tc.want, tc.ok, got, ok)
		}
	}
}

func TestGeolocationMessage(t *testing.T) {
	if got := GeolocationMessage(EN, 1); got != "Location permission denied." {
		t.Errorf("Unexpected message %q", got)
	}
	if got := GeolocationMessage(EN, 3); got != "Timed out getting the location." {
		t.Errorf("Unexpected message %q", got)
	}
	if got := GeolocationMessage(EN, 99); got != T(EN, GeoUnsupported) {
		t.Errorf("Unexpected message %q", got)
	}
}
