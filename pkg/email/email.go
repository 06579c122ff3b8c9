package email

import (
	"strings"
	"unicode"
)

// DisplayName derives a human name from the local part of an address:
// "ada.lovelace+news@example.com" becomes "Ada Lovelace". Separators are
// dots, underscores, dashes and everything after a plus tag. Returns "" when
// nothing usable remains.
func DisplayName(address string) string {
	local, _, _ := strings.Cut(address, "@")
	local, _, _ = strings.Cut(local, "+")
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
