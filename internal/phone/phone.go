package phone

import "strings"

// Key normalizes a raw phone number into the digits-only identity key used
// across accounts, sessions, and rate limits. Formatting characters are
// dropped and a leading NANP country code "1" is trimmed so that national
// and international spellings of the same number collapse to one key. If no
// digits remain the raw input is returned unchanged so non-numeric sender
// identifiers still map to a stable key.
func Key(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	key := b.String()
	if len(key) == 11 && strings.HasPrefix(key, "1") {
		key = key[1:]
	}
	if key == "" {
		return strings.TrimSpace(raw)
	}
	return key
}
