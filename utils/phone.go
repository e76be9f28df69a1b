package utils

import (
	"fmt"
	"strings"
)

// NormalizePhone reduces any of the accepted phone spellings
// ("whatsapp:+15551234567", "+1 555 123-4567", "0015551234567",
// "15551234567") to the canonical "whatsapp:+<digits>" form used as
// the worker key everywhere else.
func NormalizePhone(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "whatsapp:")

	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	d := digits.String()
	d = strings.TrimPrefix(d, "00")
	if d == "" {
		return "", fmt.Errorf("no digits in phone number %q", raw)
	}
	return "whatsapp:+" + d, nil
}
