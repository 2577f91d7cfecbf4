package model

import (
	"regexp"
	"strings"
)

const suffixDigits = 6

var (
	localMobile   = regexp.MustCompile(`^0[17]\d{8}$`)
	intlMobile    = regexp.MustCompile(`^254[17]\d{8}$`)
	shortMobile   = regexp.MustCompile(`^[17]\d{8}$`)
	phoneStripper = strings.NewReplacer(" ", "", "-", "", "+", "", "(", "", ")", "")
)

// NormalizePhone converts Kenyan mobile numbers to 2547XXXXXXXX form.
// Numbers in an unknown format are returned stripped but otherwise unchanged.
func NormalizePhone(raw string) string {
	p := phoneStripper.Replace(strings.TrimSpace(raw))
	switch {
	case localMobile.MatchString(p):
		return "254" + p[1:]
	case intlMobile.MatchString(p):
		return p
	case shortMobile.MatchString(p):
		return "254" + p
	}
	return p
}

// IsGatewayPhone reports whether a normalised number is accepted by the gateway.
func IsGatewayPhone(p string) bool {
	return intlMobile.MatchString(p)
}

// PhoneSuffix returns the last six digits of raw for last-resort correlation.
// Non-digit characters are dropped; fewer than six digits yields "".
func PhoneSuffix(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < suffixDigits {
		return ""
	}
	return digits[len(digits)-suffixDigits:]
}

// IsPhoneSuffix reports whether s is a suffix PhoneSuffix could have produced.
func IsPhoneSuffix(s string) bool {
	if len(s) != suffixDigits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
