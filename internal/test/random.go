package test

import (
	"math/rand/v2"
	"strings"
)

const (
	asciiLetters   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	receiptLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	digits         = "0123456789"
)

// RandomASCIIString returns a pseudo-random alphanumeric string within the provided bounds.
// When maxLen equals minLen the resulting string always has that exact length.
func RandomASCIIString(minLen, maxLen int) string {
	if minLen <= 0 {
		minLen = 1
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	return randomFrom(asciiLetters, minLen+rand.IntN(maxLen-minLen+1))
}

// RandomLocalPhone returns a Kenyan mobile number in local 07XXXXXXXX form.
func RandomLocalPhone() string {
	return "07" + randomFrom(digits, 8)
}

// RandomReceipt returns a ten character M-Pesa style receipt number.
func RandomReceipt() string {
	return randomFrom(receiptLetters, 10)
}

func randomFrom(alphabet string, n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(alphabet[rand.IntN(len(alphabet))])
	}
	return b.String()
}
