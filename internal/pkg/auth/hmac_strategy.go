package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidToken   = errors.New("invalid auth token")
	ErrInvalidSubject = errors.New("invalid token subject")
)

const (
	tokenVersion    = "v1"
	defaultTokenTTL = 24 * time.Hour
)

var tokenEncoding = base64.RawURLEncoding

// HMACStrategy signs tokens of the form base64url(v1:subject:expiry).base64url(mac).
// The encoding is cookie and header safe.
type HMACStrategy struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewHMACStrategy builds HMACStrategy with provided secret and options.
func NewHMACStrategy(secret string, opts Options) *HMACStrategy {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &HMACStrategy{secret: []byte(secret), ttl: ttl, now: now}
}

// IssueToken generates a signed token for the subject.
func (s *HMACStrategy) IssueToken(subject string) (string, error) {
	if subject == "" || strings.ContainsAny(subject, ":.") {
		return "", ErrInvalidSubject
	}
	expires := s.now().Add(s.ttl).Unix()
	payload := tokenVersion + ":" + subject + ":" + strconv.FormatInt(expires, 10)
	return tokenEncoding.EncodeToString([]byte(payload)) + "." + tokenEncoding.EncodeToString(s.sign(payload)), nil
}

// ParseToken validates token and returns the encoded subject.
func (s *HMACStrategy) ParseToken(token string) (string, error) {
	encodedPayload, encodedSig, ok := strings.Cut(token, ".")
	if !ok {
		return "", ErrInvalidToken
	}
	payload, err := tokenEncoding.DecodeString(encodedPayload)
	if err != nil {
		return "", ErrInvalidToken
	}
	sig, err := tokenEncoding.DecodeString(encodedSig)
	if err != nil {
		return "", ErrInvalidToken
	}
	if !hmac.Equal(sig, s.sign(string(payload))) {
		return "", ErrInvalidToken
	}

	parts := strings.Split(string(payload), ":")
	if len(parts) != 3 || parts[0] != tokenVersion || parts[1] == "" {
		return "", ErrInvalidToken
	}

	expires, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", ErrInvalidToken
	}
	if !s.now().Before(time.Unix(expires, 0)) {
		return "", ErrInvalidToken
	}

	return parts[1], nil
}

func (s *HMACStrategy) Name() string {
	return "hmac"
}

func (s *HMACStrategy) sign(payload string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}
