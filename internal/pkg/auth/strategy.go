package auth

import "time"

// Strategy issues and verifies bearer tokens for an opaque subject such as an admin login.
type Strategy interface {
	IssueToken(subject string) (string, error)
	ParseToken(token string) (string, error)
	Name() string
}

// Options tunes token strategies. A nil Now uses time.Now.
type Options struct {
	TTL time.Duration
	Now func() time.Time
}
