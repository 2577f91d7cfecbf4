// Package notify delivers rendered notification messages to a transport.
package notify

import "context"

// Message is a rendered e-mail style notification.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Sender hands messages to a delivery transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}
