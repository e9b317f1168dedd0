// Package mailer defines the outbound message contract used by
// campaign dispatch. The dispatcher renders per-recipient content and
// hands fully-formed messages to a Transport; what happens on the
// wire is the transport's business.
package mailer

import "context"

// Message is one rendered email ready to send.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Transport delivers a single message. Implementations must be safe
// for concurrent use; dispatch sends a whole batch at once.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}
