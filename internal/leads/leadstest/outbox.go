package leadstest

import (
	"context"
	"sync"
)

// Message is one recorded outbound message. To is empty for operator messages.
type Message struct {
	To   string
	Text string
}

// Outbox records operator and customer messages. Err, when set, is returned
// from every send after recording.
type Outbox struct {
	mu       sync.Mutex
	operator []Message
	customer []Message
	Err      error
}

// SendMessage records an operator chat message.
func (o *Outbox) SendMessage(_ context.Context, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.operator = append(o.operator, Message{Text: text})
	return o.Err
}

// SendText records a customer WhatsApp message.
func (o *Outbox) SendText(_ context.Context, to, body string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.customer = append(o.customer, Message{To: to, Text: body})
	return o.Err
}

func (o *Outbox) Operator() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.operator...)
}

func (o *Outbox) Customer() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.customer...)
}
