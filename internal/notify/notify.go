// Package notify delivers messages to Telegram chats and fans them out over Pub/Sub.
package notify

import (
	"context"
	"errors"
)

// Message is one outbound notification. Text is Telegram HTML.
type Message struct {
	ChatID     int64  `json:"chat_id"`
	Kind       string `json:"kind"` // alert type, "summary", ...
	Text       string `json:"text"`
	ButtonText string `json:"button_text,omitempty"`
	ButtonURL  string `json:"button_url,omitempty"`
	PhotoURL   string `json:"photo_url,omitempty"`
	// Data is an optional structured payload for downstream consumers.
	Data any `json:"data,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, m Message) error
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops messages.
type Nop struct{}

func (Nop) Notify(context.Context, Message) error { return nil }
