package sender

import (
	"errors"
	"fmt"

	"github.com/noahxzhu/chatcard/internal/model"
	"github.com/noahxzhu/chatcard/internal/payload"
)

// ErrNoWebhook is the configuration error for a blank webhook target.
var ErrNoWebhook = errors.New("no webhook URL: enter a webhook URL or pick a saved one")

// NothingToSendError means the form produced no payload.
type NothingToSendError struct {
	Mode model.Mode
}

func (e *NothingToSendError) Error() string {
	switch e.Mode {
	case model.ModeCard:
		return "nothing to send: a card needs at least one body element (text, an image or a button)"
	case model.ModePoll:
		return "nothing to send: a poll needs a question and at least one option with text"
	default:
		return "nothing to send"
	}
}

// CapacityError means the serialized payload is over the size limit.
type CapacityError struct {
	Size payload.Size
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("payload too large: %s is over the %s limit; shorten the text or remove some images or buttons",
		payload.HumanBytes(e.Size.Bytes), payload.HumanBytes(e.Size.Limit))
}

// TransportError means no response was received at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError means the webhook answered with a non-2xx status.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("webhook rejected the message: status %d: %s", e.StatusCode, e.Body)
}
