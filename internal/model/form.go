package model

import (
	"encoding/json"
	"time"
)

type PollOption struct {
	Emoji string `json:"emoji"`
	Text  string `json:"text"`
}

// Form is the compose form as the user left it. Payloads are derived from it
// on demand and never stored on it.
type Form struct {
	Mode           Mode         `json:"mode"`
	Webhook        string       `json:"webhook"`
	Text           string       `json:"text"`
	Title          string       `json:"title"`
	Subtitle       string       `json:"subtitle"`
	HeaderImage    string       `json:"header_image"`
	CardText       string       `json:"card_text"`
	Images         string       `json:"images"`
	Actions        string       `json:"actions"`
	Question       string       `json:"question"`
	Options        []PollOption `json:"options"`
	ClearAfterSend bool         `json:"clear_after_send"`
}

// NewForm returns the empty form a fresh compose view starts with.
func NewForm(mode Mode) Form {
	return Form{
		Mode:    mode,
		Options: []PollOption{{}, {}},
	}
}

// Cleared returns the initial empty form. Mode, webhook target and the
// clear-after-send preference survive.
func (f Form) Cleared() Form {
	c := NewForm(f.Mode)
	c.Webhook = f.Webhook
	c.ClearAfterSend = f.ClearAfterSend
	return c
}

type HistoryItem struct {
	Timestamp time.Time       `json:"timestamp"`
	Mode      Mode            `json:"mode"`
	Webhook   string          `json:"webhook,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type SavedWebhook struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required,max=100"`
	URL  string `json:"url" validate:"required,url"`
}
