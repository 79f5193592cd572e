package payload

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/noahxzhu/chatcard/internal/model"
)

// MaxBytes mirrors the limit the chat service enforces on a webhook body.
const MaxBytes = 32000

// Encode returns the exact bytes posted to the webhook: compact JSON with
// HTML characters left as-is.
func Encode(m model.Message) ([]byte, error) {
	w, err := model.Wire(m)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(w); err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

type Size struct {
	Bytes int
	Limit int
}

// Oversized reports whether the payload exceeds the limit; a payload of
// exactly Limit bytes is accepted.
func (s Size) Oversized() bool {
	return s.Bytes > s.Limit
}

func (s Size) String() string {
	return fmt.Sprintf("%s / %s", HumanBytes(s.Bytes), HumanBytes(s.Limit))
}

// SizeOf measures an already encoded payload.
func SizeOf(body []byte) Size {
	return Size{Bytes: len(body), Limit: MaxBytes}
}

// Measure encodes m and returns its size. A nil message measures zero.
func Measure(m model.Message) (Size, error) {
	if m == nil {
		return Size{Limit: MaxBytes}, nil
	}
	body, err := Encode(m)
	if err != nil {
		return Size{Limit: MaxBytes}, err
	}
	return SizeOf(body), nil
}

// HumanBytes formats n as e.g. "32 kB (32,000 bytes)".
func HumanBytes(n int) string {
	return fmt.Sprintf("%s (%s bytes)", humanize.Bytes(uint64(n)), humanize.Comma(int64(n)))
}
