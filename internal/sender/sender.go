package sender

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/noahxzhu/chatcard/internal/metrics"
	"github.com/noahxzhu/chatcard/internal/model"
	"github.com/noahxzhu/chatcard/internal/payload"
	"github.com/noahxzhu/chatcard/internal/webhook"
)

type Poster interface {
	Post(ctx context.Context, url string, body []byte) (webhook.Response, error)
}

// Recorder keeps track of what was sent successfully.
type Recorder interface {
	AddHistory(item model.HistoryItem) error
	SetLastWebhook(url string) error
}

type Sender struct {
	poster   Poster
	recorder Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func New(poster Poster, recorder Recorder, m *metrics.Metrics, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{
		poster:   poster,
		recorder: recorder,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Result is the outcome of one send attempt. Status is the single line shown
// to the user; Form is what the compose form should hold afterwards.
type Result struct {
	OK       bool
	Status   string
	Err      error
	Form     model.Form
	Payload  []byte
	Response webhook.Response
}

// Send builds the payload from f and posts it once. The webhook, the payload
// and its size are checked in that order before anything goes on the wire.
func (s *Sender) Send(ctx context.Context, f model.Form) Result {
	target := strings.TrimSpace(f.Webhook)
	if target == "" {
		return s.reject(f, metrics.OutcomeNoWebhook, ErrNoWebhook)
	}

	msg := payload.Build(f, s.now())
	if msg == nil {
		return s.reject(f, metrics.OutcomeNothingToSend, &NothingToSendError{Mode: f.Mode})
	}
	body, err := payload.Encode(msg)
	if err != nil {
		return s.reject(f, metrics.OutcomeNothingToSend, err)
	}

	res := s.deliver(ctx, target, f.Mode, body)
	res.Form = f
	if res.OK && f.ClearAfterSend {
		res.Form = f.Cleared()
	}
	return res
}

// Resend posts a history entry's payload again, byte for byte, to the
// webhook it went to originally.
func (s *Sender) Resend(ctx context.Context, item model.HistoryItem) Result {
	target := strings.TrimSpace(item.Webhook)
	if target == "" {
		return s.reject(model.Form{}, metrics.OutcomeNoWebhook, ErrNoWebhook)
	}
	if len(item.Payload) == 0 {
		return s.reject(model.Form{}, metrics.OutcomeNothingToSend, &NothingToSendError{Mode: item.Mode})
	}
	return s.deliver(ctx, target, item.Mode, item.Payload)
}

func (s *Sender) reject(f model.Form, outcome string, err error) Result {
	s.metrics.ObserveSend(outcome, 0)
	s.logger.Warn("Send aborted", "outcome", outcome, "error", err)
	return Result{Status: err.Error(), Err: err, Form: f}
}

func (s *Sender) deliver(ctx context.Context, target string, mode model.Mode, body []byte) Result {
	size := payload.SizeOf(body)
	if size.Oversized() {
		err := &CapacityError{Size: size}
		s.metrics.ObserveSend(metrics.OutcomeOversized, size.Bytes)
		s.logger.Warn("Send aborted", "outcome", metrics.OutcomeOversized, "bytes", size.Bytes, "limit", size.Limit)
		return Result{Status: err.Error(), Err: err, Payload: body}
	}

	s.logger.Info("Sending payload", "webhook", Redact(target), "mode", mode, "bytes", size.Bytes)
	resp, err := s.poster.Post(ctx, target, body)
	if err != nil {
		terr := &TransportError{Err: err}
		s.metrics.ObserveSend(metrics.OutcomeTransport, size.Bytes)
		s.logger.Error("Failed to reach webhook", "webhook", Redact(target), "error", err)
		return Result{Status: terr.Error(), Err: terr, Payload: body}
	}

	if !resp.OK() {
		rerr := &RemoteError{StatusCode: resp.StatusCode, Body: resp.Body}
		s.metrics.ObserveSend(metrics.OutcomeRejected, size.Bytes)
		s.logger.Error("Webhook rejected payload", "webhook", Redact(target), "status", resp.StatusCode)
		return Result{Status: rerr.Error(), Err: rerr, Payload: body, Response: resp}
	}

	s.metrics.ObserveSend(metrics.OutcomeSent, size.Bytes)
	s.logger.Info("Payload sent", "webhook", Redact(target), "status", resp.StatusCode)

	item := model.HistoryItem{
		Timestamp: s.now(),
		Mode:      mode,
		Webhook:   target,
		Payload:   append([]byte(nil), body...),
	}
	if err := s.recorder.AddHistory(item); err != nil {
		s.logger.Error("Failed to save history", "error", err)
	}
	if err := s.recorder.SetLastWebhook(target); err != nil {
		s.logger.Error("Failed to save last webhook", "error", err)
	}

	return Result{
		OK:       true,
		Status:   fmt.Sprintf("sent: status %d: %s", resp.StatusCode, resp.Body),
		Payload:  body,
		Response: resp,
	}
}

// Redact drops the query string, where webhook keys and tokens live, so a
// URL can be logged.
func Redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	u.User = nil
	u.Fragment = ""
	return u.String()
}
