package sender

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/noahxzhu/chatcard/internal/metrics"
	"github.com/noahxzhu/chatcard/internal/model"
	"github.com/noahxzhu/chatcard/internal/payload"
	"github.com/noahxzhu/chatcard/internal/webhook"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePoster struct {
	calls int
	url   string
	body  []byte
	resp  webhook.Response
	err   error
}

func (p *fakePoster) Post(_ context.Context, url string, body []byte) (webhook.Response, error) {
	p.calls++
	p.url = url
	p.body = body
	return p.resp, p.err
}

type fakeRecorder struct {
	history []model.HistoryItem
	last    string
	err     error
}

func (r *fakeRecorder) AddHistory(item model.HistoryItem) error {
	r.history = append(r.history, item)
	return r.err
}

func (r *fakeRecorder) SetLastWebhook(url string) error {
	r.last = url
	return nil
}

func newTestSender(p *fakePoster, r *fakeRecorder) (*Sender, *metrics.Metrics) {
	m := metrics.New()
	s := New(p, r, m, nil)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s, m
}

func textForm(text string) model.Form {
	f := model.NewForm(model.ModeText)
	f.Webhook = "https://chat.example.com/v1/spaces/x/messages?key=secret"
	f.Text = text
	return f
}

func TestSendSuccessRecordsHistory(t *testing.T) {
	p := &fakePoster{resp: webhook.Response{StatusCode: 200, Body: `{"name":"m1"}`}}
	r := &fakeRecorder{}
	s, m := newTestSender(p, r)

	f := textForm("  hello ")
	res := s.Send(context.Background(), f)

	require.True(t, res.OK, res.Status)
	assert.NoError(t, res.Err)
	assert.Contains(t, res.Status, "200")
	assert.Contains(t, res.Status, `{"name":"m1"}`)
	assert.Equal(t, f, res.Form, "form is untouched without clear-after-send")

	assert.Equal(t, 1, p.calls)
	assert.Equal(t, f.Webhook, p.url)
	assert.Equal(t, `{"text":"hello"}`, string(p.body))

	require.Len(t, r.history, 1)
	assert.Equal(t, model.ModeText, r.history[0].Mode)
	assert.Equal(t, f.Webhook, r.history[0].Webhook)
	assert.Equal(t, `{"text":"hello"}`, string(r.history[0].Payload))
	assert.Equal(t, f.Webhook, r.last)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sends(metrics.OutcomeSent)))
}

func TestSendClearAfterSend(t *testing.T) {
	p := &fakePoster{resp: webhook.Response{StatusCode: 200}}
	s, _ := newTestSender(p, &fakeRecorder{})

	f := model.NewForm(model.ModeCard)
	f.Webhook = "https://chat.example.com/hook"
	f.Title = "Deploy"
	f.CardText = "done"
	f.ClearAfterSend = true

	res := s.Send(context.Background(), f)
	require.True(t, res.OK)
	assert.Equal(t, model.ModeCard, res.Form.Mode)
	assert.Equal(t, f.Webhook, res.Form.Webhook)
	assert.True(t, res.Form.ClearAfterSend)
	assert.Empty(t, res.Form.Title)
	assert.Empty(t, res.Form.CardText)
}

func TestSendRemoteRejection(t *testing.T) {
	p := &fakePoster{resp: webhook.Response{StatusCode: 500, Body: "oops"}}
	r := &fakeRecorder{}
	s, m := newTestSender(p, r)

	f := textForm("hi")
	f.ClearAfterSend = true
	res := s.Send(context.Background(), f)

	assert.False(t, res.OK)
	assert.Contains(t, res.Status, "500")
	assert.Contains(t, res.Status, "oops")
	var rerr *RemoteError
	require.True(t, errors.As(res.Err, &rerr))
	assert.Equal(t, 500, rerr.StatusCode)
	assert.Empty(t, r.history)
	assert.Equal(t, f, res.Form, "a failed send never clears the form")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sends(metrics.OutcomeRejected)))
}

func TestSendTransportError(t *testing.T) {
	p := &fakePoster{err: errors.New("dial tcp: connection refused")}
	r := &fakeRecorder{}
	s, _ := newTestSender(p, r)

	res := s.Send(context.Background(), textForm("hi"))

	assert.False(t, res.OK)
	assert.True(t, strings.HasPrefix(res.Status, "network error"))
	assert.Contains(t, res.Status, "connection refused")
	var terr *TransportError
	assert.True(t, errors.As(res.Err, &terr))
	assert.Empty(t, r.history, "history is not appended on transport failure")
	assert.Empty(t, r.last)
}

func TestSendPreconditionsInOrder(t *testing.T) {
	p := &fakePoster{resp: webhook.Response{StatusCode: 200}}
	s, m := newTestSender(p, &fakeRecorder{})

	// Missing webhook wins over an empty card.
	f := model.NewForm(model.ModeCard)
	f.Webhook = "   "
	res := s.Send(context.Background(), f)
	assert.ErrorIs(t, res.Err, ErrNoWebhook)

	f.Webhook = "https://chat.example.com/hook"
	f.Title = "header only"
	res = s.Send(context.Background(), f)
	var nothing *NothingToSendError
	require.True(t, errors.As(res.Err, &nothing))
	assert.Contains(t, res.Status, "at least one body element")

	poll := model.NewForm(model.ModePoll)
	poll.Webhook = "https://chat.example.com/hook"
	poll.Question = "Pick one?"
	res = s.Send(context.Background(), poll)
	assert.Contains(t, res.Status, "at least one option")

	big := textForm(strings.Repeat("x", payload.MaxBytes))
	res = s.Send(context.Background(), big)
	var capacity *CapacityError
	require.True(t, errors.As(res.Err, &capacity))
	assert.Contains(t, res.Status, "32,011 bytes")
	assert.Contains(t, res.Status, "32,000 bytes")
	assert.Contains(t, res.Status, "shorten")

	assert.Zero(t, p.calls, "no precondition failure reaches the network")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sends(metrics.OutcomeOversized)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Sends(metrics.OutcomeNothingToSend)))
}

func TestSendHistoryFailureStillSucceeds(t *testing.T) {
	p := &fakePoster{resp: webhook.Response{StatusCode: 200}}
	s, _ := newTestSender(p, &fakeRecorder{err: errors.New("disk full")})

	res := s.Send(context.Background(), textForm("hi"))
	assert.True(t, res.OK)
}

func TestResend(t *testing.T) {
	p := &fakePoster{resp: webhook.Response{StatusCode: 200}}
	r := &fakeRecorder{}
	s, _ := newTestSender(p, r)

	item := model.HistoryItem{
		Mode:    model.ModeCard,
		Webhook: "https://chat.example.com/hook",
		Payload: []byte(`{"cards":[]}`),
	}
	res := s.Resend(context.Background(), item)
	require.True(t, res.OK)
	assert.Equal(t, `{"cards":[]}`, string(p.body))
	require.Len(t, r.history, 1)
	assert.Equal(t, model.ModeCard, r.history[0].Mode)

	item.Payload = []byte(`{"text":"` + strings.Repeat("x", payload.MaxBytes) + `"}`)
	res = s.Resend(context.Background(), item)
	var capacity *CapacityError
	assert.True(t, errors.As(res.Err, &capacity))
	assert.Equal(t, 1, p.calls)

	item.Webhook = ""
	res = s.Resend(context.Background(), item)
	assert.ErrorIs(t, res.Err, ErrNoWebhook)
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "https://chat.example.com/v1/spaces/x/messages",
		Redact("https://chat.example.com/v1/spaces/x/messages?key=secret&token=t"))
}
