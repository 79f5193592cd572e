package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	args = append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...)
	err := Run(context.Background(), args, &out, &errOut)
	return out.String(), err
}

func withStore(t *testing.T) {
	t.Helper()
	t.Setenv("CHATCARD_STORAGE_BACKEND", "file")
	t.Setenv("CHATCARD_STORAGE_PATH", filepath.Join(t.TempDir(), "store.json"))
}

func TestSendCardAndHistory(t *testing.T) {
	withStore(t)
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = string(b)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	out, err := run(t, "send", "-m", "card", "-w", srv.URL,
		"--title", "Release", "--card-text", "v2 is out",
		"--button", "Notes|https://example.com/notes", "--button", "broken")
	require.NoError(t, err)
	assert.Contains(t, out, "sent: status 200: ok")
	assert.Contains(t, got, `"textParagraph":{"text":"v2 is out"}`)
	assert.Contains(t, got, `"openLink":{"url":"https://example.com/notes"}`)
	assert.NotContains(t, got, "broken")

	out, err = run(t, "history", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"mode": "card"`)

	// The last webhook is reused when -w is omitted.
	_, err = run(t, "send", "-t", "again")
	require.NoError(t, err)
	assert.Equal(t, `{"text":"again"}`, got)
}

func TestSendFailureReturnsStatus(t *testing.T) {
	withStore(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("oops"))
	}))
	defer srv.Close()

	_, err := run(t, "send", "-w", srv.URL, "-t", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "oops")

	out, err := run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No history.")
}

func TestSendWithoutWebhook(t *testing.T) {
	withStore(t)
	_, err := run(t, "send", "-t", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no webhook URL")
}

func TestSendUnknownMode(t *testing.T) {
	withStore(t)
	_, err := run(t, "send", "-m", "video", "-w", "https://chat.example.com/hook")
	assert.Error(t, err)
}

func TestWebhooksCommands(t *testing.T) {
	withStore(t)
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	out, err := run(t, "webhooks", "add", "team", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved team as ")
	id := strings.TrimSpace(out[strings.LastIndex(out, " "):])

	out, err = run(t, "webhooks", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "team")

	_, err = run(t, "send", "-w", "team", "-m", "poll", "--question", "Lunch?", "--option", "🍕|Pizza", "--option", "Salad")
	require.NoError(t, err)
	assert.Equal(t, 1, hits)

	_, err = run(t, "webhooks", "rm", id)
	require.NoError(t, err)
	_, err = run(t, "webhooks", "rm", id)
	assert.Error(t, err)

	out, err = run(t, "webhooks", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved webhooks.")
}

func TestPreview(t *testing.T) {
	withStore(t)
	out, err := run(t, "preview", "-m", "poll", "--question", "Pick one?", "--option", "A", "--option", "")
	require.NoError(t, err)
	assert.Contains(t, out, `"text": " A"`)
	assert.Contains(t, out, "size: ")

	_, err = run(t, "preview", "-m", "card", "--title", "only a header")
	assert.Error(t, err)
}

func TestFormFlagsOptions(t *testing.T) {
	ff := &formFlags{mode: "poll", options: []string{"✅|Yes", "No", "|Maybe"}}
	f, err := ff.form()
	require.NoError(t, err)
	require.Len(t, f.Options, 3)
	assert.Equal(t, "✅", f.Options[0].Emoji)
	assert.Equal(t, "Yes", f.Options[0].Text)
	assert.Equal(t, "", f.Options[1].Emoji)
	assert.Equal(t, "No", f.Options[1].Text)
	assert.Equal(t, "Maybe", f.Options[2].Text)
}
