package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/noahxzhu/chatcard/internal/identity"
	"github.com/noahxzhu/chatcard/internal/metrics"
	"github.com/noahxzhu/chatcard/internal/model"
	"github.com/noahxzhu/chatcard/internal/payload"
	"github.com/noahxzhu/chatcard/internal/sender"
	"github.com/noahxzhu/chatcard/internal/storage"
)

//go:embed templates/*
var templateFS embed.FS

const sessionCookie = "session_token"

// Emojis offered by the poll option picker.
var Emojis = []string{"👍", "👎", "✅", "❌", "🔥", "🎉", "🍕", "🍣", "☕", "🚀", "1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣"}

type Options struct {
	DefaultWebhook string
	ClearAfterSend bool
	// GoogleClientID enables the Google sign-in button when set.
	GoogleClientID string
}

type Server struct {
	store   *storage.Store
	sender  *sender.Sender
	metrics *metrics.Metrics
	logger  *slog.Logger
	opts    Options
	router  *mux.Router

	mu       sync.Mutex
	sessions map[string]session
}

type session struct {
	user    identity.Claims
	expires time.Time
}

func NewServer(store *storage.Store, snd *sender.Sender, m *metrics.Metrics, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:    store,
		sender:   snd,
		metrics:  m,
		logger:   logger,
		opts:     opts,
		router:   mux.NewRouter(),
		sessions: make(map[string]session),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/", s.handleCompose).Methods(http.MethodGet)
	s.router.HandleFunc("/send", s.handleSend).Methods(http.MethodPost)
	s.router.HandleFunc("/api/preview", s.handlePreview).Methods(http.MethodPost)

	s.router.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	s.router.HandleFunc("/history/clear", s.handleClearHistory).Methods(http.MethodPost)
	s.router.HandleFunc("/history/{index:[0-9]+}/resend", s.handleResend).Methods(http.MethodPost)

	s.router.HandleFunc("/webhooks", s.handleWebhooks).Methods(http.MethodGet)
	s.router.HandleFunc("/webhooks", s.handleAddWebhook).Methods(http.MethodPost)
	s.router.HandleFunc("/webhooks/{id}/delete", s.handleDeleteWebhook).Methods(http.MethodPost)

	s.router.HandleFunc("/signin", s.handleSignIn).Methods(http.MethodPost)
	s.router.HandleFunc("/signout", s.handleSignOut).Methods(http.MethodGet)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Views

type composeView struct {
	User     *identity.Claims
	Form     model.Form
	Modes    []model.Mode
	Webhooks []model.SavedWebhook
	Emojis   []string
	Preview  string
	Size     payload.Size
	Status   string
	StatusOK bool
}

type historyEntry struct {
	Index   int
	Item    model.HistoryItem
	Webhook string
	Pretty  string
}

type historyView struct {
	User     *identity.Claims
	Entries  []historyEntry
	Status   string
	StatusOK bool
}

type webhooksView struct {
	User     *identity.Claims
	Webhooks []model.SavedWebhook
	Error    string
}

// Handlers

func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	mode, ok := model.ParseMode(r.URL.Query().Get("mode"))
	if !ok {
		mode = model.ModeText
	}

	f := model.NewForm(mode)
	f.ClearAfterSend = s.opts.ClearAfterSend
	f.Webhook = s.store.LastWebhook()
	if f.Webhook == "" {
		f.Webhook = s.opts.DefaultWebhook
	}

	s.renderCompose(w, r, f, "", false)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}
	f := formFromRequest(r)

	switch action := r.FormValue("action"); {
	case action == "add_option":
		f.Options = append(f.Options, model.PollOption{})
		s.renderCompose(w, r, f, "", false)
		return
	case strings.HasPrefix(action, "remove_option_"):
		i, err := strconv.Atoi(strings.TrimPrefix(action, "remove_option_"))
		if err == nil && i >= 0 && i < len(f.Options) {
			f.Options = append(f.Options[:i:i], f.Options[i+1:]...)
		}
		s.renderCompose(w, r, f, "", false)
		return
	}

	if f.Webhook == "" {
		if saved, ok := s.store.FindWebhook(r.FormValue("saved_webhook")); ok {
			f.Webhook = saved.URL
		}
	}

	res := s.sender.Send(r.Context(), f)
	s.renderCompose(w, r, res.Form, res.Status, res.OK)
}

type previewResponse struct {
	Payload   json.RawMessage `json:"payload"`
	Bytes     int             `json:"bytes"`
	Limit     int             `json:"limit"`
	Oversized bool            `json:"oversized"`
	Size      string          `json:"size"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var f model.Form
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&f); err != nil {
		http.Error(w, "Invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}

	resp := previewResponse{Payload: json.RawMessage("null"), Limit: payload.MaxBytes}
	if msg := payload.Build(f, time.Now()); msg != nil {
		body, err := payload.Encode(msg)
		if err != nil {
			http.Error(w, fmt.Sprintf("Encode error: %v", err), http.StatusInternalServerError)
			return
		}
		size := payload.SizeOf(body)
		resp.Payload = body
		resp.Bytes = size.Bytes
		resp.Oversized = size.Oversized()
	}
	resp.Size = payload.Size{Bytes: resp.Bytes, Limit: resp.Limit}.String()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Failed to write preview", "error", err)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.renderHistory(w, r, "", false)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearHistory(); err != nil {
		http.Error(w, "Failed to clear history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/history", http.StatusSeeOther)
}

func (s *Server) handleResend(w http.ResponseWriter, r *http.Request) {
	index, _ := strconv.Atoi(mux.Vars(r)["index"])
	item, ok := s.store.HistoryItem(index)
	if !ok {
		http.NotFound(w, r)
		return
	}
	res := s.sender.Resend(r.Context(), item)
	s.renderHistory(w, r, res.Status, res.OK)
}

func (s *Server) handleWebhooks(w http.ResponseWriter, r *http.Request) {
	s.renderTemplate(w, "webhooks.html", webhooksView{
		User:     s.currentUser(r),
		Webhooks: s.store.Webhooks(),
	})
}

func (s *Server) handleAddWebhook(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.AddWebhook(r.FormValue("name"), r.FormValue("url")); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		s.renderTemplate(w, "webhooks.html", webhooksView{
			User:     s.currentUser(r),
			Webhooks: s.store.Webhooks(),
			Error:    err.Error(),
		})
		return
	}
	http.Redirect(w, r, "/webhooks", http.StatusSeeOther)
}

func (s *Server) handleDeleteWebhook(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteWebhook(mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, storage.ErrWebhookNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Failed to delete webhook: "+err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/webhooks", http.StatusSeeOther)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	claims, err := identity.Decode(r.FormValue("credential"))
	if err != nil {
		s.logger.Warn("Sign-in credential rejected", "error", err)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	sessionToken := uuid.New().String()
	expires := time.Now().Add(24 * time.Hour)
	s.mu.Lock()
	s.sessions[sessionToken] = session{user: *claims, expires: expires}
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionToken,
		Expires:  expires,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if cookie, _ := r.Cookie(sessionCookie); cookie != nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		HttpOnly: true,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// currentUser returns the signed-in user, if any. Nothing is restricted for
// anonymous visitors.
func (s *Server) currentUser(r *http.Request) *identity.Claims {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[cookie.Value]
	if !ok {
		return nil
	}
	if time.Now().After(sess.expires) {
		delete(s.sessions, cookie.Value)
		return nil
	}
	user := sess.user
	return &user
}

// Rendering

func (s *Server) renderCompose(w http.ResponseWriter, r *http.Request, f model.Form, status string, ok bool) {
	view := composeView{
		User:     s.currentUser(r),
		Form:     f,
		Modes:    []model.Mode{model.ModeText, model.ModeCard, model.ModePoll},
		Webhooks: s.store.Webhooks(),
		Emojis:   Emojis,
		Size:     payload.Size{Limit: payload.MaxBytes},
		Status:   status,
		StatusOK: ok,
	}
	if msg := payload.Build(f, time.Now()); msg != nil {
		if body, err := payload.Encode(msg); err == nil {
			view.Size = payload.SizeOf(body)
			view.Preview = prettyJSON(body)
		}
	}
	s.renderTemplate(w, "compose.html", view)
}

func (s *Server) renderHistory(w http.ResponseWriter, r *http.Request, status string, ok bool) {
	items := s.store.History()
	entries := make([]historyEntry, 0, len(items))
	for i, item := range items {
		entries = append(entries, historyEntry{
			Index:   i,
			Item:    item,
			Webhook: sender.Redact(item.Webhook),
			Pretty:  prettyJSON(item.Payload),
		})
	}
	s.renderTemplate(w, "history.html", historyView{
		User:     s.currentUser(r),
		Entries:  entries,
		Status:   status,
		StatusOK: ok,
	})
}

func (s *Server) renderTemplate(w http.ResponseWriter, tmplName string, data interface{}) {
	tmpl, err := template.New(tmplName).Funcs(template.FuncMap{
		"googleClientID": func() string { return s.opts.GoogleClientID },
		"timestamp":      func(t time.Time) string { return t.Local().Format("2006-01-02 15:04:05") },
	}).ParseFS(templateFS, "templates/layout.html", "templates/"+tmplName)
	if err != nil {
		http.Error(w, fmt.Sprintf("Template error: %v", err), 500)
		return
	}
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		http.Error(w, fmt.Sprintf("Execute error: %v", err), 500)
	}
}

func prettyJSON(b []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, b, "", "  "); err != nil {
		return string(b)
	}
	return buf.String()
}

func formFromRequest(r *http.Request) model.Form {
	mode, ok := model.ParseMode(r.FormValue("mode"))
	if !ok {
		mode = model.ModeText
	}
	f := model.Form{
		Mode:           mode,
		Webhook:        strings.TrimSpace(r.FormValue("webhook")),
		Text:           r.FormValue("text"),
		Title:          r.FormValue("title"),
		Subtitle:       r.FormValue("subtitle"),
		HeaderImage:    r.FormValue("header_image"),
		CardText:       r.FormValue("card_text"),
		Images:         r.FormValue("images"),
		Actions:        r.FormValue("actions"),
		Question:       r.FormValue("question"),
		ClearAfterSend: r.FormValue("clear_after_send") != "",
	}

	emojis := r.Form["option_emoji"]
	texts := r.Form["option_text"]
	for i, text := range texts {
		opt := model.PollOption{Text: text}
		if i < len(emojis) {
			opt.Emoji = emojis[i]
		}
		f.Options = append(f.Options, opt)
	}
	if f.Options == nil {
		f.Options = []model.PollOption{}
	}
	return f
}
