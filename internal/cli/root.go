package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/noahxzhu/chatcard/internal/config"
	"github.com/noahxzhu/chatcard/internal/sender"
	"github.com/noahxzhu/chatcard/internal/storage"
	"github.com/noahxzhu/chatcard/internal/webhook"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

// app is what every subcommand works against. It is built once the flags
// are parsed.
type app struct {
	cfg    *config.Config
	store  *storage.Store
	sender *sender.Sender
	logger *slog.Logger
}

func (a *app) close() {
	if a.store != nil && a.logger != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("Failed to close store", "error", err)
		}
	}
}

// newRootCommand returns the chatcard command tree and the app its
// subcommands share.
func newRootCommand() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "chatcard",
		Short: "Compose chat messages and post them to a webhook",
		Long: `chatcard builds plain text, card and poll messages and posts them as JSON
to a chat space webhook. Sent payloads and saved webhooks are kept locally
and shared with the chatcard web UI.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	root.PersistentFlags().StringP("config", "c", "configs/config.yaml", "config file path")

	root.AddCommand(
		newSendCmd(a),
		newPreviewCmd(a),
		newHistoryCmd(a),
		newWebhooksCmd(a),
	)
	return root, a
}

func (a *app) init(cmd *cobra.Command) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	a.cfg = cfg

	kv, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if kv == nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	if err != nil {
		a.logger.Warn("Storage unreadable, starting empty", "error", err)
	}
	a.store = storage.NewStore(kv, a.logger)
	a.store.Load()

	a.sender = sender.New(webhook.NewClient(cfg.Webhook.Timeout), a.store, nil, a.logger)
	return nil
}

// resolveWebhook turns a --webhook value into a URL. A saved webhook's id or
// name is looked up first; an empty value falls back to the last webhook
// used, then the configured default.
func (a *app) resolveWebhook(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		if last := a.store.LastWebhook(); last != "" {
			return last
		}
		return a.cfg.Webhook.DefaultURL
	}
	if saved, ok := a.store.FindWebhook(ref); ok {
		return saved.URL
	}
	return ref
}

// Run executes the command tree with args and releases the store afterwards,
// whether or not the command failed.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root, a := newRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer a.close()
	return root.ExecuteContext(ctx)
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
