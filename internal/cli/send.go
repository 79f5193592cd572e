package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noahxzhu/chatcard/internal/model"
	"github.com/noahxzhu/chatcard/internal/payload"
	"github.com/spf13/cobra"
)

type formFlags struct {
	mode        string
	webhook     string
	text        string
	title       string
	subtitle    string
	headerImage string
	cardText    string
	images      []string
	buttons     []string
	question    string
	options     []string
}

func (ff *formFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&ff.mode, "mode", "m", "text", "message kind: text, card or poll")
	f.StringVarP(&ff.webhook, "webhook", "w", "", "webhook URL, or the id or name of a saved webhook")
	f.StringVarP(&ff.text, "text", "t", "", "text message body (text mode)")
	f.StringVar(&ff.title, "title", "", "card header title")
	f.StringVar(&ff.subtitle, "subtitle", "", "card header subtitle")
	f.StringVar(&ff.headerImage, "header-image", "", "card header image URL")
	f.StringVar(&ff.cardText, "card-text", "", "card body text")
	f.StringArrayVar(&ff.images, "image", nil, "card image URL (repeatable)")
	f.StringArrayVar(&ff.buttons, "button", nil, `card button as "Label|https://url" (repeatable)`)
	f.StringVar(&ff.question, "question", "", "poll question")
	f.StringArrayVar(&ff.options, "option", nil, `poll option as "text" or "emoji|text" (repeatable)`)
}

func (ff *formFlags) form() (model.Form, error) {
	mode, ok := model.ParseMode(ff.mode)
	if !ok {
		return model.Form{}, fmt.Errorf("unknown mode %q: want text, card or poll", ff.mode)
	}
	f := model.Form{
		Mode:        mode,
		Text:        ff.text,
		Title:       ff.title,
		Subtitle:    ff.subtitle,
		HeaderImage: ff.headerImage,
		CardText:    ff.cardText,
		Images:      strings.Join(ff.images, "\n"),
		Actions:     strings.Join(ff.buttons, "\n"),
		Question:    ff.question,
	}
	for _, o := range ff.options {
		emoji, text, found := strings.Cut(o, "|")
		if !found {
			emoji, text = "", o
		}
		f.Options = append(f.Options, model.PollOption{Emoji: emoji, Text: text})
	}
	return f, nil
}

func newSendCmd(a *app) *cobra.Command {
	ff := &formFlags{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Build a message and post it to a webhook",
		Example: `  chatcard send -w team -t "Deploy finished"
  chatcard send -m card -w team --title Release --card-text "v2 is out" --button "Notes|https://example.com/notes"
  chatcard send -m poll -w team --question "Lunch?" --option "🍕|Pizza" --option "🍣|Sushi"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.form()
			if err != nil {
				return err
			}
			f.Webhook = a.resolveWebhook(ff.webhook)

			res := a.sender.Send(cmd.Context(), f)
			if !res.OK {
				return errors.New(res.Status)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Status)
			return nil
		},
	}
	ff.register(cmd)
	return cmd
}

func newPreviewCmd(a *app) *cobra.Command {
	ff := &formFlags{}
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the payload send would post, and its size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.form()
			if err != nil {
				return err
			}
			msg := payload.Build(f, time.Now())
			if msg == nil {
				return fmt.Errorf("nothing to send in %s mode", f.Mode)
			}
			body, err := payload.Encode(msg)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := json.Indent(&buf, body, "", "  "); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, buf.String())

			size := payload.SizeOf(body)
			if size.Oversized() {
				fmt.Fprintf(out, "size: %s (too large)\n", size)
			} else {
				fmt.Fprintf(out, "size: %s\n", size)
			}
			return nil
		},
	}
	ff.register(cmd)
	return cmd
}
