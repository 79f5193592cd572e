package payload

import (
	"strconv"
	"strings"
	"time"

	"github.com/noahxzhu/chatcard/internal/model"
)

// CardFields are the card-mode inputs. Images and Actions are newline
// delimited; each action line is "label|url".
type CardFields struct {
	Title       string
	Subtitle    string
	HeaderImage string
	Text        string
	Images      string
	Actions     string
}

// Build derives the message for the form's current mode. It returns nil when
// the form holds nothing sendable.
func Build(f model.Form, now time.Time) model.Message {
	switch f.Mode {
	case model.ModeText:
		return BuildText(f.Text)
	case model.ModeCard:
		return BuildCard(CardFields{
			Title:       f.Title,
			Subtitle:    f.Subtitle,
			HeaderImage: f.HeaderImage,
			Text:        f.CardText,
			Images:      f.Images,
			Actions:     f.Actions,
		})
	case model.ModePoll:
		return BuildPoll(f.Question, f.Options, now)
	default:
		return nil
	}
}

// BuildText never returns nil: the chat service rejects an empty text field,
// so blank input becomes a single space.
func BuildText(text string) model.Message {
	t := strings.TrimSpace(text)
	if t == "" {
		t = " "
	}
	return model.TextMessage{Text: t}
}

func BuildCard(in CardFields) model.Message {
	var widgets []model.Widget

	if t := strings.TrimSpace(in.Text); t != "" {
		widgets = append(widgets, model.TextParagraph{Text: t})
	}
	for _, line := range nonBlankLines(in.Images) {
		widgets = append(widgets, model.Image{ImageURL: NormalizeImageURL(line)})
	}
	if buttons := ParseButtons(in.Actions); len(buttons) > 0 {
		widgets = append(widgets, model.ButtonList{Buttons: buttons})
	}

	// A header on its own is not a sendable card.
	if len(widgets) == 0 {
		return nil
	}

	card := model.Card{
		Header:   buildHeader(in),
		Sections: []model.Section{{Widgets: widgets}},
	}
	return model.CardMessage{Cards: []model.Card{card}}
}

func buildHeader(in CardFields) *model.CardHeader {
	h := model.CardHeader{
		Title:    strings.TrimSpace(in.Title),
		Subtitle: strings.TrimSpace(in.Subtitle),
		ImageURL: NormalizeImageURL(strings.TrimSpace(in.HeaderImage)),
	}
	if h.Title == "" && h.Subtitle == "" && h.ImageURL == "" {
		return nil
	}
	return &h
}

// ParseButtons reads one button per line, split on the first "|". Lines
// without both a label and a url are skipped.
func ParseButtons(actions string) []model.Button {
	var buttons []model.Button
	for _, line := range nonBlankLines(actions) {
		label, url, ok := strings.Cut(line, "|")
		if !ok {
			continue
		}
		label, url = strings.TrimSpace(label), strings.TrimSpace(url)
		if label == "" || url == "" {
			continue
		}
		buttons = append(buttons, model.Button{Label: label, URL: url})
	}
	return buttons
}

// BuildPoll renders each option with text as "<emoji> <text>". An empty emoji
// leaves the leading space in place.
func BuildPoll(question string, options []model.PollOption, now time.Time) model.Message {
	q := strings.TrimSpace(question)
	if q == "" {
		return nil
	}

	var widgets []model.Widget
	for _, opt := range options {
		text := strings.TrimSpace(opt.Text)
		if text == "" {
			continue
		}
		widgets = append(widgets, model.DecoratedText{Text: opt.Emoji + " " + text})
	}
	if len(widgets) == 0 {
		return nil
	}

	return model.PollMessage{CardsV2: []model.CardV2{{
		CardID: PollCardID(now),
		Card: model.PollCard{
			Title:    q,
			Sections: []model.Section{{Widgets: widgets}},
		},
	}}}
}

func PollCardID(now time.Time) string {
	return "poll-" + strconv.FormatInt(now.UnixNano(), 10)
}

func nonBlankLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			out = append(out, t)
		}
	}
	return out
}
