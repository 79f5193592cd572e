package model

type Mode string

const (
	ModeText Mode = "text"
	ModeCard Mode = "card"
	ModePoll Mode = "poll"
)

func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeText, ModeCard, ModePoll:
		return Mode(s), true
	}
	return "", false
}

// Message is one of TextMessage, CardMessage or PollMessage. A nil Message
// means there is nothing to send.
type Message interface {
	Mode() Mode
	isMessage()
}

type TextMessage struct {
	Text string
}

type CardMessage struct {
	Cards []Card
}

type PollMessage struct {
	CardsV2 []CardV2
}

func (TextMessage) Mode() Mode { return ModeText }
func (CardMessage) Mode() Mode { return ModeCard }
func (PollMessage) Mode() Mode { return ModePoll }

func (TextMessage) isMessage() {}
func (CardMessage) isMessage() {}
func (PollMessage) isMessage() {}

type CardHeader struct {
	Title    string
	Subtitle string
	ImageURL string
}

type Card struct {
	Header   *CardHeader
	Sections []Section
}

type Section struct {
	Widgets []Widget
}

type CardV2 struct {
	CardID string
	Card   PollCard
}

type PollCard struct {
	Title    string
	Sections []Section
}

// Widget is one of TextParagraph, Image, ButtonList or DecoratedText.
type Widget interface {
	isWidget()
}

type TextParagraph struct {
	Text string
}

type Image struct {
	ImageURL string
}

type ButtonList struct {
	Buttons []Button
}

type DecoratedText struct {
	Text string
}

type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

func (TextParagraph) isWidget() {}
func (Image) isWidget()         {}
func (ButtonList) isWidget()    {}
func (DecoratedText) isWidget() {}
