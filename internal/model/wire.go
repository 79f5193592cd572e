package model

import "fmt"

// Wire shapes follow the chat service's card schema. Every field that may be
// absent is a pointer or carries omitempty so a widget serializes exactly one
// variant key.

type wireText struct {
	Text string `json:"text"`
}

type wireCards struct {
	Cards []wireCard `json:"cards"`
}

type wireCardsV2 struct {
	CardsV2 []wireCardV2 `json:"cardsV2"`
}

type wireHeader struct {
	Title    string `json:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type wireCard struct {
	Header   *wireHeader   `json:"header,omitempty"`
	Sections []wireSection `json:"sections"`
}

type wireCardV2 struct {
	CardID string       `json:"cardId"`
	Card   wirePollCard `json:"card"`
}

type wirePollCard struct {
	Header   wireHeader    `json:"header"`
	Sections []wireSection `json:"sections"`
}

type wireSection struct {
	Widgets []wireWidget `json:"widgets"`
}

type wireWidget struct {
	TextParagraph *wireText       `json:"textParagraph,omitempty"`
	Image         *wireImage      `json:"image,omitempty"`
	ButtonList    *wireButtonList `json:"buttonList,omitempty"`
	DecoratedText *wireText       `json:"decoratedText,omitempty"`
}

type wireImage struct {
	ImageURL string `json:"imageUrl"`
}

type wireButtonList struct {
	Buttons []wireButton `json:"buttons"`
}

type wireButton struct {
	Text    string      `json:"text"`
	OnClick wireOnClick `json:"onClick"`
}

type wireOnClick struct {
	OpenLink wireOpenLink `json:"openLink"`
}

type wireOpenLink struct {
	URL string `json:"url"`
}

// Wire converts m into the value that is JSON-encoded onto the wire.
func Wire(m Message) (any, error) {
	switch v := m.(type) {
	case TextMessage:
		return wireText{Text: v.Text}, nil
	case CardMessage:
		out := wireCards{Cards: make([]wireCard, 0, len(v.Cards))}
		for _, c := range v.Cards {
			sections, err := wireSections(c.Sections)
			if err != nil {
				return nil, err
			}
			wc := wireCard{Sections: sections}
			if c.Header != nil {
				wc.Header = &wireHeader{Title: c.Header.Title, Subtitle: c.Header.Subtitle, ImageURL: c.Header.ImageURL}
			}
			out.Cards = append(out.Cards, wc)
		}
		return out, nil
	case PollMessage:
		out := wireCardsV2{CardsV2: make([]wireCardV2, 0, len(v.CardsV2))}
		for _, c := range v.CardsV2 {
			sections, err := wireSections(c.Card.Sections)
			if err != nil {
				return nil, err
			}
			out.CardsV2 = append(out.CardsV2, wireCardV2{
				CardID: c.CardID,
				Card:   wirePollCard{Header: wireHeader{Title: c.Card.Title}, Sections: sections},
			})
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("nil message")
	default:
		return nil, fmt.Errorf("unknown message type %T", m)
	}
}

func wireSections(sections []Section) ([]wireSection, error) {
	out := make([]wireSection, 0, len(sections))
	for _, s := range sections {
		ws := wireSection{Widgets: make([]wireWidget, 0, len(s.Widgets))}
		for _, w := range s.Widgets {
			ww, err := wireWidgetOf(w)
			if err != nil {
				return nil, err
			}
			ws.Widgets = append(ws.Widgets, ww)
		}
		out = append(out, ws)
	}
	return out, nil
}

func wireWidgetOf(w Widget) (wireWidget, error) {
	switch v := w.(type) {
	case TextParagraph:
		return wireWidget{TextParagraph: &wireText{Text: v.Text}}, nil
	case Image:
		return wireWidget{Image: &wireImage{ImageURL: v.ImageURL}}, nil
	case ButtonList:
		bl := &wireButtonList{Buttons: make([]wireButton, 0, len(v.Buttons))}
		for _, b := range v.Buttons {
			bl.Buttons = append(bl.Buttons, wireButton{
				Text:    b.Label,
				OnClick: wireOnClick{OpenLink: wireOpenLink{URL: b.URL}},
			})
		}
		return wireWidget{ButtonList: bl}, nil
	case DecoratedText:
		return wireWidget{DecoratedText: &wireText{Text: v.Text}}, nil
	default:
		return wireWidget{}, fmt.Errorf("unknown widget type %T", w)
	}
}
