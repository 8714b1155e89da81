package domain

import "time"

// DateLayout is the format of MessageView.Date.
const DateLayout = "2006-01-02 15:04"

// Bodies of the messages the server writes on behalf of a player.
const (
	BodyEntered  = "has entered the game"
	BodyLeft     = "has left the game"
	BodyReady    = "is ready!"
	BodyNotReady = "is not ready."
)

type Message struct {
	Name      string
	Body      string
	CreatedAt time.Time
}

func NewMessage(name, body string, now time.Time) Message {
	return Message{
		Name:      name,
		Body:      body,
		CreatedAt: now,
	}
}

type MessageView struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Date    string `json:"date"`
}

func (m Message) View() MessageView {
	return MessageView{
		Name:    m.Name,
		Message: m.Body,
		Date:    m.CreatedAt.Format(DateLayout),
	}
}
