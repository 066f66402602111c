package models

import (
	"encoding/json"
	"time"
)

type Sender string

const (
	SenderUser  Sender = "user"
	SenderAdmin Sender = "admin"
)

// isoLayout matches JavaScript's Date.prototype.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z"

// ISOTime is a UTC instant serialized with millisecond precision.
type ISOTime time.Time

func NewISOTime(t time.Time) ISOTime {
	return ISOTime(t.UTC().Truncate(time.Millisecond))
}

func (it ISOTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(it).UTC().Format(isoLayout))
}

// UnmarshalJSON treats null as the zero instant.
func (it *ISOTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*it = ISOTime{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return err
	}
	*it = NewISOTime(t)
	return nil
}

func (it ISOTime) Time() time.Time {
	return time.Time(it)
}

// Reply is the single admin answer attached to a Message.
type Reply struct {
	Text      string  `json:"text"`
	From      string  `json:"from"`
	Timestamp ISOTime `json:"timestamp"`
}

// Message is one user-submitted entry of the chat_messages document.
type Message struct {
	ID        int64   `json:"id"`
	Sender    Sender  `json:"sender"`
	Username  string  `json:"username"`
	Text      string  `json:"text"`
	Timestamp ISOTime `json:"timestamp"`
	Read      bool    `json:"read"`
	Reply     *Reply  `json:"reply,omitempty"`
}

// FromUser reports whether the message counts toward unread totals.
func (m Message) FromUser() bool {
	return m.Sender == SenderUser
}

func (m Message) Replied() bool {
	return m.Reply != nil
}

// Clone returns a deep copy so callers can not mutate a store's reply values.
func (m Message) Clone() Message {
	if m.Reply != nil {
		r := *m.Reply
		m.Reply = &r
	}
	return m
}
