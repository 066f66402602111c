package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageJSONShape(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.FixedZone("WIB", 7*3600))
	msg := Message{
		ID:        1714532400123,
		Sender:    SenderUser,
		Username:  "Alya",
		Text:      "Halo",
		Timestamp: NewISOTime(at),
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": 1714532400123,
		"sender": "user",
		"username": "Alya",
		"text": "Halo",
		"timestamp": "2024-05-01T03:00:00.123Z",
		"read": false
	}`, string(data))
	assert.NotContains(t, string(data), "reply")
}

func TestMessageWithReplyRoundTrip(t *testing.T) {
	raw := `{"id":5,"sender":"user","username":"Budi","text":"Tolong",` +
		`"timestamp":"2024-05-01T03:00:00.000Z","read":true,` +
		`"reply":{"text":"Siap","from":"Admin","timestamp":"2024-05-01T03:05:00.500Z"}}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	assert.True(t, msg.Replied())
	assert.True(t, msg.FromUser())
	assert.Equal(t, "Siap", msg.Reply.Text)
	assert.Equal(t, 5*time.Minute+500*time.Millisecond, msg.Reply.Timestamp.Time().Sub(msg.Timestamp.Time()))

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(data))
}

func TestISOTimeRejectsGarbage(t *testing.T) {
	var it ISOTime
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &it))
	assert.Error(t, json.Unmarshal([]byte(`42`), &it))

	it = NewISOTime(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, json.Unmarshal([]byte(`null`), &it))
	assert.True(t, it.Time().IsZero())
}

func TestNullTimestampKeepsDocument(t *testing.T) {
	raw := `[{"id":1,"sender":"user","username":"Alya","text":"satu","timestamp":null,"read":false},` +
		`{"id":2,"sender":"user","username":"Budi","text":"dua","timestamp":"2024-05-01T03:00:00.000Z","read":false}]`

	var msgs []Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msgs))
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].Timestamp.Time().IsZero())
	assert.Equal(t, "dua", msgs[1].Text)
}

func TestCloneDetachesReply(t *testing.T) {
	orig := Message{ID: 1, Reply: &Reply{Text: "a"}}
	cp := orig.Clone()
	cp.Reply.Text = "b"
	assert.Equal(t, "a", orig.Reply.Text)
}

func TestAdminSenderIsNotCounted(t *testing.T) {
	assert.False(t, Message{Sender: SenderAdmin}.FromUser())
}
