package services

import "github.com/Kyy487/ruangcerita/models"

// FilterAll selects every conversation in FilterBy.
const FilterAll = "all"

// SenderSummary backs one entry of the admin user list.
type SenderSummary struct {
	Username string `json:"username"`
	Total    int    `json:"total"`
	Unread   int    `json:"unread"`
}

// ViewState is what a live view renders.
type ViewState struct {
	Filter   string           `json:"filter"`
	Messages []models.Message `json:"messages"`
	Senders  []SenderSummary  `json:"senders,omitempty"`
	Unread   int              `json:"unread"`
	Total    int              `json:"total"`
}

// DistinctSenders lists every username once, in first-seen order.
func DistinctSenders(msgs []models.Message) []string {
	seen := make(map[string]struct{}, len(msgs))
	names := make([]string, 0)
	for _, m := range msgs {
		if _, ok := seen[m.Username]; ok {
			continue
		}
		seen[m.Username] = struct{}{}
		names = append(names, m.Username)
	}
	return names
}

// FilterBy keeps the messages of one username, or all of them for FilterAll,
// preserving their relative order.
func FilterBy(msgs []models.Message, selector string) []models.Message {
	if selector == FilterAll {
		return msgs
	}
	return byUsername(msgs, selector)
}

func byUsername(msgs []models.Message, username string) []models.Message {
	out := make([]models.Message, 0)
	for _, m := range msgs {
		if m.Username == username {
			out = append(out, m)
		}
	}
	return out
}

func unread(m models.Message) bool {
	return m.FromUser() && !m.Read
}

// UnreadCount counts user messages still waiting for an answer.
func UnreadCount(msgs []models.Message) int {
	n := 0
	for _, m := range msgs {
		if unread(m) {
			n++
		}
	}
	return n
}

func UnreadCountFor(msgs []models.Message, username string) int {
	n := 0
	for _, m := range msgs {
		if m.Username == username && unread(m) {
			n++
		}
	}
	return n
}

// Summarize returns per-sender totals and unread badges in first-seen order.
func Summarize(msgs []models.Message) []SenderSummary {
	names := DistinctSenders(msgs)
	index := make(map[string]int, len(names))
	out := make([]SenderSummary, len(names))
	for i, name := range names {
		index[name] = i
		out[i].Username = name
	}
	for _, m := range msgs {
		s := &out[index[m.Username]]
		s.Total++
		if unread(m) {
			s.Unread++
		}
	}
	return out
}

// AdminProjection is the moderation console view: the selected
// conversation, the user list with badges and the global counters.
func AdminProjection(msgs []models.Message, selector string) ViewState {
	if selector == "" {
		selector = FilterAll
	}
	return ViewState{
		Filter:   selector,
		Messages: FilterBy(msgs, selector),
		Senders:  Summarize(msgs),
		Unread:   UnreadCount(msgs),
		Total:    len(msgs),
	}
}

// UserProjection is the chat view of one user. It never treats the username
// as the FilterAll sentinel.
func UserProjection(msgs []models.Message, username string) ViewState {
	own := byUsername(msgs, username)
	return ViewState{
		Filter:   username,
		Messages: own,
		Unread:   UnreadCount(own),
		Total:    len(own),
	}
}
