package chat

import (
	"strconv"
	"strings"
)

// TeamPrefix routes a message to the sender's team only.
const TeamPrefix = "/t"

// Scope markers on the wire.
const (
	ScopeTeam     = "T"
	ScopeEveryone = "E"
)

// Sender identifies who said something.
type Sender struct {
	ID   uint32
	Name string
	Team int
}

// Message is a parsed chat line.
type Message struct {
	TeamOnly bool
	Text     string
}

// Parse strips the team prefix and surrounding whitespace.
func Parse(text string) Message {
	text = strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(text, TeamPrefix); ok && (rest == "" || rest[0] == ' ') {
		return Message{TeamOnly: true, Text: strings.TrimSpace(rest)}
	}
	return Message{Text: text}
}

// Format renders the CH record:
// CH <T|E> <nameWordCount> <team><name> <messageWordCount> <message>
func Format(from Sender, msg Message) string {
	scope := ScopeEveryone
	if msg.TeamOnly {
		scope = ScopeTeam
	}
	var b strings.Builder
	b.WriteString("CH ")
	b.WriteString(scope)
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(wordCount(from.Name)))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(from.Team))
	b.WriteString(from.Name)
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(wordCount(msg.Text)))
	b.WriteByte(' ')
	b.WriteString(msg.Text)
	return b.String()
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
