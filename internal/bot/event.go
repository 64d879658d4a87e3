package bot

import (
	"strings"

	"github.com/zulandar/territorio/internal/whatsapp"
)

// EventMessagesUpsert is the Evolution webhook event carrying new messages.
const EventMessagesUpsert = "messages.upsert"

// Event is an Evolution API webhook payload.
type Event struct {
	Type     string    `json:"type"`
	Instance string    `json:"instance"`
	Sender   string    `json:"sender"`
	Data     EventData `json:"data"`
}

// EventData is the message part of a webhook event.
type EventData struct {
	Key     MessageKey      `json:"key"`
	Message *MessageContent `json:"message"`
}

// MessageKey identifies the chat and author of a message.
type MessageKey struct {
	RemoteJID   string `json:"remoteJid"`
	Participant string `json:"participant"`
	FromMe      bool   `json:"fromMe"`
}

// MessageContent holds the text variants the bot understands.
type MessageContent struct {
	Conversation        string               `json:"conversation"`
	ExtendedTextMessage *ExtendedTextMessage `json:"extendedTextMessage"`
}

// ExtendedTextMessage is a text message with formatting or a quote.
type ExtendedTextMessage struct {
	Text string `json:"text"`
}

// InstanceName returns the Evolution instance the event came from.
func (e Event) InstanceName() string {
	if e.Instance != "" {
		return e.Instance
	}
	return e.Sender
}

// Text returns the trimmed message text, or "" when there is none.
func (e Event) Text() string {
	m := e.Data.Message
	if m == nil {
		return ""
	}
	if m.Conversation != "" {
		return strings.TrimSpace(m.Conversation)
	}
	if m.ExtendedTextMessage != nil {
		return strings.TrimSpace(m.ExtendedTextMessage.Text)
	}
	return ""
}

// Author returns the JID of the person who wrote the message. In groups it
// is the participant; in direct chats the chat itself.
func (e Event) Author() string {
	if e.Data.Key.Participant != "" {
		return e.Data.Key.Participant
	}
	return e.Data.Key.RemoteJID
}

// Phone returns the author's phone number.
func (e Event) Phone() string {
	return whatsapp.PhoneFromJID(e.Author())
}
