// Package whatsapp sends bot replies through the Evolution WhatsApp API.
package whatsapp

import (
	"context"
	"strings"
)

// Message is one outbound WhatsApp message. Instance and APIKey select the
// congregation's Evolution binding; Target is a chat JID or a bare number.
type Message struct {
	Instance string
	APIKey   string
	Target   string
	Text     string
	ImageURL string // SendImage only; Text becomes the caption
}

// Gateway is the outbound side of the messaging platform.
type Gateway interface {
	SendText(ctx context.Context, msg Message) error
	SendImage(ctx context.Context, msg Message) error
}

// DirectJID returns the private chat address of a phone number.
func DirectJID(phone string) string {
	return phone + "@s.whatsapp.net"
}

// PhoneFromJID returns the part of a JID before the "@".
func PhoneFromJID(jid string) string {
	if i := strings.IndexByte(jid, '@'); i >= 0 {
		return jid[:i]
	}
	return jid
}
