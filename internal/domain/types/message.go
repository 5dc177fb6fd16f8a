package types

import "time"

// SystemSender is the sender name used for local notices.
const SystemSender = "system"

// Message is a chat line shown in a timeline.
type Message struct {
	ID                string    `json:"id"`
	Sender            string    `json:"sender"`
	SenderPeerID      PeerID    `json:"sender_peer_id,omitempty"`
	Content           string    `json:"content"`
	Timestamp         time.Time `json:"timestamp"`
	Channel           string    `json:"channel,omitempty"`
	Mentions          []string  `json:"mentions,omitempty"`
	IsPrivate         bool      `json:"is_private,omitempty"`
	RecipientNickname string    `json:"recipient_nickname,omitempty"`
	IsRelay           bool      `json:"is_relay,omitempty"`
	Delivery          Delivery  `json:"delivery,omitempty"`
}

// Delivery tracks an outgoing private message.
type Delivery uint8

const (
	DeliveryNone Delivery = iota
	DeliverySending
	DeliverySent
	DeliveryDelivered
	DeliveryRead
)

func (d Delivery) String() string {
	switch d {
	case DeliverySending:
		return "sending"
	case DeliverySent:
		return "sent"
	case DeliveryDelivered:
		return "delivered"
	case DeliveryRead:
		return "read"
	default:
		return ""
	}
}

// IsSystem reports whether the message is a local notice.
func (m Message) IsSystem() bool { return m.Sender == SystemSender }
