package types

// EventKind tags a transport event.
type EventKind uint8

const (
	EventPeerListUpdated EventKind = iota + 1
	EventMessageReceived
	EventChannelLeave
	EventDeliveryAck
	EventReadReceipt
	EventVerifyChallenge
	EventVerifyResponse
	EventGeohashParticipants
)

func (k EventKind) String() string {
	switch k {
	case EventPeerListUpdated:
		return "peer-list-updated"
	case EventMessageReceived:
		return "message-received"
	case EventChannelLeave:
		return "channel-leave"
	case EventDeliveryAck:
		return "delivery-ack"
	case EventReadReceipt:
		return "read-receipt"
	case EventVerifyChallenge:
		return "verify-challenge"
	case EventVerifyResponse:
		return "verify-response"
	case EventGeohashParticipants:
		return "geohash-participants"
	default:
		return "unknown"
	}
}

// Event is a transport callback delivered over a single channel. Only the
// fields relevant to Kind are set.
type Event struct {
	Kind      EventKind
	Peers     []PeerID
	Message   *Message
	Channel   string
	PeerID    PeerID
	MessageID string
	Payload   []byte
	Geohash   string
	People    []GeoPerson
}
