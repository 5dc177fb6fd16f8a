package domain

import types "meshchat/internal/domain/types"

// Re-exported constants.
const (
	PublicIdentityPrefix = types.PublicIdentityPrefix
	AliasPrefix          = types.AliasPrefix
	SystemSender         = types.SystemSender

	KeyPeer           = types.KeyPeer
	KeyPublicIdentity = types.KeyPublicIdentity
	KeyAlias          = types.KeyAlias

	SessionNone        = types.SessionNone
	SessionHandshaking = types.SessionHandshaking
	SessionEstablished = types.SessionEstablished
	SessionFailed      = types.SessionFailed

	DeliveryNone      = types.DeliveryNone
	DeliverySending   = types.DeliverySending
	DeliverySent      = types.DeliverySent
	DeliveryDelivered = types.DeliveryDelivered
	DeliveryRead      = types.DeliveryRead

	EventPeerListUpdated     = types.EventPeerListUpdated
	EventMessageReceived     = types.EventMessageReceived
	EventChannelLeave        = types.EventChannelLeave
	EventDeliveryAck         = types.EventDeliveryAck
	EventReadReceipt         = types.EventReadReceipt
	EventVerifyChallenge     = types.EventVerifyChallenge
	EventVerifyResponse      = types.EventVerifyResponse
	EventGeohashParticipants = types.EventGeohashParticipants
)

// Re-exported constructors.
var (
	PeerKey              = types.PeerKey
	PublicIdentityKey    = types.PublicIdentityKey
	AliasKey             = types.AliasKey
	AliasForPublicKey    = types.AliasForPublicKey
	ParseConversationKey = types.ParseConversationKey
	MeshChannel          = types.MeshChannel
	LocationFor          = types.LocationFor
)
