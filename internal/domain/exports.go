package domain

import (
	interfaces "meshchat/internal/domain/interfaces"
	types "meshchat/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	PeerID                = types.PeerID
	Fingerprint           = types.Fingerprint
	X25519Public          = types.X25519Public
	X25519Private         = types.X25519Private
	ConversationKey       = types.ConversationKey
	KeyKind               = types.KeyKind
	SessionState          = types.SessionState
	PeerSnapshot          = types.PeerSnapshot
	PeerSet               = types.PeerSet
	Message               = types.Message
	Delivery              = types.Delivery
	LocationChannel       = types.LocationChannel
	GeoPerson             = types.GeoPerson
	GeoIdentity           = types.GeoIdentity
	ChannelData           = types.ChannelData
	CommandSuggestion     = types.CommandSuggestion
	Event                 = types.Event
	EventKind             = types.EventKind
	Identity              = types.Identity
	IdentityCacheSnapshot = types.IdentityCacheSnapshot
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	PeerStateSource    = interfaces.PeerStateSource
	MeshSender         = interfaces.MeshSender
	Transport          = interfaces.Transport
	TransportFactory   = interfaces.TransportFactory
	BroadcastTransport = interfaces.BroadcastTransport
	GeoSubscriptions   = interfaces.GeoSubscriptions
	IdentityStore      = interfaces.IdentityStore
	PreferencesStore   = interfaces.PreferencesStore
	ChannelStore       = interfaces.ChannelStore
	IdentityCacheStore = interfaces.IdentityCacheStore
	Speaker            = interfaces.Speaker
	SoundPlayer        = interfaces.SoundPlayer
	FigletClient       = interfaces.FigletClient
	IdentityService    = interfaces.IdentityService
)
