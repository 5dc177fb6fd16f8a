package types

import "strings"

// LocationChannel selects between the mesh and a geohash-scoped broadcast
// channel. The zero value is the mesh.
type LocationChannel struct {
	geohash string
}

// MeshChannel returns the mesh context.
func MeshChannel() LocationChannel { return LocationChannel{} }

// LocationFor returns the location channel for a geohash.
func LocationFor(geohash string) LocationChannel {
	return LocationChannel{geohash: strings.ToLower(geohash)}
}

// IsLocation reports whether the channel is geohash scoped.
func (c LocationChannel) IsLocation() bool { return c.geohash != "" }

// Geohash returns the geohash, empty for the mesh.
func (c LocationChannel) Geohash() string { return c.geohash }

func (c LocationChannel) String() string {
	if c.geohash == "" {
		return "mesh"
	}
	return "#" + c.geohash
}

// GeoPerson is a participant seen in a location channel.
type GeoPerson struct {
	PublicKeyHex string
	Nickname     string
}

// DisplayName returns the collision-resistant "nick#abcd" form.
func (p GeoPerson) DisplayName() string {
	suffix := p.PublicKeyHex
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	nick := p.Nickname
	if nick == "" {
		nick = "anon"
	}
	return nick + "#" + strings.ToLower(suffix)
}

// GeoIdentity is the per-geohash pseudonymous key pair.
type GeoIdentity struct {
	Geohash       string
	PrivateKeyHex string
	PublicKeyHex  string
}

// ChannelData is the persisted channel bookkeeping.
type ChannelData struct {
	Joined    []string          `json:"joined"`
	Protected []string          `json:"protected"`
	Creators  map[string]PeerID `json:"creators"`
	// KeyCommitments holds hex SHA-256 of each protected channel's key.
	KeyCommitments map[string]string `json:"key_commitments"`
}
