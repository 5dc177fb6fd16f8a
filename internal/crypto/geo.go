package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/nbd-wtf/go-nostr"

	"meshchat/internal/domain"
)

const geoDeriveAttempts = 16

// ErrNoGeoSeed is returned when a geo identity is requested without a seed.
var ErrNoGeoSeed = errors.New("geo seed is empty")

// DeriveGeoIdentity derives the pseudonymous key pair used inside one
// geohash. The same seed and geohash always yield the same identity, and
// identities in different geohashes are unlinkable without the seed.
func DeriveGeoIdentity(seed []byte, geohash string) (domain.GeoIdentity, error) {
	if len(seed) == 0 {
		return domain.GeoIdentity{}, ErrNoGeoSeed
	}
	geohash = strings.ToLower(geohash)
	for i := 0; i < geoDeriveAttempts; i++ {
		mac := hmac.New(sha256.New, seed)
		mac.Write([]byte(geohash))
		if i > 0 {
			var ctr [4]byte
			binary.BigEndian.PutUint32(ctr[:], uint32(i))
			mac.Write(ctr[:])
		}
		sk := hex.EncodeToString(mac.Sum(nil))
		pk, err := nostr.GetPublicKey(sk)
		if err != nil {
			continue
		}
		return domain.GeoIdentity{Geohash: geohash, PrivateKeyHex: sk, PublicKeyHex: pk}, nil
	}
	return domain.GeoIdentity{}, fmt.Errorf("derive geo identity for %s: no valid key", geohash)
}
