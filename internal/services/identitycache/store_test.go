package identitycache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshchat/internal/domain"
	"meshchat/internal/services/identitycache"
)

func TestApply_AdditiveLastWriteWins(t *testing.T) {
	s := identitycache.New()

	s.Apply(identitycache.Entry{PeerID: "p1", Fingerprint: "fp1", MeshKey: "AABB", Nickname: "alice"})
	s.Apply(identitycache.Entry{PeerID: "p2", Fingerprint: "fp2", Nickname: "bob"})
	s.Apply(identitycache.Entry{PeerID: "p1", Fingerprint: "fp1", Nickname: "alice2"})

	fp, ok := s.FingerprintForPeer("p1")
	require.True(t, ok)
	assert.Equal(t, domain.Fingerprint("fp1"), fp)

	fp, ok = s.FingerprintForMeshKey("aabb")
	require.True(t, ok)
	assert.Equal(t, domain.Fingerprint("fp1"), fp)

	key, ok := s.MeshKeyForPeer("p1")
	require.True(t, ok)
	assert.Equal(t, "aabb", key)

	nick, ok := s.NicknameForFingerprint("fp1")
	require.True(t, ok)
	assert.Equal(t, "alice2", nick)

	_, ok = s.NicknameForFingerprint("fp2")
	assert.True(t, ok, "earlier entries must survive later writes")

	fp, ok = s.FingerprintForNickname("bob")
	require.True(t, ok)
	assert.Equal(t, domain.Fingerprint("fp2"), fp)
}

func TestApply_SkipsEmptyFields(t *testing.T) {
	s := identitycache.New()
	s.Apply(identitycache.Entry{PeerID: "p1", Fingerprint: "fp1", Nickname: "alice"})
	s.Apply(identitycache.Entry{PeerID: "p1", Nickname: ""})

	nick, ok := s.NicknameForFingerprint("fp1")
	require.True(t, ok)
	assert.Equal(t, "alice", nick)
}

func TestSnapshotRestoreWipe(t *testing.T) {
	s := identitycache.New()
	s.Apply(identitycache.Entry{PeerID: "p1", Fingerprint: "fp1", MeshKey: "aa", Nickname: "alice"})
	s.CachePublicKeyMeshKey("PUB", "AA")

	snap := s.Snapshot()
	s.Wipe()

	_, ok := s.FingerprintForPeer("p1")
	assert.False(t, ok)
	_, ok = s.MeshKeyForPublicKey("pub")
	assert.False(t, ok)

	s.Restore(snap)
	key, ok := s.MeshKeyForPublicKey("pub")
	require.True(t, ok)
	assert.Equal(t, "aa", key)
	nick, _ := s.NicknameForFingerprint("fp1")
	assert.Equal(t, "alice", nick)
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := identitycache.New()
	s.Apply(identitycache.Entry{PeerID: "p1", Fingerprint: "fp1", Nickname: "alice"})

	snap := s.Snapshot()
	snap.Nicknames["fp1"] = "mallory"

	nick, _ := s.NicknameForFingerprint("fp1")
	assert.Equal(t, "alice", nick)
}
