package private_test

import (
	"context"
	"errors"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"meshchat/internal/crypto"
	"meshchat/internal/domain"
	"meshchat/internal/services/conversation"
	"meshchat/internal/services/identitycache"
	"meshchat/internal/services/message"
	"meshchat/internal/services/private"
	"meshchat/internal/store"
	"meshchat/internal/transport/loopback"
)

type fixture struct {
	svc   *private.Service
	state *conversation.State
	cache *identitycache.Store
	prefs *store.PreferencesFileStore
	tr    *loopback.Transport
	bob   loopback.Peer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := conversation.NewState()
	msgs := message.New(st, clock.NewMock(), zap.NewNop())
	cache := identitycache.New()
	prefs := store.NewPreferencesFileStore(t.TempDir())

	tr, err := loopback.New(loopback.Options{Self: "aaaaaaaaaaaaaaaa"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })

	bob, err := tr.AddPeer("bob")
	require.NoError(t, err)
	fp := crypto.Fingerprint(bob.Static[:])
	cache.Apply(identitycache.Entry{PeerID: bob.ID, Fingerprint: fp, Nickname: "bob"})
	st.Peers.Store(&domain.PeerSet{
		Peers: map[domain.PeerID]domain.PeerSnapshot{bob.ID: {PeerID: bob.ID, Nickname: "bob", Fingerprint: fp}},
		Order: []domain.PeerID{bob.ID},
	})

	seed := []byte("0123456789abcdef0123456789abcdef")
	svc := private.New(st, msgs, cache, prefs, tr, func() []byte { return seed }, zap.NewNop())
	return &fixture{svc: svc, state: st, cache: cache, prefs: prefs, tr: tr, bob: bob}
}

func lastSystem(st *conversation.State) string {
	msgs := st.Messages.Load()
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Content
}

func TestStartPrivateChat_InitiatesHandshake(t *testing.T) {
	f := newFixture(t)
	key := domain.PeerKey(f.bob.ID)
	f.state.UnreadPrivate.Store(map[domain.ConversationKey]bool{key: true})

	require.True(t, f.svc.StartPrivateChat(context.Background(), key, f.tr))
	assert.Equal(t, key, f.state.SelectedPrivatePeer.Load())
	assert.False(t, f.state.UnreadPrivate.Load()[key])
	_, ok := f.state.PrivateChats.Load()[key]
	assert.True(t, ok)
	assert.True(t, f.tr.HasEstablishedSession(f.bob.ID))

	f.svc.EndPrivateChat()
	assert.True(t, f.state.SelectedPrivatePeer.Load().IsZero())
}

func TestStartPrivateChat_AliasSubscribes(t *testing.T) {
	f := newFixture(t)
	key := domain.AliasKey("nostr_0123456789abcdef")
	f.tr.StartGeoConversation(key, "u4pru")

	require.True(t, f.svc.StartPrivateChat(context.Background(), key, f.tr))
	assert.Equal(t, "geo-dm-u4pru", f.tr.DMSubscription())
}

func TestBlockUnblock(t *testing.T) {
	f := newFixture(t)
	key := domain.PeerKey(f.bob.ID)

	f.svc.ListBlocked()
	assert.Equal(t, "no blocked users", lastSystem(f.state))

	f.svc.BlockByNickname("bob")
	assert.Equal(t, "blocked user bob", lastSystem(f.state))
	assert.True(t, f.svc.IsBlocked(key))

	f.svc.ListBlocked()
	assert.Equal(t, "blocked users: bob", lastSystem(f.state))

	blocked, err := f.prefs.LoadBlocked()
	require.NoError(t, err)
	assert.Len(t, blocked, 1)

	assert.False(t, f.svc.StartPrivateChat(context.Background(), key, f.tr))
	assert.Equal(t, "cannot start chat with bob: user is blocked.", lastSystem(f.state))

	sent := false
	err = f.svc.SendPrivateMessage(context.Background(), "hi", key, "bob", "carol", "aaaaaaaaaaaaaaaa",
		func(context.Context, string, domain.ConversationKey, string, string) error { sent = true; return nil })
	require.NoError(t, err)
	assert.False(t, sent)

	f.svc.UnblockByNickname("bob")
	assert.Equal(t, "unblocked user bob", lastSystem(f.state))
	f.svc.UnblockByNickname("bob")
	assert.Equal(t, "user bob is not blocked", lastSystem(f.state))

	f.svc.BlockByNickname("nobody")
	assert.Equal(t, "cannot block nobody: user not found or unable to verify identity", lastSystem(f.state))
}

func TestSendPrivateMessage(t *testing.T) {
	f := newFixture(t)
	key := domain.PeerKey(f.bob.ID)

	var gotID string
	err := f.svc.SendPrivateMessage(context.Background(), "hi bob", key, "bob", "carol", "aaaaaaaaaaaaaaaa",
		func(_ context.Context, content string, k domain.ConversationKey, nick, id string) error {
			assert.Equal(t, "hi bob", content)
			assert.Equal(t, key, k)
			assert.Equal(t, "bob", nick)
			gotID = id
			return nil
		})
	require.NoError(t, err)

	chat := f.state.PrivateChats.Load()[key]
	require.Len(t, chat, 1)
	assert.Equal(t, gotID, chat[0].ID)
	assert.Equal(t, "carol", chat[0].Sender)
	assert.Equal(t, domain.DeliverySending, chat[0].Delivery)
	assert.False(t, f.state.UnreadPrivate.Load()[key], "own messages are never unread")

	boom := errors.New("boom")
	err = f.svc.SendPrivateMessage(context.Background(), "again", key, "bob", "carol", "aaaaaaaaaaaaaaaa",
		func(context.Context, string, domain.ConversationKey, string, string) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestToggleFavorite(t *testing.T) {
	f := newFixture(t)

	on, err := f.svc.ToggleFavorite(f.bob.ID)
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, f.svc.IsFavorite(f.bob.ID))

	favs, err := f.prefs.LoadFavorites()
	require.NoError(t, err)
	assert.Len(t, favs, 1)

	on, err = f.svc.ToggleFavorite(f.bob.ID)
	require.NoError(t, err)
	assert.False(t, on)

	_, err = f.svc.ToggleFavorite("ffffffffffffffff")
	assert.Error(t, err)
}

func TestLoadPreferences(t *testing.T) {
	f := newFixture(t)
	fp := crypto.Fingerprint(f.bob.Static[:])
	require.NoError(t, f.prefs.SaveBlocked([]domain.Fingerprint{fp}))

	require.NoError(t, f.svc.LoadPreferences())
	assert.True(t, f.svc.IsBlocked(domain.PeerKey(f.bob.ID)))
}
