package loopback_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshchat/internal/crypto"
	"meshchat/internal/domain"
	"meshchat/internal/transport/loopback"
)

func TestPeersAndQueries(t *testing.T) {
	ctx := context.Background()
	tr, err := loopback.New(loopback.Options{Self: "0000000000000000"})
	require.NoError(t, err)
	defer tr.Close()

	alice, err := tr.AddPeer("alice")
	require.NoError(t, err)
	assert.Len(t, string(alice.ID), 16)
	assert.Equal(t, []domain.PeerID{alice.ID}, tr.ConnectedPeers())

	ev := <-tr.Events()
	assert.Equal(t, domain.EventPeerListUpdated, ev.Kind)
	assert.Equal(t, []domain.PeerID{alice.ID}, ev.Peers)

	fp, ok, err := tr.Fingerprint(ctx, alice.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, crypto.Fingerprint(alice.Static[:]), fp)

	nick, ok, err := tr.Nickname(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", nick)

	_, ok, err = tr.Nickname(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	boom := errors.New("boom")
	tr.FailQuery(alice.ID, loopback.FieldNickname, boom)
	_, _, err = tr.Nickname(ctx, alice.ID)
	assert.ErrorIs(t, err, boom)
	tr.FailQuery(alice.ID, loopback.FieldNickname, nil)
	_, _, err = tr.Nickname(ctx, alice.ID)
	assert.NoError(t, err)

	tr.Disconnect(alice.ID)
	assert.Empty(t, tr.ConnectedPeers())
}

func TestHandshakeCompletesAfterDelay(t *testing.T) {
	ctx := context.Background()
	mock := clock.NewMock()
	tr, err := loopback.New(loopback.Options{Clock: mock, HandshakeDelay: 2 * time.Second})
	require.NoError(t, err)
	defer tr.Close()

	bob, err := tr.AddPeer("bob")
	require.NoError(t, err)

	require.Error(t, tr.SendPrivate(ctx, "hi", bob.ID, "bob", "m1"))

	require.NoError(t, tr.InitiateHandshake(ctx, bob.ID))
	st, err := tr.SessionState(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionHandshaking, st)

	mock.Add(2 * time.Second)
	require.Eventually(t, func() bool { return tr.HasEstablishedSession(bob.ID) }, time.Second, 5*time.Millisecond)

	require.NoError(t, tr.SendPrivate(ctx, "hi", bob.ID, "bob", "m1"))
	sent := tr.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "handshake", sent[0].Kind)
	assert.Equal(t, "private", sent[1].Kind)
	assert.Equal(t, "m1", sent[1].MessageID)
}

func TestAutoAck(t *testing.T) {
	ctx := context.Background()
	tr, err := loopback.New(loopback.Options{AutoAck: true})
	require.NoError(t, err)
	defer tr.Close()

	bob, err := tr.AddPeer("bob")
	require.NoError(t, err)
	<-tr.Events()
	require.NoError(t, tr.InitiateHandshake(ctx, bob.ID))

	require.NoError(t, tr.SendVerifyChallenge(ctx, bob.ID, []byte{1, 2, 3}))
	ev := <-tr.Events()
	assert.Equal(t, domain.EventVerifyResponse, ev.Kind)
	assert.Equal(t, []byte{1, 2, 3}, ev.Payload)

	require.NoError(t, tr.SendPrivate(ctx, "hi", bob.ID, "bob", "m9"))
	assert.Equal(t, domain.EventDeliveryAck, (<-tr.Events()).Kind)
	assert.Equal(t, domain.EventReadReceipt, (<-tr.Events()).Kind)
}

func TestGeoSubscriptions(t *testing.T) {
	ctx := context.Background()
	tr, err := loopback.New(loopback.Options{})
	require.NoError(t, err)
	defer tr.Close()

	key := domain.AliasKey("nostr_0123456789abcdef")
	_, ok := tr.ConversationGeohash(key)
	assert.False(t, ok)

	tr.StartGeoConversation(key, "U4PRU")
	gh, ok := tr.ConversationGeohash(key)
	require.True(t, ok)
	assert.Equal(t, "u4pru", gh)

	id := domain.GeoIdentity{Geohash: gh, PublicKeyHex: "ab"}
	sub, err := tr.EnsureDMSubscription(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "geo-dm-u4pru", sub)
	_, err = tr.EnsureDMSubscription(ctx, id)
	require.NoError(t, err)

	_, err = tr.EnsureDMSubscription(ctx, domain.GeoIdentity{Geohash: "9q8yy"})
	require.NoError(t, err)
	assert.Equal(t, "geo-dm-9q8yy", tr.DMSubscription())

	var kinds []string
	for _, s := range tr.Sent() {
		kinds = append(kinds, s.Kind)
	}
	assert.Equal(t, []string{"subscribe", "unsubscribe", "subscribe"}, kinds)
}

func TestClose(t *testing.T) {
	tr, err := loopback.New(loopback.Options{})
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	_, open := <-tr.Events()
	assert.False(t, open)
	assert.ErrorIs(t, tr.SendBroadcast(context.Background(), "x", nil, ""), loopback.ErrClosed)
}
