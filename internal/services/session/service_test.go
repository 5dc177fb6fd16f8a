package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"meshchat/internal/domain"
	"meshchat/internal/services/conversation"
	"meshchat/internal/services/message"
	"meshchat/internal/services/session"
	"meshchat/internal/transport/loopback"
)

// gatedMesh keeps peers in Handshaking until released.
type gatedMesh struct {
	*loopback.Transport
	fail error
}

func (g *gatedMesh) InitiateHandshake(context.Context, domain.PeerID) error { return nil }

func (g *gatedMesh) SendPrivate(ctx context.Context, content string, peer domain.PeerID, nick, id string) error {
	if g.fail != nil {
		return g.fail
	}
	return g.Transport.SendPrivate(ctx, content, peer, nick, id)
}

func newOutbox(t *testing.T, direct session.DirectFunc) (*session.Service, *gatedMesh, loopback.Peer, *message.Service) {
	t.Helper()
	tr, err := loopback.New(loopback.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	bob, err := tr.AddPeer("bob")
	require.NoError(t, err)

	msgs := message.New(conversation.NewState(), clock.NewMock(), zap.NewNop())
	mesh := &gatedMesh{Transport: tr}
	return session.New(mesh, direct, msgs, zap.NewNop()), mesh, bob, msgs
}

func TestSend_QueuesUntilEstablished(t *testing.T) {
	ctx := context.Background()
	out, mesh, bob, _ := newOutbox(t, nil)
	key := domain.PeerKey(bob.ID)

	require.NoError(t, out.Send(ctx, "one", key, "bob", "m1"))
	require.NoError(t, out.Send(ctx, "two", key, "bob", "m2"))
	assert.Equal(t, 2, out.Pending(bob.ID))
	assert.Empty(t, mesh.Sent())

	mesh.SetSessionState(bob.ID, domain.SessionEstablished)
	require.NoError(t, out.OnSessionEstablished(ctx, bob.ID))
	assert.Zero(t, out.Pending(bob.ID))

	var ids []string
	for _, s := range mesh.Sent() {
		if s.Kind == "private" {
			ids = append(ids, s.MessageID)
		}
	}
	assert.Equal(t, []string{"m1", "m2"}, ids)

	require.NoError(t, out.OnSessionEstablished(ctx, bob.ID), "empty flush is a no-op")
}

func TestSend_ImmediateWhenEstablished(t *testing.T) {
	ctx := context.Background()
	out, mesh, bob, _ := newOutbox(t, nil)
	mesh.SetSessionState(bob.ID, domain.SessionEstablished)

	require.NoError(t, out.Send(ctx, "now", domain.PeerKey(bob.ID), "bob", "m1"))
	assert.Zero(t, out.Pending(bob.ID))
}

func TestFlush_RequeuesFailures(t *testing.T) {
	ctx := context.Background()
	out, mesh, bob, _ := newOutbox(t, nil)
	key := domain.PeerKey(bob.ID)

	require.NoError(t, out.Send(ctx, "one", key, "bob", "m1"))
	require.NoError(t, out.Send(ctx, "two", key, "bob", "m2"))

	mesh.SetSessionState(bob.ID, domain.SessionEstablished)
	boom := errors.New("radio off")
	mesh.fail = boom
	err := out.OnSessionEstablished(ctx, bob.ID)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"m1", "m2"}, out.PendingIDs(bob.ID))

	mesh.fail = nil
	require.NoError(t, out.OnSessionEstablished(ctx, bob.ID))
	assert.Zero(t, out.Pending(bob.ID))
}

func TestSend_NonPeerKeys(t *testing.T) {
	ctx := context.Background()
	out, _, _, _ := newOutbox(t, nil)
	key := domain.PublicIdentityKey("abcd")
	require.ErrorIs(t, out.Send(ctx, "x", key, "", "m1"), session.ErrNoRoute)

	var got domain.ConversationKey
	out, _, _, _ = newOutbox(t, func(_ context.Context, k domain.ConversationKey, _, _ string) error {
		got = k
		return nil
	})
	require.NoError(t, out.Send(ctx, "x", key, "", "m1"))
	assert.Equal(t, key, got)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	out, _, bob, _ := newOutbox(t, nil)
	require.NoError(t, out.Send(ctx, "one", domain.PeerKey(bob.ID), "bob", "m1"))
	out.Clear()
	assert.Zero(t, out.Pending(bob.ID))
}
