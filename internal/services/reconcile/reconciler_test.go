package reconcile_test

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"meshchat/internal/crypto"
	"meshchat/internal/domain"
	"meshchat/internal/services/conversation"
	"meshchat/internal/services/identitycache"
	"meshchat/internal/services/reconcile"
	"meshchat/internal/transport/loopback"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type hookLog struct {
	mu    sync.Mutex
	calls map[string][]domain.PeerID
}

func (h *hookLog) hook(name string) reconcile.HookFunc {
	return func(_ context.Context, peer domain.PeerID) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.calls == nil {
			h.calls = map[string][]domain.PeerID{}
		}
		h.calls[name] = append(h.calls[name], peer)
		return nil
	}
}

func (h *hookLog) count(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls[name])
}

type fixture struct {
	tr      *loopback.Transport
	state   *conversation.State
	cache   *identitycache.Store
	hooks   *hookLog
	mock    *clock.Mock
	metrics *reconcile.Metrics
	rec     *reconcile.Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mock := clock.NewMock()
	tr, err := loopback.New(loopback.Options{Clock: mock})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })

	f := &fixture{
		tr:      tr,
		state:   conversation.NewState(),
		cache:   identitycache.New(),
		hooks:   &hookLog{},
		mock:    mock,
		metrics: reconcile.NewMetrics(nil),
	}
	f.rec = reconcile.New(tr, f.state, f.cache, reconcile.Hooks{
		SessionEstablished: f.hooks.hook("established"),
		ResendVerification: f.hooks.hook("verify"),
	},
		reconcile.WithClock(mock),
		reconcile.WithConcurrency(2),
		reconcile.WithMetrics(f.metrics),
		reconcile.WithLogger(zap.NewNop()),
	)
	return f
}

func TestTick_EstablishedHookFiresOncePerEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bob, err := f.tr.AddPeer("bob")
	require.NoError(t, err)

	require.NoError(t, f.rec.Tick(ctx))
	assert.Equal(t, 0, f.hooks.count("established"))

	f.tr.SetSessionState(bob.ID, domain.SessionEstablished)
	for range 4 {
		require.NoError(t, f.rec.Tick(ctx))
	}
	assert.Equal(t, 1, f.hooks.count("established"))
	assert.Equal(t, 1, f.hooks.count("verify"))

	f.tr.SetSessionState(bob.ID, domain.SessionHandshaking)
	require.NoError(t, f.rec.Tick(ctx))
	f.tr.SetSessionState(bob.ID, domain.SessionEstablished)
	require.NoError(t, f.rec.Tick(ctx))
	require.NoError(t, f.rec.Tick(ctx))
	assert.Equal(t, 2, f.hooks.count("established"))
	assert.Equal(t, 2, f.hooks.count("verify"))

	assert.Equal(t, float64(8), testutil.ToFloat64(f.metrics.Ticks))
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.Established))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Peers))
}

func TestTick_ReconnectCountsAsEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bob, err := f.tr.AddPeer("bob")
	require.NoError(t, err)
	f.tr.SetSessionState(bob.ID, domain.SessionEstablished)

	require.NoError(t, f.rec.Tick(ctx))
	f.tr.Disconnect(bob.ID)
	require.NoError(t, f.rec.Tick(ctx))
	assert.Equal(t, 0, f.state.Peers.Load().Len())

	bob.State = domain.SessionEstablished
	f.tr.Connect(bob)
	require.NoError(t, f.rec.Tick(ctx))
	assert.Equal(t, 2, f.hooks.count("established"))
}

func TestTick_QueryFailureIsolatedToPeer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p, err := f.tr.AddPeer("pat")
	require.NoError(t, err)
	q, err := f.tr.AddPeer("quinn")
	require.NoError(t, err)
	require.NoError(t, f.rec.Tick(ctx))

	f.tr.SetNickname(p.ID, "pat2")
	f.tr.SetNickname(q.ID, "quinn2")
	f.tr.SetSessionState(q.ID, domain.SessionEstablished)
	boom := errors.New("radio busy")
	f.tr.FailQuery(p.ID, loopback.FieldNickname, boom)
	f.tr.FailQuery(p.ID, loopback.FieldSessionState, boom)

	err = f.rec.Tick(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	set := f.state.Peers.Load()
	ps, ok := set.Get(p.ID)
	require.True(t, ok)
	assert.Equal(t, "pat", ps.Nickname, "failed field keeps its previous value")
	assert.Equal(t, domain.SessionNone, ps.SessionState)
	assert.Equal(t, crypto.Fingerprint(p.Static[:]), ps.Fingerprint, "other fields still refresh")

	qs, ok := set.Get(q.ID)
	require.True(t, ok)
	assert.Equal(t, domain.PeerSnapshot{
		PeerID:       q.ID,
		Fingerprint:  crypto.Fingerprint(q.Static[:]),
		Nickname:     "quinn2",
		RSSI:         -60,
		IsDirect:     true,
		SessionState: domain.SessionEstablished,
		MeshKey:      hex.EncodeToString(q.Static[:]),
	}, qs)
	assert.Equal(t, []domain.PeerID{p.ID, q.ID}, set.Order)
	assert.Equal(t, 1, f.hooks.count("established"))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.QueryFailures.WithLabelValues("nickname")))
}

func TestTick_UpdatesCachesAdditively(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bob, err := f.tr.AddPeer("bob")
	require.NoError(t, err)
	require.NoError(t, f.rec.Tick(ctx))

	fp := crypto.Fingerprint(bob.Static[:])
	got, ok := f.cache.FingerprintForPeer(bob.ID)
	require.True(t, ok)
	assert.Equal(t, fp, got)

	f.tr.Disconnect(bob.ID)
	require.NoError(t, f.rec.Tick(ctx))
	nick, ok := f.cache.NicknameForFingerprint(fp)
	assert.True(t, ok, "disconnect does not evict")
	assert.Equal(t, "bob", nick)
}

func TestTick_CancelledDoesNotPublish(t *testing.T) {
	f := newFixture(t)
	_, err := f.tr.AddPeer("bob")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, f.rec.Tick(ctx), context.Canceled)
	assert.Nil(t, f.state.Peers.Load())
}

func TestRunner_TicksOnClockAndStops(t *testing.T) {
	f := newFixture(t)
	bob, err := f.tr.AddPeer("bob")
	require.NoError(t, err)

	run := reconcile.NewRunner(f.rec)
	run.Start(context.Background())
	run.Start(context.Background())
	assert.True(t, run.Running())

	require.Eventually(t, func() bool {
		return f.state.Peers.Load().Len() == 1
	}, time.Second, 5*time.Millisecond)

	f.tr.SetSessionState(bob.ID, domain.SessionEstablished)
	require.Eventually(t, func() bool {
		f.mock.Add(f.rec.Interval())
		return f.hooks.count("established") == 1
	}, time.Second, 5*time.Millisecond)

	run.Stop()
	run.Stop()
	assert.False(t, run.Running())
	ticks := testutil.ToFloat64(f.metrics.Ticks)
	f.mock.Add(5 * f.rec.Interval())
	assert.Equal(t, ticks, testutil.ToFloat64(f.metrics.Ticks))
}
