package reconcile

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"meshchat/internal/domain"
	"meshchat/internal/services/conversation"
	"meshchat/internal/services/identitycache"
)

// Query field labels used in logs and metrics.
const (
	fieldSessionState = "session_state"
	fieldFingerprint  = "fingerprint"
	fieldNickname     = "nickname"
	fieldRSSI         = "rssi"
	fieldDirect       = "direct"
	fieldMeshKey      = "mesh_key"
)

// HookFunc is called with a peer that just entered the Established state.
type HookFunc func(ctx context.Context, peer domain.PeerID) error

// Hooks are the side effects of a session becoming established.
type Hooks struct {
	// SessionEstablished flushes messages queued for the peer.
	SessionEstablished HookFunc
	// ResendVerification re-issues pending identity challenges.
	ResendVerification HookFunc
}

// Reconciler publishes transport peer state into the conversation state.
type Reconciler struct {
	source domain.PeerStateSource
	state  *conversation.State
	cache  *identitycache.Store
	hooks  Hooks
	cfg    *Config
	log    *zap.Logger
}

// New constructs a Reconciler. It is the only writer of state.Peers.
func New(source domain.PeerStateSource, state *conversation.State, cache *identitycache.Store, hooks Hooks, opts ...Option) *Reconciler {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Reconciler{
		source: source,
		state:  state,
		cache:  cache,
		hooks:  hooks,
		cfg:    cfg,
		log:    cfg.Logger.Named("reconcile"),
	}
}

// Run ticks until ctx is cancelled. The first tick runs immediately.
func (r *Reconciler) Run(ctx context.Context) error {
	t := r.cfg.Clock.Ticker(r.cfg.Interval)
	defer t.Stop()

	for {
		_ = r.Tick(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Tick runs one poll, publish and hook pass. The returned error combines
// the per-peer query failures; they never stop the pass. Nothing is
// published when ctx is cancelled mid-tick.
func (r *Reconciler) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prev := r.state.Peers.Load()
	ids := r.source.ConnectedPeers()
	snaps := make([]domain.PeerSnapshot, len(ids))
	errs := make([]error, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			old, _ := prev.Get(id)
			snaps[i], errs[i] = r.queryPeer(gctx, id, old)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	next := &domain.PeerSet{
		Peers:   make(map[domain.PeerID]domain.PeerSnapshot, len(ids)),
		Order:   make([]domain.PeerID, 0, len(ids)),
		TakenAt: r.cfg.Clock.Now(),
	}
	for _, s := range snaps {
		if _, dup := next.Peers[s.PeerID]; dup {
			continue
		}
		next.Peers[s.PeerID] = s
		next.Order = append(next.Order, s.PeerID)
	}
	r.state.Peers.Store(next)

	var established []domain.PeerID
	entries := make([]identitycache.Entry, 0, len(next.Order))
	for _, id := range next.Order {
		s := next.Peers[id]
		was, _ := prev.Get(id)
		if s.SessionState == domain.SessionEstablished && was.SessionState != domain.SessionEstablished {
			established = append(established, id)
		}
		entries = append(entries, identitycache.Entry{
			PeerID:      id,
			Fingerprint: s.Fingerprint,
			MeshKey:     s.MeshKey,
			Nickname:    s.Nickname,
		})
	}
	r.cache.Apply(entries...)

	for _, id := range established {
		r.fire(ctx, "session_established", r.hooks.SessionEstablished, id)
		r.fire(ctx, "resend_verification", r.hooks.ResendVerification, id)
	}

	if m := r.cfg.Metrics; m != nil {
		m.Ticks.Inc()
		m.Peers.Set(float64(len(next.Order)))
		m.Established.Add(float64(len(established)))
	}

	var combined error
	for i, err := range errs {
		if err != nil {
			combined = multierr.Append(combined, fmt.Errorf("peer %s: %w", ids[i], err))
		}
	}
	return combined
}

// queryPeer builds a snapshot for id. Each failed field keeps its value
// from old; a miss yields the empty value.
func (r *Reconciler) queryPeer(ctx context.Context, id domain.PeerID, old domain.PeerSnapshot) (domain.PeerSnapshot, error) {
	s := domain.PeerSnapshot{PeerID: id}
	var errs error
	failed := func(field string, err error) {
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", field, err))
		if m := r.cfg.Metrics; m != nil {
			m.QueryFailures.WithLabelValues(field).Inc()
		}
	}

	if st, err := r.source.SessionState(ctx, id); err != nil {
		failed(fieldSessionState, err)
		s.SessionState = old.SessionState
	} else {
		s.SessionState = st
	}
	if fp, _, err := r.source.Fingerprint(ctx, id); err != nil {
		failed(fieldFingerprint, err)
		s.Fingerprint = old.Fingerprint
	} else {
		s.Fingerprint = fp
	}
	if nick, _, err := r.source.Nickname(ctx, id); err != nil {
		failed(fieldNickname, err)
		s.Nickname = old.Nickname
	} else {
		s.Nickname = nick
	}
	if rssi, _, err := r.source.RSSI(ctx, id); err != nil {
		failed(fieldRSSI, err)
		s.RSSI = old.RSSI
	} else {
		s.RSSI = rssi
	}
	if direct, err := r.source.IsDirect(ctx, id); err != nil {
		failed(fieldDirect, err)
		s.IsDirect = old.IsDirect
	} else {
		s.IsDirect = direct
	}
	if key, ok, err := r.source.MeshPublicKey(ctx, id); err != nil {
		failed(fieldMeshKey, err)
		s.MeshKey = old.MeshKey
	} else if ok {
		s.MeshKey = hex.EncodeToString(key)
	}

	if errs != nil && ctx.Err() == nil {
		r.log.Warn("peer query failed", zap.Stringer("peer", id), zap.Error(errs))
	}
	return s, errs
}

func (r *Reconciler) fire(ctx context.Context, name string, hook HookFunc, id domain.PeerID) {
	if hook == nil {
		return
	}
	start := r.cfg.Clock.Now()
	if err := hook(ctx, id); err != nil {
		r.log.Warn("hook failed", zap.String("hook", name), zap.Stringer("peer", id), zap.Error(err))
		return
	}
	r.log.Debug("hook done", zap.String("hook", name), zap.Stringer("peer", id), zap.Duration("took", r.cfg.Clock.Since(start)))
}

// Interval returns the configured polling interval.
func (r *Reconciler) Interval() time.Duration { return r.cfg.Interval }
