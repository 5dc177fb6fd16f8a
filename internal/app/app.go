package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"meshchat/internal/crypto"
	"meshchat/internal/domain"
	"meshchat/internal/services/alias"
	"meshchat/internal/services/channel"
	"meshchat/internal/services/command"
	"meshchat/internal/services/conversation"
	"meshchat/internal/services/identity"
	"meshchat/internal/services/identitycache"
	"meshchat/internal/services/message"
	"meshchat/internal/services/private"
	"meshchat/internal/services/reconcile"
	"meshchat/internal/services/session"
	"meshchat/internal/services/verification"
	"meshchat/internal/store"
)

// ResetNicknamePrefix starts the nickname picked after an identity reset.
const ResetNicknamePrefix = "parklife_boi"

var (
	// ErrNotStarted is returned before Start or after Close.
	ErrNotStarted = errors.New("app not started")
	// ErrNoBroadcast is returned when the transport has no location side.
	ErrNoBroadcast = errors.New("transport has no broadcast side")
	// ErrUnknownPeer is returned for nicknames that match no connected peer.
	ErrUnknownPeer = errors.New("no connected peer with that nickname")
)

// link is everything bound to one transport instance.
type link struct {
	transport  domain.Transport
	broadcast  domain.BroadcastTransport
	geo        domain.GeoSubscriptions
	private    *private.Service
	outbox     *session.Service
	verify     *verification.Service
	dispatcher *command.Dispatcher
	runner     *reconcile.Runner
	cancel     context.CancelFunc
	done       chan struct{}
}

// App is the running chat client.
type App struct {
	cfg     Config
	pass    string
	factory domain.TransportFactory
	opts    options
	log     *zap.Logger

	ids        *identity.Service
	prefs      domain.PreferencesStore
	cacheStore domain.IdentityCacheStore

	State    *conversation.State
	Cache    *identitycache.Store
	Aliases  *alias.Registry
	Messages *message.Service
	Channels *channel.Service

	metrics  *reconcile.Metrics
	identity conversation.Value[domain.Identity]
	link     conversation.Value[*link]

	life sync.Mutex
}

// New builds an App over the stores in cfg.Home. The transport is created
// by factory on Start and again after every identity reset.
func New(cfg Config, passphrase string, factory domain.TransportFactory, log *zap.Logger, opts ...Option) *App {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}
	if o.pick == nil {
		o.pick = rand.IntN
	}

	state := conversation.NewState()
	msgs := message.New(state, o.clock, log)
	return &App{
		cfg:        cfg,
		pass:       passphrase,
		factory:    factory,
		opts:       o,
		log:        log,
		ids:        identity.New(store.NewIdentityFileStore(cfg.Home)),
		prefs:      store.NewPreferencesFileStore(cfg.Home),
		cacheStore: store.NewIdentityCacheFileStore(cfg.Home),
		State:      state,
		Cache:      identitycache.New(),
		Aliases:    alias.NewRegistry(),
		Messages:   msgs,
		Channels:   channel.New(state, msgs, store.NewChannelFileStore(cfg.Home), log),
		metrics:    reconcile.NewMetrics(o.registry),
	}
}

// Start loads the identity and persisted state, connects the transport and
// starts the reconciler. It reports whether a new identity was created.
func (a *App) Start(ctx context.Context) (bool, error) {
	a.life.Lock()
	defer a.life.Unlock()
	if a.link.Load() != nil {
		return false, nil
	}

	id, created, err := a.ids.LoadOrGenerate(a.pass)
	if err != nil {
		return false, err
	}
	a.identity.Store(id)

	snap, ok, err := a.cacheStore.LoadIdentityCache(a.pass)
	if err != nil {
		a.log.Warn("load identity cache", zap.Error(err))
	} else if ok {
		a.Cache.Restore(snap)
	}

	if err := a.loadNickname(); err != nil {
		return created, err
	}
	if err := a.Channels.Load(); err != nil {
		return created, err
	}
	if a.cfg.Location != "" {
		if err := a.SetLocation(a.cfg.Location); err != nil {
			return created, err
		}
	}
	return created, a.attach(ctx)
}

// Close stops background work, closes the transport and persists the
// identity cache.
func (a *App) Close() error {
	a.life.Lock()
	defer a.life.Unlock()
	if a.link.Load() == nil {
		return nil
	}
	err := a.detach()
	if serr := a.cacheStore.SaveIdentityCache(a.pass, a.Cache.Snapshot()); serr != nil {
		err = multierr.Append(err, fmt.Errorf("save identity cache: %w", serr))
	}
	return err
}

// ResetIdentity wipes every message, channel, cache and preference, replaces
// the identity and nickname, and reconnects on a fresh transport.
func (a *App) ResetIdentity(ctx context.Context) error {
	a.life.Lock()
	defer a.life.Unlock()
	l := a.link.Load()
	if l == nil {
		return ErrNotStarted
	}
	a.log.Warn("resetting identity", zap.Stringer("peer", l.transport.MyPeerID()))

	err := a.detach()
	l.private.ClearAll()
	a.Messages.ClearAll()
	err = multierr.Combine(err, a.Channels.ClearAll())
	a.Cache.Wipe()
	a.Aliases.Clear()
	err = multierr.Combine(err, a.cacheStore.Wipe(), a.prefs.Wipe())
	a.State.Reset()
	if err != nil {
		a.log.Warn("wipe during reset", zap.Error(err))
	}

	id, rerr := a.ids.Reset(a.pass)
	if rerr != nil {
		return fmt.Errorf("reset identity: %w", rerr)
	}
	a.identity.Store(id)

	nick := fmt.Sprintf("%s%d", ResetNicknamePrefix, 1000+a.opts.pick(9000))
	a.State.Nickname.Store(nick)
	if err := a.prefs.SaveNickname(nick); err != nil {
		a.log.Warn("save nickname", zap.Error(err))
	}

	if err := a.attach(ctx); err != nil {
		return err
	}
	a.log.Info("identity reset", zap.Stringer("peer", a.SelfID()), zap.String("nickname", nick))
	return nil
}

// attach connects a fresh transport and starts everything bound to it.
func (a *App) attach(ctx context.Context) error {
	t, err := a.factory(ctx)
	if err != nil {
		return fmt.Errorf("create transport: %w", err)
	}
	l := &link{transport: t, done: make(chan struct{})}
	l.broadcast, _ = t.(domain.BroadcastTransport)
	l.geo, _ = t.(domain.GeoSubscriptions)

	l.private = private.New(a.State, a.Messages, a.Cache, a.prefs, l.geo, a.geoSeed, a.log)
	if err := l.private.LoadPreferences(); err != nil {
		_ = t.Close()
		return err
	}
	l.outbox = session.New(t, a.sendDirect, a.Messages, a.log)
	l.verify = verification.New(t, a.Cache, a.Messages, a.log)

	rec := reconcile.New(t, a.State, a.Cache,
		reconcile.Hooks{
			SessionEstablished: l.outbox.OnSessionEstablished,
			ResendVerification: l.verify.ResendPending,
		},
		reconcile.WithClock(a.opts.clock),
		reconcile.WithInterval(a.cfg.Reconcile.Interval),
		reconcile.WithConcurrency(a.cfg.Reconcile.Concurrency),
		reconcile.WithMetrics(a.metrics),
		reconcile.WithLogger(a.log),
	)
	l.runner = reconcile.NewRunner(rec)

	l.dispatcher = command.New(command.Env{
		State:       a.State,
		Messages:    a.Messages,
		Channels:    a.Channels,
		Private:     l.private,
		Mesh:        func() domain.MeshSender { return t },
		SelfID:      t.MyPeerID,
		Send:        a.sendPublic,
		PrivateSend: l.outbox.Send,
		Speaker:     a.opts.speaker,
		Sounds:      a.opts.sounds,
		Figlet:      a.opts.figlet,
		BotName:     a.cfg.Bot.Name,
	}, a.opts.clock, a.opts.pick, a.log)

	loop, err := conversation.NewEventLoop(conversation.HandlerFunc(a.handleEvent), conversation.DefaultSeenSize, a.log)
	if err != nil {
		l.dispatcher.Close()
		_ = t.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	l.cancel = cancel
	a.State.ConnectedPeers.Store(t.ConnectedPeers())
	a.link.Store(l)

	go func() {
		defer close(l.done)
		if err := loop.Run(runCtx, t.Events()); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("event loop", zap.Error(err))
		}
	}()
	l.runner.Start(runCtx)
	a.log.Debug("transport attached", zap.Stringer("peer", t.MyPeerID()))
	return nil
}

// detach stops and closes the current link.
func (a *App) detach() error {
	l := a.link.Load()
	if l == nil {
		return nil
	}
	l.runner.Stop()
	l.dispatcher.Close()
	l.cancel()
	err := l.transport.Close()
	<-l.done
	a.link.Store(nil)
	return err
}

func (a *App) current() *link { return a.link.Load() }

func (a *App) geoSeed() []byte { return a.identity.Load().GeoSeed }

func (a *App) loadNickname() error {
	nick := a.cfg.Nickname
	if nick == "" {
		saved, ok, err := a.prefs.LoadNickname()
		if err != nil {
			return fmt.Errorf("load nickname: %w", err)
		}
		if ok {
			nick = saved
		}
	}
	if nick == "" {
		nick = fmt.Sprintf("anon%d", 1000+a.opts.pick(9000))
	}
	return a.SetNickname(nick)
}

// SelfID returns our current peer ID, or "" before Start.
func (a *App) SelfID() domain.PeerID {
	l := a.current()
	if l == nil {
		return ""
	}
	return l.transport.MyPeerID()
}

// Transport returns the current transport, or nil before Start.
func (a *App) Transport() domain.Transport {
	l := a.current()
	if l == nil {
		return nil
	}
	return l.transport
}

// Dispatcher returns the current command dispatcher, or nil before Start.
func (a *App) Dispatcher() *command.Dispatcher {
	l := a.current()
	if l == nil {
		return nil
	}
	return l.dispatcher
}

// Verification returns the current verification service, or nil before
// Start.
func (a *App) Verification() *verification.Service {
	l := a.current()
	if l == nil {
		return nil
	}
	return l.verify
}

// Fingerprint returns our identity fingerprint.
func (a *App) Fingerprint() domain.Fingerprint {
	return crypto.Fingerprint(a.identity.Load().StaticPub.Slice())
}

// SetNickname changes and persists our nickname.
func (a *App) SetNickname(nick string) error {
	nick = strings.TrimSpace(nick)
	if nick == "" {
		return errors.New("nickname is empty")
	}
	a.State.Nickname.Store(nick)
	if err := a.prefs.SaveNickname(nick); err != nil {
		return fmt.Errorf("save nickname: %w", err)
	}
	return nil
}

// SetLocation switches the public timeline to a geohash channel. An empty
// geohash returns to the mesh.
func (a *App) SetLocation(gh string) error {
	gh = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(gh), "#"))
	if gh == "" {
		a.State.Location.Store(domain.MeshChannel())
		a.State.GeohashPeople.Store(nil)
		return nil
	}
	if err := geohash.Validate(gh); err != nil {
		return fmt.Errorf("location %q: %w", gh, err)
	}
	a.State.Location.Store(domain.LocationFor(gh))
	a.State.GeohashPeople.Store(nil)
	return nil
}

// StartPrivateChat opens the conversation with key.
func (a *App) StartPrivateChat(ctx context.Context, key domain.ConversationKey) bool {
	l := a.current()
	if l == nil {
		return false
	}
	return l.private.StartPrivateChat(ctx, a.resolve(key), l.transport)
}

// StartPrivateChatWith opens the conversation with a connected peer.
func (a *App) StartPrivateChatWith(ctx context.Context, nickname string) error {
	l := a.current()
	if l == nil {
		return ErrNotStarted
	}
	peer, ok := l.private.PeerByNickname(nickname)
	if !ok {
		return fmt.Errorf("%s: %w", nickname, ErrUnknownPeer)
	}
	l.private.StartPrivateChat(ctx, domain.PeerKey(peer), l.transport)
	return nil
}

// EndPrivateChat returns to the public timeline and closes the sheet.
func (a *App) EndPrivateChat() {
	if l := a.current(); l != nil {
		l.private.EndPrivateChat()
	}
	a.State.PrivateChatSheetPeer.Store(domain.ConversationKey{})
}

// OpenLatestUnreadPrivateChat opens the unread conversation whose latest
// incoming message is newest. It reports the opened key.
func (a *App) OpenLatestUnreadPrivateChat(ctx context.Context) (domain.ConversationKey, bool) {
	l := a.current()
	if l == nil {
		return domain.ConversationKey{}, false
	}
	unread := a.State.UnreadPrivate.Load()
	if len(unread) == 0 {
		return domain.ConversationKey{}, false
	}
	me := a.State.Nickname.Load()
	if me == "" {
		me = l.transport.MyPeerID().String()
	}
	chats := a.State.PrivateChats.Load()

	keys := make([]domain.ConversationKey, 0, len(unread))
	for k := range unread {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(x, y domain.ConversationKey) int { return strings.Compare(x.String(), y.String()) })

	var (
		best     domain.ConversationKey
		bestTime int64
		found    bool
	)
	for _, k := range keys {
		list := chats[k]
		if len(list) == 0 {
			continue
		}
		pick := list[len(list)-1]
		for i := len(list) - 1; i >= 0; i-- {
			if list[i].Sender != me {
				pick = list[i]
				break
			}
		}
		if t := pick.Timestamp.UnixNano(); !found || t > bestTime {
			best, bestTime, found = k, t, true
		}
	}
	if !found {
		best = keys[0]
	}

	target := best
	if target.Kind() != domain.KeyAlias {
		target = a.resolve(target)
		a.Messages.MergePrivateChats(best, target)
	}
	l.private.StartPrivateChat(ctx, target, l.transport)
	a.State.PrivateChatSheetPeer.Store(target)
	return target, true
}

// ToggleFavorite flips a peer's favorite flag and tells the peer.
func (a *App) ToggleFavorite(ctx context.Context, peer domain.PeerID) (bool, error) {
	l := a.current()
	if l == nil {
		return false, ErrNotStarted
	}
	now, err := l.private.ToggleFavorite(peer)
	if err != nil {
		return now, err
	}

	tag := "[UNFAVORITED]:"
	if now {
		tag = "[FAVORITED]:"
	}
	npub := ""
	if gid, err := crypto.DeriveGeoIdentity(a.geoSeed(), ""); err == nil {
		npub, _ = nip19.EncodePublicKey(gid.PublicKeyHex)
	}
	if l.transport.HasEstablishedSession(peer) {
		nick := a.State.PeerNicknames()[peer]
		if err := l.transport.SendPrivate(ctx, tag+npub, peer, nick, uuid.NewString()); err != nil {
			a.log.Warn("favorite notice", zap.Stringer("peer", peer), zap.Error(err))
		}
	}
	return now, nil
}

// VerifyPeer starts identity verification with a connected peer.
func (a *App) VerifyPeer(ctx context.Context, nickname string) error {
	l := a.current()
	if l == nil {
		return ErrNotStarted
	}
	peer, ok := l.private.PeerByNickname(nickname)
	if !ok {
		return fmt.Errorf("%s: %w", nickname, ErrUnknownPeer)
	}
	return l.verify.Begin(ctx, peer)
}

// LeaveChannel leaves a channel and tells the mesh.
func (a *App) LeaveChannel(ctx context.Context, ch string) error {
	l := a.current()
	if l == nil {
		return ErrNotStarted
	}
	ch = channel.Normalize(ch)
	a.Channels.Leave(ch)
	return l.transport.SendBroadcast(ctx, "left "+ch, nil, "")
}

// resolve maps key to its canonical conversation key.
func (a *App) resolve(key domain.ConversationKey) domain.ConversationKey {
	return alias.Resolve(key, a.State.ConnectedPeers.Load(), alias.CacheLookups(a.Cache, a.Aliases, a.isLive))
}

func (a *App) isLive(peer domain.PeerID) bool {
	l := a.current()
	return l != nil && slices.Contains(l.transport.ConnectedPeers(), peer)
}
