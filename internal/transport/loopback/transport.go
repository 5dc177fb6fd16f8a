package loopback

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"meshchat/internal/crypto"
	"meshchat/internal/domain"
)

// Query field names accepted by FailQuery.
const (
	FieldSessionState = "session_state"
	FieldFingerprint  = "fingerprint"
	FieldNickname     = "nickname"
	FieldRSSI         = "rssi"
	FieldDirect       = "direct"
	FieldMeshKey      = "mesh_key"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("loopback transport closed")
	// ErrUnknownPeer is returned for peers that are not connected.
	ErrUnknownPeer = errors.New("unknown peer")
	// ErrNoSession is returned for private sends without a session.
	ErrNoSession = errors.New("no established session")
)

// Options configures a Transport.
type Options struct {
	Self           domain.PeerID
	Clock          clock.Clock
	HandshakeDelay time.Duration
	EventBuffer    int
	// AutoAck makes peers acknowledge private messages and answer
	// verification challenges.
	AutoAck bool
}

// Peer is a simulated peer.
type Peer struct {
	ID       domain.PeerID
	Nickname string
	Static   domain.X25519Public
	RSSI     int
	Direct   bool
	State    domain.SessionState
}

// Sent is one recorded outbound operation.
type Sent struct {
	Kind      string
	Peer      domain.PeerID
	Channel   string
	Content   string
	Payload   []byte
	MessageID string
	Mentions  []string
	Recipient string
}

// Transport is the in-memory transport.
type Transport struct {
	self    domain.PeerID
	clock   clock.Clock
	delay   time.Duration
	autoAck bool
	events  chan domain.Event

	mu       sync.Mutex
	peers    map[domain.PeerID]*Peer
	order    []domain.PeerID
	sent     []Sent
	failures map[string]error
	timers   []*clock.Timer
	geo      map[domain.ConversationKey]string
	dmSub    string
	dropped  int
	closed   bool
}

// New constructs a Transport.
func New(opts Options) (*Transport, error) {
	self := opts.Self
	if self == "" {
		id, err := RandomPeerID()
		if err != nil {
			return nil, err
		}
		self = id
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	buf := opts.EventBuffer
	if buf <= 0 {
		buf = 256
	}
	return &Transport{
		self:     self,
		clock:    clk,
		delay:    opts.HandshakeDelay,
		autoAck:  opts.AutoAck,
		events:   make(chan domain.Event, buf),
		peers:    map[domain.PeerID]*Peer{},
		failures: map[string]error{},
		geo:      map[domain.ConversationKey]string{},
	}, nil
}

// RandomPeerID returns a fresh 16-hex-char peer ID.
func RandomPeerID() (domain.PeerID, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return domain.PeerID(hex.EncodeToString(b[:])), nil
}

// AddPeer connects a new simulated peer with a fresh static key.
func (t *Transport) AddPeer(nickname string) (Peer, error) {
	id, err := RandomPeerID()
	if err != nil {
		return Peer{}, err
	}
	_, pub, err := crypto.GenerateX25519()
	if err != nil {
		return Peer{}, err
	}
	p := Peer{ID: id, Nickname: nickname, Static: pub, RSSI: -60, Direct: true}
	t.Connect(p)
	return p, nil
}

// Connect adds or replaces a peer and announces the new roster.
func (t *Transport) Connect(p Peer) {
	t.mu.Lock()
	if _, ok := t.peers[p.ID]; !ok {
		t.order = append(t.order, p.ID)
	}
	cp := p
	t.peers[p.ID] = &cp
	roster := slices.Clone(t.order)
	t.mu.Unlock()

	t.emit(domain.Event{Kind: domain.EventPeerListUpdated, Peers: roster})
}

// Disconnect removes a peer and announces the new roster.
func (t *Transport) Disconnect(id domain.PeerID) {
	t.mu.Lock()
	delete(t.peers, id)
	if i := slices.Index(t.order, id); i >= 0 {
		t.order = slices.Delete(t.order, i, i+1)
	}
	roster := slices.Clone(t.order)
	t.mu.Unlock()

	t.emit(domain.Event{Kind: domain.EventPeerListUpdated, Peers: roster})
}

// SetSessionState forces a peer's session state.
func (t *Transport) SetSessionState(id domain.PeerID, st domain.SessionState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.peers[id]; ok {
		p.State = st
	}
}

// SetNickname changes a peer's nickname.
func (t *Transport) SetNickname(id domain.PeerID, nickname string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.peers[id]; ok {
		p.Nickname = nickname
	}
}

// FailQuery makes the named query for id return err; nil clears it.
func (t *Transport) FailQuery(id domain.PeerID, field string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := string(id) + "/" + field
	if err == nil {
		delete(t.failures, k)
		return
	}
	t.failures[k] = err
}

// Deliver injects an incoming event.
func (t *Transport) Deliver(ev domain.Event) { t.emit(ev) }

// Sent returns a copy of the recorded sends.
func (t *Transport) Sent() []Sent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.sent)
}

// Dropped returns how many events were dropped on a full buffer.
func (t *Transport) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// MyPeerID returns our peer ID.
func (t *Transport) MyPeerID() domain.PeerID { return t.self }

// Events returns the event channel. It is closed by Close.
func (t *Transport) Events() <-chan domain.Event { return t.events }

// ConnectedPeers returns the roster in connection order.
func (t *Transport) ConnectedPeers() []domain.PeerID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.order)
}

// SessionState implements domain.PeerStateSource.
func (t *Transport) SessionState(ctx context.Context, id domain.PeerID) (domain.SessionState, error) {
	p, err := t.query(ctx, id, FieldSessionState)
	if err != nil {
		return domain.SessionNone, err
	}
	if p == nil {
		return domain.SessionNone, nil
	}
	return p.State, nil
}

// Fingerprint implements domain.PeerStateSource.
func (t *Transport) Fingerprint(ctx context.Context, id domain.PeerID) (domain.Fingerprint, bool, error) {
	p, err := t.query(ctx, id, FieldFingerprint)
	if err != nil || p == nil {
		return "", false, err
	}
	return crypto.Fingerprint(p.Static[:]), true, nil
}

// Nickname implements domain.PeerStateSource.
func (t *Transport) Nickname(ctx context.Context, id domain.PeerID) (string, bool, error) {
	p, err := t.query(ctx, id, FieldNickname)
	if err != nil || p == nil {
		return "", false, err
	}
	return p.Nickname, p.Nickname != "", nil
}

// RSSI implements domain.PeerStateSource.
func (t *Transport) RSSI(ctx context.Context, id domain.PeerID) (int, bool, error) {
	p, err := t.query(ctx, id, FieldRSSI)
	if err != nil || p == nil {
		return 0, false, err
	}
	return p.RSSI, true, nil
}

// IsDirect implements domain.PeerStateSource.
func (t *Transport) IsDirect(ctx context.Context, id domain.PeerID) (bool, error) {
	p, err := t.query(ctx, id, FieldDirect)
	if err != nil || p == nil {
		return false, err
	}
	return p.Direct, nil
}

// MeshPublicKey implements domain.PeerStateSource.
func (t *Transport) MeshPublicKey(ctx context.Context, id domain.PeerID) ([]byte, bool, error) {
	p, err := t.query(ctx, id, FieldMeshKey)
	if err != nil || p == nil {
		return nil, false, err
	}
	return slices.Clone(p.Static[:]), true, nil
}

// HasEstablishedSession implements domain.MeshSender.
func (t *Transport) HasEstablishedSession(id domain.PeerID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[id]
	return ok && p.State == domain.SessionEstablished
}

// InitiateHandshake moves a peer to Handshaking and, after the configured
// delay, to Established.
func (t *Transport) InitiateHandshake(ctx context.Context, id domain.PeerID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	p, ok := t.peers[id]
	if !ok {
		return fmt.Errorf("handshake %s: %w", id, ErrUnknownPeer)
	}
	if p.State == domain.SessionEstablished || p.State == domain.SessionHandshaking {
		return nil
	}
	t.sent = append(t.sent, Sent{Kind: "handshake", Peer: id})
	if t.delay <= 0 {
		p.State = domain.SessionEstablished
		return nil
	}
	p.State = domain.SessionHandshaking
	t.timers = append(t.timers, t.clock.AfterFunc(t.delay, func() {
		t.SetSessionState(id, domain.SessionEstablished)
	}))
	return nil
}

// SendBroadcast implements domain.MeshSender.
func (t *Transport) SendBroadcast(ctx context.Context, content string, mentions []string, channel string) error {
	return t.record(ctx, Sent{Kind: "broadcast", Content: content, Mentions: slices.Clone(mentions), Channel: channel})
}

// SendChannelPayload implements domain.MeshSender.
func (t *Transport) SendChannelPayload(ctx context.Context, payload []byte, mentions []string, channel string) error {
	return t.record(ctx, Sent{Kind: "channel", Payload: slices.Clone(payload), Mentions: slices.Clone(mentions), Channel: channel})
}

// SendPrivate implements domain.MeshSender.
func (t *Transport) SendPrivate(ctx context.Context, content string, peer domain.PeerID, recipientNickname, messageID string) error {
	if !t.HasEstablishedSession(peer) {
		return fmt.Errorf("send to %s: %w", peer, ErrNoSession)
	}
	if err := t.record(ctx, Sent{Kind: "private", Peer: peer, Content: content, MessageID: messageID, Recipient: recipientNickname}); err != nil {
		return err
	}
	if t.autoAck {
		t.emit(domain.Event{Kind: domain.EventDeliveryAck, PeerID: peer, MessageID: messageID})
		t.emit(domain.Event{Kind: domain.EventReadReceipt, PeerID: peer, MessageID: messageID})
	}
	return nil
}

// SendVerifyChallenge implements domain.MeshSender.
func (t *Transport) SendVerifyChallenge(ctx context.Context, peer domain.PeerID, payload []byte) error {
	if err := t.record(ctx, Sent{Kind: "verify-challenge", Peer: peer, Payload: slices.Clone(payload)}); err != nil {
		return err
	}
	if t.autoAck {
		t.emit(domain.Event{Kind: domain.EventVerifyResponse, PeerID: peer, Payload: slices.Clone(payload)})
	}
	return nil
}

// SendVerifyResponse implements domain.MeshSender.
func (t *Transport) SendVerifyResponse(ctx context.Context, peer domain.PeerID, payload []byte) error {
	return t.record(ctx, Sent{Kind: "verify-response", Peer: peer, Payload: slices.Clone(payload)})
}

// Close stops pending handshakes and closes the event channel.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for _, tm := range t.timers {
		tm.Stop()
	}
	t.timers = nil
	close(t.events)
	return nil
}

var _ domain.Transport = (*Transport)(nil)

func (t *Transport) query(ctx context.Context, id domain.PeerID, field string) (*Peer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.failures[string(id)+"/"+field]; err != nil {
		return nil, err
	}
	p, ok := t.peers[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (t *Transport) record(ctx context.Context, s Sent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.sent = append(t.sent, s)
	return nil
}

func (t *Transport) emit(ev domain.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.events <- ev:
	default:
		t.dropped++
	}
}
