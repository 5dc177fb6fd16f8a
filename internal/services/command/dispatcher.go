package command

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"meshchat/internal/domain"
	"meshchat/internal/services/channel"
	"meshchat/internal/services/conversation"
	"meshchat/internal/services/message"
	"meshchat/internal/services/private"
)

// DefaultBotName is the local bot addressed with /m.
const DefaultBotName = "PopManBot"

// botPrefix marks a bot command relayed to other clients.
const botPrefix = "BOT_MSG::"

// SendFunc sends a public line. channel is empty outside mesh channels.
// In a location context the callee adds the local echo.
type SendFunc func(ctx context.Context, content string, mentions []string, channel string) error

// Env is what handlers act on.
type Env struct {
	State    *conversation.State
	Messages *message.Service
	Channels *channel.Service
	Private  *private.Service

	// Mesh returns the current mesh sender; it changes after an identity reset.
	Mesh   func() domain.MeshSender
	SelfID func() domain.PeerID

	Send        SendFunc
	PrivateSend private.SendFunc

	Speaker domain.Speaker
	Sounds  domain.SoundPlayer
	Figlet  domain.FigletClient
	BotName string
}

// Dispatcher runs slash commands.
type Dispatcher struct {
	env     Env
	entries []entry
	byName  map[string]*entry
	clock   clock.Clock
	pick    Picker
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	tasks  map[int]context.CancelFunc
	nextID int
	closed bool
	wg     sync.WaitGroup
}

// New constructs a Dispatcher. A nil pick uses math/rand.
func New(env Env, clk clock.Clock, pick Picker, log *zap.Logger) *Dispatcher {
	if env.BotName == "" {
		env.BotName = DefaultBotName
	}
	if pick == nil {
		pick = rand.IntN
	}
	entries := builtins()
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		env:     env,
		entries: entries,
		byName:  index(entries),
		clock:   clk,
		pick:    pick,
		log:     log.Named("command"),
		ctx:     ctx,
		cancel:  cancel,
		tasks:   map[int]context.CancelFunc{},
	}
}

// Dispatch runs line if it is a command and reports whether it was one.
func (d *Dispatcher) Dispatch(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, "/") {
		return false
	}
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	name := strings.ToLower(parts[0])
	e, ok := d.byName[name]
	if !ok {
		d.system("unknown command: " + name + ". type / to see available commands.")
		return true
	}
	d.log.Debug("dispatch", zap.String("cmd", e.Command), zap.Int("args", len(parts)-1))
	e.run(d, ctx, name, parts[1:])
	return true
}

// Pending returns the number of running background tasks.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}

// CancelPending cancels every background task without closing.
func (d *Dispatcher) CancelPending() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, cancel := range d.tasks {
		cancel()
	}
}

// Close cancels background tasks and waits for them to return.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()
	d.wg.Wait()
}

// spawn runs fn on a tracked goroutine with its own cancellable context.
func (d *Dispatcher) spawn(fn func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	ctx, cancel := context.WithCancel(d.ctx)
	id := d.nextID
	d.nextID++
	d.tasks[id] = cancel
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			d.mu.Lock()
			delete(d.tasks, id)
			d.mu.Unlock()
			cancel()
		}()
		fn(ctx)
	}()
}

func (d *Dispatcher) system(text string) {
	d.env.Messages.AddSystemMessage(text)
}

func (d *Dispatcher) self() domain.PeerID {
	if d.env.SelfID == nil {
		return ""
	}
	return d.env.SelfID()
}

func (d *Dispatcher) mesh() domain.MeshSender {
	if d.env.Mesh == nil {
		return nil
	}
	return d.env.Mesh()
}

func (d *Dispatcher) nickname() string {
	return d.env.State.Nickname.Load()
}

// ownMessage builds a message from us for the current context.
func (d *Dispatcher) ownMessage(content string) domain.Message {
	sender := d.nickname()
	if sender == "" {
		sender = d.self().String()
	}
	msg := d.env.Messages.Compose(sender, content)
	msg.SenderPeerID = d.self()
	msg.Channel = d.env.State.CurrentChannel.Load()
	return msg
}

// echo adds content to the current timeline without sending it.
func (d *Dispatcher) echo(content string) {
	msg := d.ownMessage(content)
	if ch := msg.Channel; ch != "" {
		d.env.Channels.AddChannelMessage(ch, msg, d.self())
		return
	}
	d.env.Messages.AddMessage(msg)
}

// post echoes content locally and sends it publicly. Location channels
// echo on the send path.
func (d *Dispatcher) post(ctx context.Context, content string) {
	if d.env.State.Location.Load().IsLocation() {
		d.send(ctx, content, "")
		return
	}
	d.echo(content)
	d.send(ctx, content, d.env.State.CurrentChannel.Load())
}

func (d *Dispatcher) send(ctx context.Context, content, channel string) {
	if d.env.Send == nil {
		return
	}
	if err := d.env.Send(ctx, content, nil, channel); err != nil {
		d.log.Warn("send failed", zap.String("channel", channel), zap.Error(err))
	}
}

// sendPrivate sends content into the conversation with key.
func (d *Dispatcher) sendPrivate(ctx context.Context, key domain.ConversationKey, content string) {
	if d.env.PrivateSend == nil {
		return
	}
	err := d.env.Private.SendPrivateMessage(ctx, content, key, d.peerNickname(key), d.nickname(), d.self(), d.env.PrivateSend)
	if err != nil {
		d.log.Warn("private send failed", zap.Stringer("to", key), zap.Error(err))
	}
}

// peerNickname returns a mesh peer's nickname, or the key itself.
func (d *Dispatcher) peerNickname(key domain.ConversationKey) string {
	if id, ok := key.PeerID(); ok {
		if p, ok := d.env.State.Peers.Load().Get(id); ok && p.Nickname != "" {
			return p.Nickname
		}
		return id.String()
	}
	return key.String()
}

func (d *Dispatcher) play(cue string) {
	if d.env.Sounds == nil {
		return
	}
	if err := d.env.Sounds.Play(cue); err != nil {
		d.log.Warn("play sound", zap.String("cue", cue), zap.Error(err))
	}
}

func (d *Dispatcher) speak(text string) {
	if d.env.Speaker == nil {
		return
	}
	if err := d.env.Speaker.Speak(text); err != nil {
		d.log.Warn("speak", zap.Error(err))
	}
}
