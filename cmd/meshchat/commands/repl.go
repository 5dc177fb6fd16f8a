package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"meshchat/internal/app"
	"meshchat/internal/domain"
	"meshchat/internal/transport/loopback"
)

const replHelp = `local commands:
  :peers                 list connected peers
  :pm <nick>             open a private chat        :end   close it
  :unread                open the latest unread private chat
  :verify <nick>         verify a peer's identity
  :fav <nick>            toggle a favorite
  :loc [geohash]         switch to a location channel, or back to the mesh
  :nick <name>           change nickname
  :leave <#channel>      leave a channel
  :complete <input>      show command or mention completions
  :connect <nick>        add a simulated peer        :drop <nick>  remove one
  :recv <nick> <text>    simulate a message from a peer
  :reset                 wipe everything and start over
  :quit
anything else is sent to the current conversation; /help lists slash commands.`

// repl drives an App from line input and prints new messages as they
// arrive.
type repl struct {
	app  *app.App
	in   io.Reader
	out  io.Writer
	seen map[string]bool
}

func newREPL(a *app.App, in io.Reader, out io.Writer) *repl {
	return &repl{app: a, in: in, out: out, seen: map[string]bool{}}
}

// run reads lines until EOF, :quit or ctx is done.
func (r *repl) run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	st := r.app.State
	mainC, cancelMain := st.Messages.Subscribe()
	defer cancelMain()
	chanC, cancelChan := st.ChannelMessages.Subscribe()
	defer cancelChan()
	privC, cancelPriv := st.PrivateChats.Subscribe()
	defer cancelPriv()

	r.flush()
	r.prompt()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-mainC:
			r.flush()
		case <-chanC:
			r.flush()
		case <-privC:
			r.flush()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := r.handle(ctx, strings.TrimSpace(line))
			if err != nil {
				fmt.Fprintf(r.out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
			r.flush()
			r.prompt()
		}
	}
}

func (r *repl) prompt() {
	where := "mesh"
	st := r.app.State
	switch {
	case !st.SelectedPrivatePeer.Load().IsZero():
		where = "pm " + r.displayKey(st.SelectedPrivatePeer.Load())
	case st.Location.Load().IsLocation():
		where = st.Location.Load().String()
	case st.CurrentChannel.Load() != "":
		where = st.CurrentChannel.Load()
	}
	fmt.Fprintf(r.out, "%s@%s> ", st.Nickname.Load(), where)
}

// handle runs one input line and reports whether to quit.
func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	if line == "" {
		return false, nil
	}
	if line == "/help" {
		for _, s := range r.app.Dispatcher().UpdateCommandSuggestions("/") {
			fmt.Fprintf(r.out, "  %-28s %s\n", s.Syntax, s.Description)
		}
		return false, nil
	}
	if !strings.HasPrefix(line, ":") {
		return false, r.app.SendMessage(ctx, line)
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	switch name {
	case "quit", "q":
		return true, nil
	case "help":
		fmt.Fprintln(r.out, replHelp)
	case "peers":
		r.peers()
	case "pm":
		return false, r.app.StartPrivateChatWith(ctx, rest)
	case "end":
		r.app.EndPrivateChat()
	case "unread":
		if key, ok := r.app.OpenLatestUnreadPrivateChat(ctx); ok {
			fmt.Fprintf(r.out, "opened chat with %s\n", r.displayKey(key))
		} else {
			fmt.Fprintln(r.out, "no unread private chats")
		}
	case "verify":
		return false, r.app.VerifyPeer(ctx, rest)
	case "fav":
		peer, ok := r.peerByNickname(rest)
		if !ok {
			return false, fmt.Errorf("%s: %w", rest, app.ErrUnknownPeer)
		}
		now, err := r.app.ToggleFavorite(ctx, peer)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "%s favorite: %t\n", rest, now)
	case "loc":
		return false, r.app.SetLocation(rest)
	case "nick":
		return false, r.app.SetNickname(rest)
	case "leave":
		return false, r.app.LeaveChannel(ctx, rest)
	case "complete":
		r.complete(rest)
	case "connect":
		lt, err := r.loopback()
		if err != nil {
			return false, err
		}
		_, err = lt.AddPeer(rest)
		return false, err
	case "drop":
		lt, err := r.loopback()
		if err != nil {
			return false, err
		}
		peer, ok := r.peerByNickname(rest)
		if !ok {
			return false, fmt.Errorf("%s: %w", rest, app.ErrUnknownPeer)
		}
		lt.Disconnect(peer)
	case "recv":
		return false, r.recv(rest)
	case "reset":
		if err := r.app.ResetIdentity(ctx); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "identity reset; you are now %s (%s)\n", r.app.State.Nickname.Load(), r.app.Fingerprint().Short())
	default:
		return false, fmt.Errorf("unknown local command :%s (try :help)", name)
	}
	return false, nil
}

func (r *repl) peers() {
	set := r.app.State.Peers.Load()
	if set.Len() == 0 {
		fmt.Fprintln(r.out, "no peers connected")
		return
	}
	v := r.app.Verification()
	for _, id := range set.Order {
		p := set.Peers[id]
		mark := ""
		if v != nil && v.IsVerified(p.Fingerprint) {
			mark = " verified"
		}
		fmt.Fprintf(r.out, "  %-12s %s  %-11s rssi %d  fp %s%s\n",
			p.Nickname, id, p.SessionState, p.RSSI, p.Fingerprint.Short(), mark)
	}
}

func (r *repl) complete(input string) {
	d := r.app.Dispatcher()
	if strings.HasPrefix(input, "/") && !strings.Contains(input, " ") {
		for _, s := range d.UpdateCommandSuggestions(input) {
			fmt.Fprintf(r.out, "  %s\n", d.SelectCommandSuggestion(s))
		}
		return
	}
	for _, nick := range d.UpdateMentionSuggestions(input) {
		fmt.Fprintf(r.out, "  %s\n", d.SelectMentionSuggestion(nick, input))
	}
}

func (r *repl) recv(arg string) error {
	nick, text, ok := strings.Cut(arg, " ")
	if !ok {
		return fmt.Errorf("usage: :recv <nick> <text>")
	}
	lt, err := r.loopback()
	if err != nil {
		return err
	}
	peer, ok := r.peerByNickname(nick)
	if !ok {
		return fmt.Errorf("%s: %w", nick, app.ErrUnknownPeer)
	}
	msg := r.app.Messages.Compose(nick, text)
	msg.SenderPeerID = peer
	msg.Channel = r.app.State.CurrentChannel.Load()
	if sel, ok := r.app.State.SelectedPrivatePeer.Load().PeerID(); ok && sel == peer {
		msg.IsPrivate = true
		msg.Channel = ""
	}
	lt.Deliver(domain.Event{Kind: domain.EventMessageReceived, Message: &msg})
	return nil
}

func (r *repl) loopback() (*loopback.Transport, error) {
	lt, ok := r.app.Transport().(*loopback.Transport)
	if !ok {
		return nil, fmt.Errorf("not running on the simulated mesh")
	}
	return lt, nil
}

func (r *repl) peerByNickname(nick string) (domain.PeerID, bool) {
	for id, n := range r.app.State.PeerNicknames() {
		if n == nick {
			return id, true
		}
	}
	return "", false
}

func (r *repl) displayKey(key domain.ConversationKey) string {
	if id, ok := key.PeerID(); ok {
		if n := r.app.State.PeerNicknames()[id]; n != "" {
			return n
		}
	}
	return key.String()
}

// flush prints every message not printed yet.
func (r *repl) flush() {
	st := r.app.State
	for _, m := range st.Messages.Load() {
		r.print("", m)
	}

	chans := st.ChannelMessages.Load()
	names := make([]string, 0, len(chans))
	for ch := range chans {
		names = append(names, ch)
	}
	slices.Sort(names)
	for _, ch := range names {
		for _, m := range chans[ch] {
			r.print(ch, m)
		}
	}

	chats := st.PrivateChats.Load()
	keys := make([]domain.ConversationKey, 0, len(chats))
	for k := range chats {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b domain.ConversationKey) int { return strings.Compare(a.String(), b.String()) })
	for _, k := range keys {
		for _, m := range chats[k] {
			r.print("pm "+r.displayKey(k), m)
		}
	}
}

func (r *repl) print(where string, m domain.Message) {
	if r.seen[m.ID] {
		return
	}
	r.seen[m.ID] = true

	if where == "" && m.Channel != "" {
		where = m.Channel
	}
	prefix := m.Timestamp.Format("15:04")
	if where != "" {
		prefix += " [" + where + "]"
	}
	if m.IsSystem() {
		fmt.Fprintf(r.out, "\r%s * %s\n", prefix, m.Content)
		return
	}
	status := ""
	if d := m.Delivery.String(); d != "" {
		status = " (" + d + ")"
	}
	fmt.Fprintf(r.out, "\r%s <%s> %s%s\n", prefix, m.Sender, m.Content, status)
}
