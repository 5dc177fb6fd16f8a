package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"meshchat/internal/domain"
	"meshchat/internal/services/channel"
)

// SoundSapporo is the cue played with beer actions.
const SoundSapporo = "sapporome"

// sayAndPlayDelay separates a spoken line from its sound cue.
const sayAndPlayDelay = 2 * time.Second

func (d *Dispatcher) join(_ context.Context, _ string, args []string) {
	if len(args) == 0 {
		d.system("usage: /join <channel>")
		return
	}
	ch := channel.Normalize(args[0])
	var password string
	if len(args) > 1 {
		password = args[1]
	}
	if d.env.Channels.Join(ch, password, d.self()) {
		d.system("joined channel " + ch)
	}
}

func (d *Dispatcher) msg(ctx context.Context, _ string, args []string) {
	if len(args) == 0 {
		d.system("usage: /msg <nickname> [message]")
		return
	}
	target := strings.TrimPrefix(args[0], "@")

	if strings.EqualFold(target, d.env.BotName) {
		if len(args) < 2 {
			d.system(fmt.Sprintf("usage: /m %s <command>", d.env.BotName))
			return
		}
		botCmd := strings.Join(args[1:], " ")
		d.env.Messages.AddMessage(d.env.Messages.Compose(d.env.BotName, botCmd))
		d.send(ctx, botPrefix+botCmd, d.env.State.CurrentChannel.Load())
		return
	}

	peer, ok := d.env.Private.PeerByNickname(target)
	if !ok {
		d.system(fmt.Sprintf("user '%s' not found. they may be offline or using a different nickname.", target))
		return
	}
	key := domain.PeerKey(peer)
	if !d.env.Private.StartPrivateChat(ctx, key, d.mesh()) {
		return
	}
	if len(args) < 2 {
		d.system("started private chat with " + target)
		return
	}
	d.sendPrivate(ctx, key, strings.Join(args[1:], " "))
}

func (d *Dispatcher) who(context.Context, string, []string) {
	var names []string
	label := "online users"
	if loc := d.env.State.Location.Load(); loc.IsLocation() {
		label = "participants in " + loc.Geohash()
		names = d.geoParticipants()
	} else {
		for _, id := range d.env.State.ConnectedPeers.Load() {
			names = append(names, d.peerNickname(domain.PeerKey(id)))
		}
	}
	if len(names) == 0 {
		d.system(fmt.Sprintf("Just you and %s are here.", d.env.BotName))
		return
	}
	list := append([]string{"👑" + d.env.BotName}, names...)
	d.system(label + ": " + strings.Join(list, ", "))
}

func (d *Dispatcher) clear(context.Context, string, []string) {
	st := d.env.State
	switch key := st.SelectedPrivatePeer.Load(); {
	case !key.IsZero():
		d.env.Messages.ClearPrivateMessages(key)
	case st.CurrentChannel.Load() != "":
		d.env.Messages.ClearChannelMessages(st.CurrentChannel.Load())
	default:
		d.env.Messages.ClearMessages()
	}
}

// channelNotice posts a system message into a channel timeline.
func (d *Dispatcher) channelNotice(ch, text string) {
	d.env.Channels.AddChannelMessage(ch, d.env.Messages.Compose(domain.SystemSender, text), "")
}

func (d *Dispatcher) pass(_ context.Context, _ string, args []string) {
	ch := d.env.State.CurrentChannel.Load()
	if ch == "" {
		d.system("you must be in a channel to set a password.")
		return
	}
	if len(args) != 1 {
		d.channelNotice(ch, "usage: /pass <password>")
		return
	}
	if !d.env.Channels.IsCreator(ch, d.self()) {
		d.channelNotice(ch, "you must be the channel creator to set a password.")
		return
	}
	if err := d.env.Channels.SetPassword(ch, args[0], d.self()); err != nil {
		d.log.Warn("set password", zap.String("channel", ch), zap.Error(err))
		d.channelNotice(ch, "failed to change password for channel "+ch)
		return
	}
	d.channelNotice(ch, "password changed for channel "+ch)
}

func (d *Dispatcher) save(context.Context, string, []string) {
	ch := d.env.State.CurrentChannel.Load()
	if ch == "" {
		d.system("you must be in a channel to save messages.")
		return
	}
	n, err := d.env.Channels.Save(ch)
	if err != nil {
		d.log.Warn("save channel", zap.String("channel", ch), zap.Error(err))
		d.channelNotice(ch, "failed to save messages for channel "+ch)
		return
	}
	d.channelNotice(ch, fmt.Sprintf("saved %d messages from %s", n, ch))
}

func (d *Dispatcher) transfer(_ context.Context, _ string, args []string) {
	ch := d.env.State.CurrentChannel.Load()
	if ch == "" {
		d.system("you must be in a channel to transfer ownership.")
		return
	}
	if len(args) == 0 {
		d.channelNotice(ch, "usage: /transfer <nickname>")
		return
	}
	target := strings.TrimPrefix(args[0], "@")
	peer, ok := d.env.Private.PeerByNickname(target)
	if !ok {
		d.channelNotice(ch, fmt.Sprintf("user '%s' not found.", target))
		return
	}
	if err := d.env.Channels.TransferOwnership(ch, d.self(), peer); err != nil {
		d.channelNotice(ch, "you must be the channel creator to transfer ownership.")
		return
	}
	d.channelNotice(ch, fmt.Sprintf("transferred ownership of %s to %s", ch, target))
}

func (d *Dispatcher) block(_ context.Context, _ string, args []string) {
	if len(args) == 0 {
		d.env.Private.ListBlocked()
		return
	}
	d.env.Private.BlockByNickname(strings.TrimPrefix(args[0], "@"))
}

func (d *Dispatcher) unblock(_ context.Context, _ string, args []string) {
	if len(args) == 0 {
		d.system("usage: /unblock <nickname>")
		return
	}
	d.env.Private.UnblockByNickname(strings.TrimPrefix(args[0], "@"))
}

func (d *Dispatcher) say(_ context.Context, _ string, args []string) {
	if len(args) == 0 {
		d.system("usage: /say <text>")
		return
	}
	text := strings.Join(args, " ")
	d.echo(text)
	d.speak(text)
}

func (d *Dispatcher) sayAll(context.Context, string, []string) {
	now := d.env.State.SayAll.Update(func(cur bool) bool { return !cur })
	status := "disabled"
	if now {
		status = "enabled"
	}
	d.system("say all messages is now " + status)
}

func (d *Dispatcher) saySapMe(context.Context, string, []string) {
	const text = "Sapporo me captain! 🍺"
	d.echo(text)
	d.speak(text)
	d.spawn(func(ctx context.Context) {
		select {
		case <-ctx.Done():
			return
		case <-d.clock.After(sayAndPlayDelay):
		}
		d.play(SoundSapporo)
	})
}

func (d *Dispatcher) channels(context.Context, string, []string) {
	joined := d.env.Channels.JoinedChannels()
	if len(joined) == 0 {
		d.system("no channels joined")
		return
	}
	d.system("joined channels: " + strings.Join(joined, ", "))
}

func (d *Dispatcher) insult(ctx context.Context, _ string, args []string) {
	if len(args) == 0 {
		d.system("usage: /insult <nickname>")
		return
	}
	d.post(ctx, Insult(strings.TrimPrefix(args[0], "@"), d.pick))
}

func (d *Dispatcher) figlet(_ context.Context, _ string, args []string) {
	if len(args) == 0 {
		d.system("usage: /figlet <text>")
		return
	}
	if d.env.Figlet == nil {
		d.system("figlet is not available")
		return
	}
	text := strings.Join(args, " ")
	d.spawn(func(ctx context.Context) {
		art, err := d.env.Figlet.Render(ctx, text)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			d.log.Warn("figlet", zap.Error(err))
			d.system("failed to generate figlet text")
			return
		}
		d.post(ctx, art)
	})
}

// action returns a handler for "* me <verb> <target> <object> *" lines.
func action(verb, object string) handler {
	return func(d *Dispatcher, ctx context.Context, name string, args []string) {
		if len(args) == 0 {
			d.system(fmt.Sprintf("usage: %s <nickname>", name))
			return
		}
		target := strings.TrimPrefix(args[0], "@")
		d.emote(ctx, fmt.Sprintf("* %s %s %s %s *", d.actor(), verb, target, object))
	}
}

// selfAction returns a handler for "* me <text> *" lines.
func selfAction(text string) handler {
	return func(d *Dispatcher, ctx context.Context, _ string, _ []string) {
		d.emote(ctx, fmt.Sprintf("* %s %s *", d.actor(), text))
	}
}

func (d *Dispatcher) actor() string {
	if n := d.nickname(); n != "" {
		return n
	}
	return "someone"
}

// emote plays the action cue and sends line to the active conversation.
func (d *Dispatcher) emote(ctx context.Context, line string) {
	d.play(SoundSapporo)
	if key := d.env.State.SelectedPrivatePeer.Load(); !key.IsZero() {
		d.sendPrivate(ctx, key, line)
		return
	}
	d.post(ctx, line)
}
