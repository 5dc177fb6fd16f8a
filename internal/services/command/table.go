package command

import (
	"context"

	"meshchat/internal/domain"
)

type handler func(d *Dispatcher, ctx context.Context, name string, args []string)

// entry is one command: its suggestion metadata plus the handler.
type entry struct {
	domain.CommandSuggestion
	// channelOnly entries are suggested only inside a channel.
	channelOnly bool
	run         handler
}

func builtins() []entry {
	return []entry{
		{CommandSuggestion: suggestion("/block", nil, "[nickname]", "block or list blocked peers"), run: (*Dispatcher).block},
		{CommandSuggestion: suggestion("/channels", nil, "", "show all discovered channels"), run: (*Dispatcher).channels},
		{CommandSuggestion: suggestion("/clear", nil, "", "clear chat messages"), run: (*Dispatcher).clear},
		{CommandSuggestion: suggestion("/figlet", nil, "<text>", "generate ASCII art text"), run: (*Dispatcher).figlet},
		{CommandSuggestion: suggestion("/hug", nil, "<nickname>", "send someone a warm hug"), run: action("gives", "a warm hug 🫂")},
		{CommandSuggestion: suggestion("/insult", nil, "<nickname>", "generate a random insult"), run: (*Dispatcher).insult},
		{CommandSuggestion: suggestion("/j", []string{"/join"}, "<channel>", "join or create a channel"), run: (*Dispatcher).join},
		{CommandSuggestion: suggestion("/m", []string{"/msg"}, "<nickname> [message]", "send private message"), run: (*Dispatcher).msg},
		{CommandSuggestion: suggestion("/say", nil, "<text>", "speak the text out loud"), run: (*Dispatcher).say},
		{CommandSuggestion: suggestion("/sayall", nil, "", "toggle speaking all incoming messages"), run: (*Dispatcher).sayAll},
		{CommandSuggestion: suggestion("/slap", nil, "<nickname>", "slap someone with a trout"), run: action("slaps", "around a bit with a large trout 🐟")},
		{CommandSuggestion: suggestion("/unblock", nil, "<nickname>", "unblock a peer"), run: (*Dispatcher).unblock},
		{CommandSuggestion: suggestion("/w", nil, "", "see who's online"), run: (*Dispatcher).who},
		{CommandSuggestion: suggestion("/sapme", nil, "", "request a frosty beer for yourself!"), run: selfAction("requests a frosty beer! Sapporo me captain! 🍺🍺🍺🍺🍺")},
		{CommandSuggestion: suggestion("/saphim", nil, "<nickname>", "request a frosty beer for someone else!"), run: action("requests a frosty beer for", "! 🍺 Sapporo him captain!! 🍺🍺🍺🍺🍺")},
		{CommandSuggestion: suggestion("/saysapme", nil, "", "say and play the sap me sound"), run: (*Dispatcher).saySapMe},

		{CommandSuggestion: suggestion("/pass", nil, "[password]", "change channel password"), channelOnly: true, run: (*Dispatcher).pass},
		{CommandSuggestion: suggestion("/save", nil, "", "save channel messages locally"), channelOnly: true, run: (*Dispatcher).save},
		{CommandSuggestion: suggestion("/transfer", nil, "<nickname>", "transfer channel ownership"), channelOnly: true, run: (*Dispatcher).transfer},
	}
}

func suggestion(cmd string, aliases []string, syntax, desc string) domain.CommandSuggestion {
	return domain.CommandSuggestion{Command: cmd, Aliases: aliases, Syntax: syntax, Description: desc}
}

// index maps every name and alias to its entry.
func index(entries []entry) map[string]*entry {
	m := make(map[string]*entry, len(entries)*2)
	for i := range entries {
		e := &entries[i]
		m[e.Command] = e
		for _, a := range e.Aliases {
			m[a] = e
		}
	}
	return m
}
