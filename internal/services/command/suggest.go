package command

import (
	"slices"
	"strings"

	"meshchat/internal/domain"
)

// UpdateCommandSuggestions publishes the commands matching a partial
// input and returns them. Input not starting with "/" clears the list.
func (d *Dispatcher) UpdateCommandSuggestions(input string) []domain.CommandSuggestion {
	if !strings.HasPrefix(input, "/") {
		d.env.State.CommandSuggestions.Store(nil)
		return nil
	}
	input = strings.ToLower(input)
	inChannel := d.env.State.InChannel()

	var out []domain.CommandSuggestion
	for _, e := range d.entries {
		if e.channelOnly && !inChannel {
			continue
		}
		if strings.HasPrefix(e.Command, input) || slices.ContainsFunc(e.Aliases, func(a string) bool {
			return strings.HasPrefix(a, input)
		}) {
			out = append(out, e.CommandSuggestion)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.CommandSuggestion) int {
		return strings.Compare(a.Command, b.Command)
	})
	d.env.State.CommandSuggestions.Store(out)
	return out
}

// SelectCommandSuggestion hides the list and returns the completed input.
func (d *Dispatcher) SelectCommandSuggestion(s domain.CommandSuggestion) string {
	d.env.State.CommandSuggestions.Store(nil)
	return s.Command + " "
}

// UpdateMentionSuggestions publishes the nicknames completing the mention
// after the last "@" and returns them.
func (d *Dispatcher) UpdateMentionSuggestions(input string) []string {
	at := strings.LastIndexByte(input, '@')
	if at < 0 {
		d.env.State.MentionSuggestions.Store(nil)
		return nil
	}
	partial := input[at+1:]
	if strings.ContainsFunc(partial, isSpace) {
		d.env.State.MentionSuggestions.Store(nil)
		return nil
	}

	var pool []string
	if d.env.State.Location.Load().IsLocation() {
		pool = d.geoParticipants()
	} else {
		pool = d.meshNicknames()
	}
	partial = strings.ToLower(partial)
	var out []string
	for _, n := range pool {
		if strings.HasPrefix(strings.ToLower(n), partial) {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	d.env.State.MentionSuggestions.Store(out)
	return out
}

// SelectMentionSuggestion hides the list and replaces the partial mention
// with "@nickname ".
func (d *Dispatcher) SelectMentionSuggestion(nickname, current string) string {
	d.env.State.MentionSuggestions.Store(nil)
	at := strings.LastIndexByte(current, '@')
	if at < 0 {
		return current + "@" + nickname + " "
	}
	return current[:at] + "@" + nickname + " "
}

// meshNicknames returns connected peer nicknames other than ours.
func (d *Dispatcher) meshNicknames() []string {
	self := d.nickname()
	set := d.env.State.Peers.Load()
	var out []string
	for _, id := range set.Order {
		n := set.Peers[id].Nickname
		if n == "" || n == self {
			continue
		}
		out = append(out, n)
	}
	return out
}

// geoParticipants returns location participant display names, excluding
// the ones carrying our nickname.
func (d *Dispatcher) geoParticipants() []string {
	selfPrefix := d.nickname() + "#"
	var out []string
	for _, p := range d.env.State.GeohashPeople.Load() {
		name := p.DisplayName()
		if strings.HasPrefix(name, selfPrefix) {
			continue
		}
		out = append(out, name)
	}
	return out
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}
