package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"meshchat/internal/domain"
)

func commandNames(s []domain.CommandSuggestion) []string {
	out := make([]string, 0, len(s))
	for _, c := range s {
		out = append(out, c.Command)
	}
	return out
}

func TestCommandSuggestions(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, []string{"/j"}, commandNames(f.d.UpdateCommandSuggestions("/jo")))
	assert.Equal(t, []string{"/saphim", "/sapme", "/say", "/sayall", "/saysapme", "/slap"},
		commandNames(f.d.UpdateCommandSuggestions("/S")))
	assert.Len(t, f.state.CommandSuggestions.Load(), 6)

	assert.Empty(t, f.d.UpdateCommandSuggestions("/zz"))
	assert.Empty(t, f.state.CommandSuggestions.Load())
	assert.Empty(t, f.d.UpdateCommandSuggestions("hello"))
}

func TestCommandSuggestions_ChannelOnly(t *testing.T) {
	f := newFixture(t, nil)
	assert.Empty(t, f.d.UpdateCommandSuggestions("/tr"))

	f.state.CurrentChannel.Store("#pub")
	assert.Equal(t, []string{"/saphim", "/sapme", "/save", "/say", "/sayall", "/saysapme", "/slap"},
		commandNames(f.d.UpdateCommandSuggestions("/s")))
	assert.Equal(t, []string{"/transfer"}, commandNames(f.d.UpdateCommandSuggestions("/tr")))
}

func TestSelectCommandSuggestion(t *testing.T) {
	f := newFixture(t, nil)
	got := f.d.UpdateCommandSuggestions("/j")
	assert.Equal(t, "/j ", f.d.SelectCommandSuggestion(got[0]))
	assert.Empty(t, f.state.CommandSuggestions.Load())
}

func TestMentionSuggestions_Mesh(t *testing.T) {
	f := newFixture(t, nil)
	f.addPeer(t, "alice")
	f.addPeer(t, "bob")
	f.addPeer(t, "carol")

	assert.Equal(t, []string{"alice"}, f.d.UpdateMentionSuggestions("hello @a"))
	assert.Equal(t, []string{"alice"}, f.state.MentionSuggestions.Load())
	assert.Equal(t, []string{"alice", "bob"}, f.d.UpdateMentionSuggestions("hello @"))
	assert.Equal(t, []string{"bob"}, f.d.UpdateMentionSuggestions("@B"))

	assert.Empty(t, f.d.UpdateMentionSuggestions("hello @a there"))
	assert.Empty(t, f.d.UpdateMentionSuggestions("hello"))
	assert.Empty(t, f.d.UpdateMentionSuggestions("@c"), "own nickname is excluded")
	assert.Empty(t, f.state.MentionSuggestions.Load())
}

func TestMentionSuggestions_Location(t *testing.T) {
	f := newFixture(t, nil)
	f.addPeer(t, "alice")
	f.state.Location.Store(domain.LocationFor("u4pru"))
	f.state.GeohashPeople.Store([]domain.GeoPerson{
		{PublicKeyHex: "ffee00aa", Nickname: "carol"},
		{PublicKeyHex: "ffee11bb", Nickname: "dave"},
		{PublicKeyHex: "ffee22cc", Nickname: "dana"},
	})

	assert.Equal(t, []string{"dana#22cc", "dave#11bb"}, f.d.UpdateMentionSuggestions("yo @d"))
	assert.Empty(t, f.d.UpdateMentionSuggestions("yo @a"), "mesh peers are not candidates here")
	assert.Empty(t, f.d.UpdateMentionSuggestions("yo @car"))
}

func TestSelectMentionSuggestion(t *testing.T) {
	f := newFixture(t, nil)
	f.state.MentionSuggestions.Store([]string{"alice"})

	assert.Equal(t, "hello @alice ", f.d.SelectMentionSuggestion("alice", "hello @al"))
	assert.Empty(t, f.state.MentionSuggestions.Load())
	assert.Equal(t, "hi @bob @alice ", f.d.SelectMentionSuggestion("alice", "hi @bob @"))
	assert.Equal(t, "hey @alice ", f.d.SelectMentionSuggestion("alice", "hey "))
}
