package commands

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"meshchat/internal/app"
)

func startTestApp(t *testing.T) *app.App {
	t.Helper()
	c := app.DefaultConfig()
	c.Home = t.TempDir()
	c.Nickname = "carol"
	a := app.New(c, "Correct-Horse-9", simFactory(app.SimConfig{Peers: []string{"alice"}}), zap.NewNop())
	_, err := a.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })
	require.Eventually(t, func() bool { return a.State.Peers.Load().Len() == 1 }, 5*time.Second, 5*time.Millisecond)
	return a
}

func TestREPL_LocalCommands(t *testing.T) {
	a := startTestApp(t)
	var out bytes.Buffer
	r := newREPL(a, nil, &out)
	ctx := context.Background()

	quit, err := r.handle(ctx, ":peers")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Contains(t, out.String(), "alice")

	_, err = r.handle(ctx, ":recv alice hi there")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		msgs := a.State.Messages.Load()
		return len(msgs) > 0 && msgs[len(msgs)-1].Content == "hi there"
	}, 5*time.Second, 5*time.Millisecond)
	r.flush()
	assert.Contains(t, out.String(), "<alice> hi there")

	_, err = r.handle(ctx, ":loc u4pru")
	require.NoError(t, err)
	assert.Equal(t, "#u4pru", a.State.Location.Load().String())

	_, err = r.handle(ctx, ":bogus")
	assert.Error(t, err)

	quit, err = r.handle(ctx, ":quit")
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestREPL_SlashCommandsGoToDispatcher(t *testing.T) {
	a := startTestApp(t)
	var out bytes.Buffer
	r := newREPL(a, nil, &out)

	_, err := r.handle(context.Background(), "/j testroom")
	require.NoError(t, err)
	assert.Equal(t, "#testroom", a.State.CurrentChannel.Load())

	r.complete("/he")
	r.complete("@al")
	assert.Contains(t, out.String(), "@alice")
}
