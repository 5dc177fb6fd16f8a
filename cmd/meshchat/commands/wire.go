package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"meshchat/internal/app"
	"meshchat/internal/domain"
	"meshchat/internal/figlet"
	"meshchat/internal/transport/loopback"
)

// console prints speech and sound cues in place of audio output.
type console struct {
	mu  sync.Mutex
	out io.Writer
}

func (c *console) Speak(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "  (speaking) %s\n", text)
	return err
}

func (c *console) Play(cue string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "  (sound) %s\n", cue)
	return err
}

var (
	_ domain.Speaker     = (*console)(nil)
	_ domain.SoundPlayer = (*console)(nil)
)

// simFactory creates loopback transports pre-populated with cfg.Sim.Peers.
func simFactory(sim app.SimConfig) domain.TransportFactory {
	return func(context.Context) (domain.Transport, error) {
		t, err := loopback.New(loopback.Options{
			HandshakeDelay: sim.HandshakeDelay,
			AutoAck:        sim.AutoAck,
		})
		if err != nil {
			return nil, err
		}
		for _, nick := range sim.Peers {
			if _, err := t.AddPeer(nick); err != nil {
				return nil, fmt.Errorf("add simulated peer %s: %w", nick, err)
			}
		}
		return t, nil
	}
}

// newApp builds the app from the loaded config. The returned registry
// holds the app's metrics plus the Go runtime collectors.
func newApp() (*app.App, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	out := &console{out: os.Stdout}
	a := app.New(*cfg, passphrase, simFactory(cfg.Sim), logger,
		app.WithRegisterer(reg),
		app.WithSpeaker(out),
		app.WithSounds(out),
		app.WithFiglet(figlet.NewHTTP(cfg.Figlet.URL, cfg.Figlet.Timeout)),
	)
	return a, reg
}
