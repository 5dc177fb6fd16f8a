package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"meshchat/internal/domain"
)

const (
	channelsFilename = "channels.json"
	archiveDir       = "archives"
)

// ChannelFileStore persists channel bookkeeping and saved transcripts.
type ChannelFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewChannelFileStore returns a ChannelFileStore rooted at dir.
func NewChannelFileStore(dir string) *ChannelFileStore {
	return &ChannelFileStore{dir: dir}
}

// LoadChannels returns the saved channel data; empty when nothing is saved.
func (s *ChannelFileStore) LoadChannels() (domain.ChannelData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data domain.ChannelData
	if _, err := docAt(s.dir, channelsFilename).decode(&data); err != nil {
		return domain.ChannelData{}, err
	}
	return data, nil
}

// SaveChannels replaces the channel data.
func (s *ChannelFileStore) SaveChannels(data domain.ChannelData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return docAt(s.dir, channelsFilename).encode(data)
}

// SaveArchive writes a channel transcript, replacing any earlier one.
func (s *ChannelFileStore) SaveArchive(channel string, msgs []domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.dir, archiveDir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	doc, err := archiveDoc(dir, channel)
	if err != nil {
		return err
	}
	return doc.encode(msgs)
}

// LoadArchive reads a saved channel transcript.
func (s *ChannelFileStore) LoadArchive(channel string) ([]domain.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := archiveDoc(filepath.Join(s.dir, archiveDir), channel)
	if err != nil {
		return nil, false, err
	}
	var msgs []domain.Message
	ok, err := doc.decode(&msgs)
	if !ok || err != nil {
		return nil, false, err
	}
	return msgs, true, nil
}

// Wipe removes channel data and every saved transcript.
func (s *ChannelFileStore) Wipe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := docAt(s.dir, channelsFilename).remove(); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.dir, archiveDir))
}

func archiveDoc(dir, channel string) (document, error) {
	name := strings.TrimPrefix(channel, "#")
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid channel name %q", channel)
	}
	return docAt(dir, name+".json"), nil
}

// Compile-time assertion that ChannelFileStore implements domain.ChannelStore.
var _ domain.ChannelStore = (*ChannelFileStore)(nil)
