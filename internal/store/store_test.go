package store_test

import (
	"errors"
	"testing"
	"time"

	"meshchat/internal/domain"
	"meshchat/internal/store"
)

func TestIdentity_SaveLoad_OK(t *testing.T) {
	home := t.TempDir()
	pass := "pass"

	var ids domain.IdentityStore = store.NewIdentityFileStore(home)

	id := domain.Identity{
		StaticPub:  domain.X25519Public{1},
		StaticPriv: domain.X25519Private{2},
		GeoSeed:    []byte{3, 4, 5},
	}

	if err := ids.SaveIdentity(pass, id); err != nil {
		t.Fatalf("save identity: %v", err)
	}

	got, err := ids.LoadIdentity(pass)
	if err != nil {
		t.Fatalf("load identity: %v", err)
	}
	if got.StaticPub != id.StaticPub || string(got.GeoSeed) != string(id.GeoSeed) {
		t.Fatalf("mismatch after load")
	}
}

func TestIdentity_WrongPassphrase_Fails(t *testing.T) {
	home := t.TempDir()
	ids := store.NewIdentityFileStore(home)

	id := domain.Identity{StaticPub: domain.X25519Public{1}, StaticPriv: domain.X25519Private{2}}

	if err := ids.SaveIdentity("correct", id); err != nil {
		t.Fatalf("save identity: %v", err)
	}
	if _, err := ids.LoadIdentity("wrong"); !errors.Is(err, store.ErrWrongPassphrase) {
		t.Fatalf("expected ErrWrongPassphrase, got %v", err)
	}
}

func TestIdentity_Missing(t *testing.T) {
	ids := store.NewIdentityFileStore(t.TempDir())
	if _, err := ids.LoadIdentity("x"); !errors.Is(err, store.ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
}

func TestPreferences_RoundTripAndWipe(t *testing.T) {
	prefs := store.NewPreferencesFileStore(t.TempDir())

	if _, ok, err := prefs.LoadNickname(); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}
	if err := prefs.SaveNickname("carol"); err != nil {
		t.Fatalf("save nickname: %v", err)
	}
	if err := prefs.SaveBlocked([]domain.Fingerprint{"aa", "bb"}); err != nil {
		t.Fatalf("save blocked: %v", err)
	}
	if err := prefs.SaveFavorites([]domain.Fingerprint{"cc"}); err != nil {
		t.Fatalf("save favorites: %v", err)
	}

	nick, ok, err := prefs.LoadNickname()
	if err != nil || !ok || nick != "carol" {
		t.Fatalf("nickname: %q ok=%v err=%v", nick, ok, err)
	}
	blocked, err := prefs.LoadBlocked()
	if err != nil || len(blocked) != 2 {
		t.Fatalf("blocked: %v err=%v", blocked, err)
	}
	favs, err := prefs.LoadFavorites()
	if err != nil || len(favs) != 1 || favs[0] != "cc" {
		t.Fatalf("favorites: %v err=%v", favs, err)
	}

	if err := prefs.Wipe(); err != nil {
		t.Fatalf("wipe: %v", err)
	}
	if _, ok, _ := prefs.LoadNickname(); ok {
		t.Fatal("nickname survived wipe")
	}
}

func TestChannels_ArchiveAndWipe(t *testing.T) {
	chs := store.NewChannelFileStore(t.TempDir())

	data := domain.ChannelData{
		Joined:    []string{"#general"},
		Protected: []string{"#general"},
		Creators:  map[string]domain.PeerID{"#general": "0102030405060708"},
	}
	if err := chs.SaveChannels(data); err != nil {
		t.Fatalf("save channels: %v", err)
	}
	got, err := chs.LoadChannels()
	if err != nil {
		t.Fatalf("load channels: %v", err)
	}
	if len(got.Joined) != 1 || got.Creators["#general"] != "0102030405060708" {
		t.Fatalf("unexpected channel data: %+v", got)
	}

	msgs := []domain.Message{{ID: "1", Sender: "alice", Content: "hi", Timestamp: time.Unix(10, 0).UTC()}}
	if err := chs.SaveArchive("#general", msgs); err != nil {
		t.Fatalf("save archive: %v", err)
	}
	saved, ok, err := chs.LoadArchive("#general")
	if err != nil || !ok || len(saved) != 1 || saved[0].Content != "hi" {
		t.Fatalf("archive: %v ok=%v err=%v", saved, ok, err)
	}

	if err := chs.SaveArchive("#../escape", msgs); err == nil {
		t.Fatal("expected error for path-like channel name")
	}

	if err := chs.Wipe(); err != nil {
		t.Fatalf("wipe: %v", err)
	}
	if _, ok, _ := chs.LoadArchive("#general"); ok {
		t.Fatal("archive survived wipe")
	}
}

func TestIdentityCache_Sealed(t *testing.T) {
	cache := store.NewIdentityCacheFileStore(t.TempDir())

	if _, ok, err := cache.LoadIdentityCache("pw"); err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}
	snap := domain.IdentityCacheSnapshot{
		Nicknames: map[domain.Fingerprint]string{"ff": "alice"},
	}
	if err := cache.SaveIdentityCache("pw", snap); err != nil {
		t.Fatalf("save cache: %v", err)
	}
	got, ok, err := cache.LoadIdentityCache("pw")
	if err != nil || !ok || got.Nicknames["ff"] != "alice" {
		t.Fatalf("load cache: %+v ok=%v err=%v", got, ok, err)
	}
	if _, _, err := cache.LoadIdentityCache("nope"); err == nil {
		t.Fatal("expected error with wrong passphrase")
	}
}
