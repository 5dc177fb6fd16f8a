package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type secret struct {
	Name string `json:"name"`
}

func TestDocument_SealOpen(t *testing.T) {
	dir := t.TempDir()
	doc := docAt(dir, "secret.json.enc")

	var got secret
	if ok, err := doc.open("pw", &got); ok || err != nil {
		t.Fatalf("missing document: ok=%v err=%v", ok, err)
	}

	if err := doc.seal("pw", secret{Name: "carol"}); err != nil {
		t.Fatalf("seal: %v", err)
	}
	ok, err := doc.open("pw", &got)
	if err != nil || !ok || got.Name != "carol" {
		t.Fatalf("open: %+v ok=%v err=%v", got, ok, err)
	}

	fi, err := os.Stat(doc.String())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want 0600", fi.Mode().Perm())
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("leftover temp files: %v err=%v", entries, err)
	}
}

func TestDocument_TamperedEnvelope(t *testing.T) {
	doc := docAt(t.TempDir(), "secret.json.enc")
	if err := doc.seal("pw", secret{Name: "carol"}); err != nil {
		t.Fatalf("seal: %v", err)
	}

	var e envelope
	if _, err := doc.decode(&e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	e.Data[0] ^= 0xff
	if err := doc.encode(e); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got secret
	if _, err := doc.open("pw", &got); !errors.Is(err, ErrWrongPassphrase) {
		t.Fatalf("flipped byte: expected ErrWrongPassphrase, got %v", err)
	}

	e.Data[0] ^= 0xff
	e.Nonce = e.Nonce[:12]
	if err := doc.encode(e); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := doc.open("pw", &got); !errors.Is(err, ErrWrongPassphrase) {
		t.Fatalf("short nonce: expected ErrWrongPassphrase, got %v", err)
	}
}

func TestDocument_DecodeMissingLeavesValue(t *testing.T) {
	doc := docAt(t.TempDir(), "prefs.json")
	got := secret{Name: "keep"}
	ok, err := doc.decode(&got)
	if ok || err != nil || got.Name != "keep" {
		t.Fatalf("decode missing: %+v ok=%v err=%v", got, ok, err)
	}
	if err := doc.remove(); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
	if err := os.WriteFile(filepath.Join(filepath.Dir(doc.String()), "prefs.json"), []byte("{"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := doc.decode(&got); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}
