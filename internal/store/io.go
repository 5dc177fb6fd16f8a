package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// document is one file under a store's directory. Writes go to a sibling
// temp file that is synced and renamed over the target, so readers see the
// old or the new content and never a torn write.
type document string

func docAt(dir, name string) document {
	return document(filepath.Join(dir, name))
}

func (d document) String() string { return string(d) }

// read returns the file's bytes; ok is false when it does not exist.
func (d document) read() (b []byte, ok bool, err error) {
	b, err = os.ReadFile(string(d))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return b, true, nil
}

// decode unmarshals the file into out and leaves out untouched when the
// file does not exist.
func (d document) decode(out any) (bool, error) {
	b, ok, err := d.read()
	if !ok || err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, out)
}

func (d document) encode(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return d.write(b)
}

func (d document) write(b []byte) error {
	f, err := os.CreateTemp(filepath.Dir(string(d)), filepath.Base(string(d))+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	err = f.Chmod(0o600)
	if err == nil {
		_, err = f.Write(b)
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return os.Rename(tmp, string(d))
}

func (d document) remove() error {
	if err := os.Remove(string(d)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
