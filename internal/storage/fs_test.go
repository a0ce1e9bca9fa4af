package storage

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"
)

func TestFSStore(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "/assets/")
	if err != nil {
		t.Fatal(err)
	}
	key, err := s.Put("/audio/part1.mp3", strings.NewReader("ID3"))
	if err != nil {
		t.Fatal(err)
	}
	if key != "audio/part1.mp3" {
		t.Errorf("key %q", key)
	}
	rc, err := s.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(rc)
	rc.Close()
	if string(b) != "ID3" {
		t.Errorf("content %q", b)
	}
	if u, _ := s.SignedURL(key); u != "/assets/audio/part1.mp3" {
		t.Errorf("url %q", u)
	}
	if _, err := s.Get("audio/none.mp3"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing blob: %v", err)
	}
	if _, err := s.Get("audio"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("directory served as blob: %v", err)
	}
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"", "/", "../x", "audio/../../etc/passwd", `..\x`} {
		if _, err := s.Put(k, strings.NewReader("x")); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Put(%q): %v", k, err)
		}
		if _, err := s.Get(k); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Get(%q): %v", k, err)
		}
	}
}
