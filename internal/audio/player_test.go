package audio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/tangotune/internal/playback"
)

type stubFetcher struct {
	data []byte
	err  error
}

func (s stubFetcher) Fetch(context.Context, string) ([]byte, error) {
	return s.data, s.err
}

func TestDefaultFetcherReadsFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.mp3")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, url := range []string{path, "file://" + path} {
		data, err := DefaultFetcher{}.Fetch(context.Background(), url)
		if err != nil || string(data) != "abc" {
			t.Fatalf("fetch %s: %q, %v", url, data, err)
		}
	}
	if _, err := (DefaultFetcher{}).Fetch(context.Background(), filepath.Join(dir, "missing.mp3")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDefaultFetcherHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ok.mp3" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("mp3"))
	}))
	defer srv.Close()

	data, err := DefaultFetcher{Client: srv.Client()}.Fetch(context.Background(), srv.URL+"/ok.mp3")
	if err != nil || string(data) != "mp3" {
		t.Fatalf("fetch: %q, %v", data, err)
	}
	if _, err := (DefaultFetcher{Client: srv.Client()}).Fetch(context.Background(), srv.URL+"/missing.mp3"); err == nil {
		t.Fatalf("expected error for 404")
	}
}

func waitChan(t *testing.T, c chan error) chan error {
	t.Helper()
	out := make(chan error, 1)
	select {
	case err := <-c:
		out <- err
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for player event")
	}
	return out
}

func TestLoadReportsFetchError(t *testing.T) {
	boom := errors.New("offline")
	p := NewPlayer(stubFetcher{err: boom}, nil)
	errc := make(chan error, 1)
	p.On(playback.EventError, func(err error) { errc <- err })
	p.Load("https://example.com/a.mp3")
	if err := <-waitChan(t, errc); !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestLoadReportsDecodeError(t *testing.T) {
	p := NewPlayer(stubFetcher{data: []byte("definitely not an mp3 stream")}, nil)
	errc := make(chan error, 1)
	p.On(playback.EventError, func(err error) { errc <- err })
	p.On(playback.EventReady, func(error) { errc <- errors.New("unexpected ready") })
	p.Load("a.mp3")
	err := <-waitChan(t, errc)
	if err == nil || err.Error() == "unexpected ready" {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestUnloadedPlayer(t *testing.T) {
	p := NewPlayer(stubFetcher{}, nil)
	if err := p.Play(); !errors.Is(err, playback.ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	if err := p.SeekTo(0.5); !errors.Is(err, playback.ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	if err := p.SeekTo(2); err == nil {
		t.Fatalf("expected range error")
	}
	p.SetVolume(0.3)
	if p.Duration() != 0 {
		t.Fatalf("unexpected duration %v", p.Duration())
	}
	p.Pause()
	p.Destroy()
	p.Destroy()
	if err := p.Play(); !errors.Is(err, playback.ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded after destroy, got %v", err)
	}
}
