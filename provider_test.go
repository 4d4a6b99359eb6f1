package main

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestLyricsChainPriorityOrder(t *testing.T) {
	p5 := &fakeProvider{name: "five", priority: 5, lyrics: testLyrics("from five")}
	p1 := &fakeProvider{name: "one", priority: 1, lyrics: testLyrics("from one")}
	p10 := &fakeProvider{name: "ten", priority: 10, lyrics: testLyrics("from ten")}

	chain := &lyricsChain{}
	chain.Register(p5)
	chain.Register(p1)
	chain.Register(p10)

	names := []string{}
	for _, p := range chain.Providers() {
		names = append(names, p.Name())
	}
	assertEqual(t, len(names), 3, "providers")
	assertEqual(t, names[0]+","+names[1]+","+names[2], "one,five,ten", "order")

	got, err := chain.Lookup(context.Background(), Track{Name: "Song"})
	assertNoError(t, err)
	assertEqual(t, got.Lines[0].Text, "from one", "winner")
	assertEqual(t, p5.calls.Load(), int32(0), "priority 5 calls")
	assertEqual(t, p10.calls.Load(), int32(0), "priority 10 calls")
}

func TestLyricsChainFallsThrough(t *testing.T) {
	notFound := &fakeProvider{name: "missing", priority: 1, err: ErrLyricsNotFound}
	empty := &fakeProvider{name: "empty", priority: 2, lyrics: &Lyrics{}}
	broken := &fakeProvider{name: "broken", priority: 3, err: errors.New("parser exploded")}
	good := &fakeProvider{name: "good", priority: 4, lyrics: testLyrics("finally")}

	chain := &lyricsChain{}
	for _, p := range []*fakeProvider{good, broken, empty, notFound} {
		chain.Register(p)
	}

	got, err := chain.Lookup(context.Background(), Track{Name: "Song"})
	assertNoError(t, err)
	assertEqual(t, got.Lines[0].Text, "finally", "result")
	for _, p := range []*fakeProvider{notFound, empty, broken, good} {
		assertEqual(t, p.calls.Load(), int32(1), p.name+" calls")
	}
}

func TestLyricsChainSurvivesPanic(t *testing.T) {
	crashing := &fakeProvider{name: "crashing", priority: 1, panics: true}
	good := &fakeProvider{name: "good", priority: 2, lyrics: testLyrics("still here")}

	chain := &lyricsChain{}
	chain.Register(crashing)
	chain.Register(good)

	got, err := chain.Lookup(context.Background(), Track{Name: "Song"})
	assertNoError(t, err)
	assertEqual(t, got.Lines[0].Text, "still here", "result")
	assertEqual(t, crashing.calls.Load(), int32(1), "crashing calls")
	assertEqual(t, good.calls.Load(), int32(1), "good calls")

	// Alone, the crash leaves the chain with nothing
	solo := &lyricsChain{}
	solo.Register(&fakeProvider{name: "crashing", priority: 1, panics: true})
	_, err = solo.Lookup(context.Background(), Track{Name: "Song"})
	if !errors.Is(err, ErrLyricsNotFound) {
		t.Errorf("Expected ErrLyricsNotFound, got %v", err)
	}
}

func TestLyricsChainNoLyrics(t *testing.T) {
	chain := &lyricsChain{}
	chain.Register(&fakeProvider{name: "a", priority: 1, err: ErrLyricsNotFound})
	chain.Register(&fakeProvider{name: "b", priority: 2, err: errors.New("hard failure")})

	_, err := chain.Lookup(context.Background(), Track{Name: "Song"})
	if !errors.Is(err, ErrLyricsNotFound) {
		t.Errorf("Expected ErrLyricsNotFound, got %v", err)
	}
	if !isRecoverable(err) {
		t.Error("No lyrics is a normal outcome")
	}

	_, err = (&lyricsChain{}).Lookup(context.Background(), Track{Name: "Song"})
	if !errors.Is(err, ErrLyricsNotFound) {
		t.Errorf("Expected ErrLyricsNotFound from an empty chain, got %v", err)
	}
}

func TestLyricsChainCancellation(t *testing.T) {
	blocking := &fakeProvider{name: "slow", priority: 1, block: true}
	next := &fakeProvider{name: "next", priority: 2, lyrics: testLyrics("never")}

	chain := &lyricsChain{}
	chain.Register(blocking)
	chain.Register(next)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := chain.Lookup(ctx, Track{Name: "Song"})
		done <- err
	}()

	waitFor(t, time.Second, func() bool { return blocking.calls.Load() == 1 })
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Lookup did not return after cancellation")
	}
	assertEqual(t, next.calls.Load(), int32(0), "providers after cancellation")
}

func TestNormalizeLookup(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"Hello World", "hello world"},
		{"  Padded  ", "padded"},
		{"Caf\u00e9", "Cafe\u0301"}, // Precomposed vs combining accent
		{"STRASSE", "strasse"},
	}
	for _, tt := range tests {
		assertEqual(t, normalizeLookup(tt.a), normalizeLookup(tt.b), tt.a)
	}
}

func TestLyricsIdentity(t *testing.T) {
	assertEqual(t, lyricsIdentity(nil), "", "nil track")
	assertEqual(t, lyricsIdentity(&Track{Artist: "Someone"}), "", "no name")

	a := lyricsIdentity(&Track{Name: "Song", Artist: "Band", Album: "One"})
	b := lyricsIdentity(&Track{Name: "SONG", Artist: "band", Album: "Two", Position: time.Minute})
	assertEqual(t, a, b, "album and position are not part of the identity")

	if a == lyricsIdentity(&Track{Name: "Song", Artist: "Other Band"}) {
		t.Error("Expected the artist to be part of the identity")
	}
}

func TestNewLyricsChainFromConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.Lyrics.Providers = []string{"netease", "local", "lrclib"}
	cfg.Lyrics.LocalDir = "/lyrics"

	chain := newLyricsChain(cfg, http.DefaultClient, afero.NewMemMapFs())
	providers := chain.Providers()
	assertEqual(t, len(providers), 3, "providers")
	assertEqual(t, providers[0].Name(), "netease", "first")
	assertEqual(t, providers[1].Name(), "local", "second")
	assertEqual(t, providers[2].Name(), "lrclib", "third")
}
