package main

import "context"

// lyricsFetcher keeps the displayed lyrics in step with the track
type lyricsFetcher struct {
	*fetcher[*Lyrics]
	chain *lyricsChain
}

func newLyricsFetcher(ctx context.Context, chain *lyricsChain) *lyricsFetcher {
	return &lyricsFetcher{
		fetcher: newFetcher[*Lyrics](ctx, "lyrics"),
		chain:   chain,
	}
}

// Sync restarts the lookup when the track's (name, artist) changes.
// A nil track settles into Idle.
func (l *lyricsFetcher) Sync(track *Track) bool {
	identity := lyricsIdentity(track)
	var snapshot Track
	if track != nil {
		snapshot = *track
	}
	return l.fetcher.Sync(identity, func(ctx context.Context) (*Lyrics, error) {
		return l.chain.Lookup(ctx, snapshot)
	})
}
