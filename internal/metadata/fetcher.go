// Package metadata turns resolved identifiers into concrete track
// descriptors, retrying transient remote failures.
package metadata

import (
	"context"
	"fmt"
	"time"

	"daytrip/internal/interfaces"
	"daytrip/internal/playlist"
	"daytrip/internal/resolver"
	"daytrip/internal/shared"
)

const (
	initialRetryDelay = 1 * time.Second
	maxRetryDelay     = 30 * time.Second
)

// Fetcher resolves identifiers to track descriptors through the streaming
// collaborator.
type Fetcher struct {
	svc          interfaces.StreamingService
	maxTries     int
	initialDelay time.Duration
	maxDelay     time.Duration
	debug        bool
}

// NewFetcher creates a Fetcher with the given retry budget.
func NewFetcher(svc interfaces.StreamingService, maxTries int, debug bool) *Fetcher {
	return &Fetcher{
		svc:          svc,
		maxTries:     maxTries,
		initialDelay: initialRetryDelay,
		maxDelay:     maxRetryDelay,
		debug:        debug,
	}
}

// Fetch returns the descriptors for an identifier: a single-element
// collection for tracks and episodes, or the flattened membership for
// albums, playlists, and shows, with 1-based track numbers and the
// container's display title.
func (f *Fetcher) Fetch(ctx context.Context, ident shared.Identifier) (*shared.Collection, error) {
	if ident.Kind.IsCollection() {
		return f.fetchCollection(ctx, ident)
	}

	var track *shared.TrackDescriptor
	_, err := shared.RetryWithBackoff(ctx, f.maxTries, f.initialDelay, f.maxDelay, func() error {
		var err error
		track, err = f.svc.GetTrack(ctx, ident.Kind, ident.ID)
		return err
	})
	if err != nil {
		return nil, &shared.FetchError{ID: ident.URI(), Err: err}
	}
	return &shared.Collection{ID: ident.ID, Tracks: []shared.TrackDescriptor{*track}}, nil
}

func (f *Fetcher) fetchCollection(ctx context.Context, ident shared.Identifier) (*shared.Collection, error) {
	var coll *shared.Collection
	_, err := shared.RetryWithBackoff(ctx, f.maxTries, f.initialDelay, f.maxDelay, func() error {
		var err error
		coll, err = f.svc.GetCollection(ctx, ident.Kind, ident.ID)
		return err
	})
	if err != nil {
		return nil, &shared.FetchError{ID: ident.URI(), Err: err}
	}

	shared.DebugPrint(f.debug, "collection %s resolved to %d tracks (%d unavailable)",
		ident.URI(), len(coll.Tracks), len(coll.Failed))

	numbered := make([]shared.TrackDescriptor, len(coll.Tracks))
	for i, track := range coll.Tracks {
		track.TrackNumber = i + 1
		track.ContainerTitle = coll.Title
		numbered[i] = track
	}
	coll.Tracks = numbered
	coll.ID = ident.ID
	return coll, nil
}

// FetchPlaylist resolves every entry of a local playlist file. Entries keep
// file order; an entry's name override bypasses the formatter downstream.
// Entries that fail to resolve or fetch are collected in Collection.Failed
// and do not abort their siblings.
func (f *Fetcher) FetchPlaylist(ctx context.Context, pl *playlist.Playlist) (*shared.Collection, error) {
	coll := &shared.Collection{Title: pl.Title}

	for i, entry := range pl.Tracks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ident, err := resolver.Resolve(entry.ID)
		if err != nil {
			coll.Failed = append(coll.Failed, shared.TrackError{Title: entry.ID, Err: err})
			continue
		}
		if ident.Kind.IsCollection() {
			err := fmt.Errorf("playlist entries must reference tracks or episodes, not %s", ident.Kind)
			coll.Failed = append(coll.Failed, shared.TrackError{Title: entry.ID, Err: err})
			continue
		}

		var track *shared.TrackDescriptor
		_, err = shared.RetryWithBackoff(ctx, f.maxTries, f.initialDelay, f.maxDelay, func() error {
			var err error
			track, err = f.svc.GetTrack(ctx, ident.Kind, ident.ID)
			return err
		})
		if err != nil {
			coll.Failed = append(coll.Failed, shared.TrackError{Title: entry.ID, Err: &shared.FetchError{ID: ident.URI(), Err: err}})
			continue
		}

		track.TrackNumber = i + 1
		track.ContainerTitle = pl.Title
		track.NameOverride = entry.Name
		coll.Tracks = append(coll.Tracks, *track)
	}

	return coll, nil
}
