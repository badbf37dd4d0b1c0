package metadata

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"daytrip/internal/playlist"
	"daytrip/internal/shared"
)

type fakeService struct {
	tracks     map[string]shared.TrackDescriptor
	collection *shared.Collection
	trackFails map[string]int // id -> remaining transient failures
	trackCalls int
	collCalls  int
}

func (f *fakeService) Login(ctx context.Context) (*shared.Credential, error) {
	return &shared.Credential{AccessToken: "t"}, nil
}

func (f *fakeService) Validate(ctx context.Context, cred *shared.Credential) (bool, error) {
	return true, nil
}

func (f *fakeService) GetTrack(ctx context.Context, kind shared.ItemKind, id string) (*shared.TrackDescriptor, error) {
	f.trackCalls++
	if n := f.trackFails[id]; n > 0 {
		f.trackFails[id] = n - 1
		return nil, &shared.RemoteError{Op: "get track", Transient: true, Err: errors.New("rate limited")}
	}
	track, ok := f.tracks[id]
	if !ok {
		return nil, &shared.RemoteError{Op: "get track", Transient: false, Err: errors.New("not found")}
	}
	return &track, nil
}

func (f *fakeService) GetCollection(ctx context.Context, kind shared.ItemKind, id string) (*shared.Collection, error) {
	f.collCalls++
	if f.collection == nil {
		return nil, &shared.RemoteError{Op: "get collection", Transient: false, Err: errors.New("not found")}
	}
	coll := *f.collection
	return &coll, nil
}

func (f *fakeService) OpenStream(ctx context.Context, id string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

const (
	idOne = "1aaaaaaaaaaaaaaaaaaaaa"
	idTwo = "2aaaaaaaaaaaaaaaaaaaaa"
)

func TestFetchSingleTrack(t *testing.T) {
	svc := &fakeService{tracks: map[string]shared.TrackDescriptor{
		idOne: {ID: idOne, Title: "Solo", Artists: []string{"A"}},
	}}
	f := NewFetcher(svc, 3, false)
	f.initialDelay, f.maxDelay = time.Millisecond, 2*time.Millisecond

	coll, err := f.Fetch(context.Background(), shared.Identifier{Kind: shared.KindTrack, ID: idOne})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(coll.Tracks) != 1 || coll.Tracks[0].Title != "Solo" {
		t.Errorf("got %+v", coll.Tracks)
	}
	if coll.Title != "" {
		t.Errorf("single track must not carry a container title, got %q", coll.Title)
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	svc := &fakeService{
		tracks:     map[string]shared.TrackDescriptor{idOne: {ID: idOne, Title: "Solo"}},
		trackFails: map[string]int{idOne: 2},
	}
	f := NewFetcher(svc, 3, false)
	f.initialDelay, f.maxDelay = time.Millisecond, 2*time.Millisecond

	if _, err := f.Fetch(context.Background(), shared.Identifier{Kind: shared.KindTrack, ID: idOne}); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if svc.trackCalls != 3 {
		t.Errorf("expected 3 calls, got %d", svc.trackCalls)
	}
}

func TestFetchExhaustedRetriesSurfaceFetchError(t *testing.T) {
	svc := &fakeService{
		tracks:     map[string]shared.TrackDescriptor{idOne: {ID: idOne}},
		trackFails: map[string]int{idOne: 5},
	}
	f := NewFetcher(svc, 2, false)
	f.initialDelay, f.maxDelay = time.Millisecond, 2*time.Millisecond

	_, err := f.Fetch(context.Background(), shared.Identifier{Kind: shared.KindTrack, ID: idOne})
	var ferr *shared.FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected *shared.FetchError, got %v", err)
	}
	if svc.trackCalls != 2 {
		t.Errorf("expected 2 calls, got %d", svc.trackCalls)
	}
}

func TestFetchPermanentFailureDoesNotRetry(t *testing.T) {
	svc := &fakeService{}
	f := NewFetcher(svc, 5, false)
	f.initialDelay, f.maxDelay = time.Millisecond, 2*time.Millisecond

	_, err := f.Fetch(context.Background(), shared.Identifier{Kind: shared.KindTrack, ID: idOne})
	if err == nil {
		t.Fatal("expected error")
	}
	if svc.trackCalls != 1 {
		t.Errorf("expected 1 call, got %d", svc.trackCalls)
	}
}

func TestFetchCollectionNumbersAndTitlesMembers(t *testing.T) {
	svc := &fakeService{collection: &shared.Collection{
		Title: "Best Of",
		Tracks: []shared.TrackDescriptor{
			{ID: idOne, Title: "First"},
			{ID: idTwo, Title: "Second"},
		},
	}}
	f := NewFetcher(svc, 3, false)
	f.initialDelay, f.maxDelay = time.Millisecond, 2*time.Millisecond

	coll, err := f.Fetch(context.Background(), shared.Identifier{Kind: shared.KindAlbum, ID: idOne})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	for i, track := range coll.Tracks {
		if track.TrackNumber != i+1 {
			t.Errorf("track %d number = %d", i, track.TrackNumber)
		}
		if track.ContainerTitle != "Best Of" {
			t.Errorf("track %d container = %q", i, track.ContainerTitle)
		}
	}
}

func TestFetchPlaylistOverridesAndFailures(t *testing.T) {
	svc := &fakeService{tracks: map[string]shared.TrackDescriptor{
		idOne: {ID: idOne, Title: "Known"},
	}}
	f := NewFetcher(svc, 2, false)
	f.initialDelay, f.maxDelay = time.Millisecond, 2*time.Millisecond

	pl := &playlist.Playlist{
		Title: "My Mix",
		Tracks: []playlist.Entry{
			{ID: "spotify:track:" + idOne, Name: "Custom Name"},
			{ID: "spotify:track:" + idTwo},  // unknown on the remote side
			{ID: "definitely not a target"}, // unresolvable
			{ID: "spotify:album:" + idOne},  // wrong kind for an entry
		},
	}

	coll, err := f.FetchPlaylist(context.Background(), pl)
	if err != nil {
		t.Fatalf("FetchPlaylist failed: %v", err)
	}
	if len(coll.Tracks) != 1 {
		t.Fatalf("expected 1 resolved track, got %d", len(coll.Tracks))
	}
	got := coll.Tracks[0]
	if got.NameOverride != "Custom Name" {
		t.Errorf("name override not applied: %+v", got)
	}
	if got.TrackNumber != 1 || got.ContainerTitle != "My Mix" {
		t.Errorf("position/container not applied: %+v", got)
	}
	if len(coll.Failed) != 3 {
		t.Errorf("expected 3 failed entries, got %d: %+v", len(coll.Failed), coll.Failed)
	}
}
