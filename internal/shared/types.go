package shared

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ItemKind classifies a remote item reference.
type ItemKind string

const (
	KindTrack    ItemKind = "track"
	KindAlbum    ItemKind = "album"
	KindPlaylist ItemKind = "playlist"
	KindEpisode  ItemKind = "episode"
	KindShow     ItemKind = "show"
)

// ParseItemKind maps the textual kind from a share link or URI to an ItemKind.
func ParseItemKind(s string) (ItemKind, bool) {
	switch ItemKind(strings.ToLower(s)) {
	case KindTrack, KindAlbum, KindPlaylist, KindEpisode, KindShow:
		return ItemKind(strings.ToLower(s)), true
	}
	return "", false
}

// IsCollection reports whether the kind refers to an ordered group of items.
func (k ItemKind) IsCollection() bool {
	return k == KindAlbum || k == KindPlaylist || k == KindShow
}

// Identifier is a classified reference to a remote item.
type Identifier struct {
	Kind ItemKind
	ID   string
}

// URI renders the identifier in its native URI form.
func (i Identifier) URI() string {
	return fmt.Sprintf("spotify:%s:%s", i.Kind, i.ID)
}

// OutputFormat is the encoded audio container written to disk.
type OutputFormat string

const (
	FormatOpus OutputFormat = "opus"
	FormatWav  OutputFormat = "wav"
	FormatOgg  OutputFormat = "ogg"
	FormatMp3  OutputFormat = "mp3"
)

// ParseOutputFormat validates a format name (or file extension).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimPrefix(s, "."))) {
	case FormatOpus:
		return FormatOpus, nil
	case FormatWav:
		return FormatWav, nil
	case FormatOgg:
		return FormatOgg, nil
	case FormatMp3:
		return FormatMp3, nil
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// Extension returns the file extension for the format, without the dot.
func (f OutputFormat) Extension() string {
	return string(f)
}

// TrackDescriptor is the resolved, immutable description of a single
// downloadable item. Artists ordering is significant: index 0 is the main
// artist.
type TrackDescriptor struct {
	ID             string
	Kind           ItemKind
	Title          string
	Artists        []string
	TrackNumber    int    // 1-based, 0 when absent
	ContainerTitle string // album/playlist/show name, empty for bare tracks
	NameOverride   string // user-supplied file name, bypasses the formatter
}

// MainArtist returns the primary artist, or an empty string.
func (t TrackDescriptor) MainArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// Collection is an ordered group of tracks/episodes sharing a container title.
// A single track resolves to a Collection with one member and no title.
type Collection struct {
	ID     string
	Title  string
	Tracks []TrackDescriptor
	Failed []TrackError // members whose lookup failed permanently
}

// Credential is the opaque authentication state shared read-only by all jobs.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// Expired reports whether the credential is past its expiry time, with a
// minute of slack so a token does not lapse mid-run.
func (c *Credential) Expired() bool {
	if c.Expiry.IsZero() {
		return false
	}
	return time.Now().Add(time.Minute).After(c.Expiry)
}

// Download statistics
type DownloadStats struct {
	SuccessCount int
	SkippedCount int
	FailedCount  int
	FailedItems  []string
}

// TrackError holds information about a failed track download or lookup
type TrackError struct {
	Title string
	Err   error
}

// ErrMalformedInput is returned when a target string is neither a playlist
// file, a share link, nor a native URI.
var ErrMalformedInput = errors.New("target is not a recognized share link, URI, or playlist file")

// ErrDownloadCancelled is returned when the run is cancelled before all jobs finish.
var ErrDownloadCancelled = errors.New("download cancelled")

// AuthError indicates the interactive login flow failed, was cancelled, or
// timed out. No jobs can proceed without a credential.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// FetchError indicates metadata retrieval exhausted its retries or was
// rejected permanently.
type FetchError struct {
	ID  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch metadata for %s: %v", e.ID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DownloadError indicates a single job's stream or encode step failed
// terminally. It never affects sibling jobs.
type DownloadError struct {
	Track string
	Err   error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download %s: %v", e.Track, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }
