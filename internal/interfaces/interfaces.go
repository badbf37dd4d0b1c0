// Package interfaces defines the contracts for the external collaborators:
// the streaming service that yields metadata and raw audio, and the encoder
// that turns raw audio into the requested output container.
package interfaces

import (
	"context"
	"io"

	"daytrip/internal/shared"
)

// StreamingService is the boundary to the remote streaming collaborator.
// Fallible calls report failures wrapped in *shared.RemoteError so the
// retry primitive can classify them as transient or permanent.
type StreamingService interface {
	// Login performs the interactive login flow and returns a renewable credential.
	Login(ctx context.Context) (*shared.Credential, error)

	// Validate probes whether a credential is still accepted by the service.
	// A rejected-but-reachable credential is (false, nil).
	Validate(ctx context.Context, cred *shared.Credential) (bool, error)

	// GetTrack fetches the descriptor for a single track or episode.
	GetTrack(ctx context.Context, kind shared.ItemKind, id string) (*shared.TrackDescriptor, error)

	// GetCollection fetches the flattened, order-preserving membership of an
	// album, playlist, or show. Members whose lookup failed permanently are
	// reported in Collection.Failed rather than aborting the whole fetch.
	GetCollection(ctx context.Context, kind shared.ItemKind, id string) (*shared.Collection, error)

	// OpenStream opens the raw audio stream for an item.
	OpenStream(ctx context.Context, id string) (io.ReadCloser, error)
}

// Encoder converts a raw audio stream into an encoded file at dest. The
// operation is potentially slow and must honor context cancellation.
type Encoder interface {
	Encode(ctx context.Context, audio io.Reader, format shared.OutputFormat, dest string) error
}
