// Package resolver classifies user-supplied target strings as share links or
// native URIs. Matching is purely syntactic; no network access happens here.
package resolver

import (
	"fmt"
	"regexp"

	"daytrip/internal/shared"
)

var (
	// Share links look like https://open.spotify.com/track/<id>, possibly
	// with a locale segment and a sharing-token query string. The id stops
	// at the first non-base62 character, so any query suffix is ignored.
	shareLinkRe = regexp.MustCompile(`(?:open\.|play\.)?spotify\.com/(?:intl-[a-z]+(?:-[A-Za-z]+)?/)?([a-z]+)/([0-9A-Za-z]{22})`)

	uriRe = regexp.MustCompile(`^spotify:([a-z]+):([0-9A-Za-z]{22})$`)

	bareIDRe = regexp.MustCompile(`^[0-9A-Za-z]{22}$`)
)

// Resolve classifies input as a share link or native identifier. A bare
// base62 id is accepted and assumed to refer to a track. Unrecognized input
// fails with shared.ErrMalformedInput.
func Resolve(input string) (shared.Identifier, error) {
	if m := uriRe.FindStringSubmatch(input); m != nil {
		kind, ok := shared.ParseItemKind(m[1])
		if !ok {
			return shared.Identifier{}, fmt.Errorf("unknown item kind %q: %w", m[1], shared.ErrMalformedInput)
		}
		return shared.Identifier{Kind: kind, ID: m[2]}, nil
	}

	if m := shareLinkRe.FindStringSubmatch(input); m != nil {
		kind, ok := shared.ParseItemKind(m[1])
		if !ok {
			return shared.Identifier{}, fmt.Errorf("unknown item kind %q: %w", m[1], shared.ErrMalformedInput)
		}
		return shared.Identifier{Kind: kind, ID: m[2]}, nil
	}

	if bareIDRe.MatchString(input) {
		return shared.Identifier{Kind: shared.KindTrack, ID: input}, nil
	}

	return shared.Identifier{}, fmt.Errorf("%q: %w", input, shared.ErrMalformedInput)
}
