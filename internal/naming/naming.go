// Package naming renders track file names from a format template and an
// optional cleanup filter.
package naming

import (
	"fmt"
	"regexp"
	"strings"

	"daytrip/internal/shared"
)

// FeatureTagPattern matches featured-artist tags like " (feat. Artist)" so
// they can be stripped from titles. The whole match is the capturing group.
var FeatureTagPattern = regexp.MustCompile(`( ?\((?:feat\.?|ft\.?|with) .+\))`)

// Format substitutes template placeholders from a track descriptor:
//
//	%a  main artist (artists[0])
//	%A  all artists joined with ", "
//	%t  track title
//	%n  track number, zero-padded to 2 digits, empty when absent
//
// Literal text passes through unchanged; a template with no placeholders is
// returned verbatim.
func Format(template string, track shared.TrackDescriptor) string {
	number := ""
	if track.TrackNumber > 0 {
		number = fmt.Sprintf("%02d", track.TrackNumber)
	}
	r := strings.NewReplacer(
		"%a", track.MainArtist(),
		"%A", strings.Join(track.Artists, ", "),
		"%t", track.Title,
		"%n", number,
	)
	return r.Replace(template)
}

// Cleanup removes every non-overlapping span matched by the first capturing
// group of pattern. A pattern without a capturing group removes nothing; this
// lets a filter target a tag inside surrounding context without discarding
// the context itself.
func Cleanup(name string, pattern *regexp.Regexp) string {
	if pattern == nil || pattern.NumSubexp() == 0 {
		return name
	}

	matches := pattern.FindAllStringSubmatchIndex(name, -1)
	if matches == nil {
		return name
	}

	var sb strings.Builder
	last := 0
	for _, m := range matches {
		// m[2], m[3] delimit the first capturing group
		if m[2] < 0 {
			continue
		}
		if m[2] > last {
			sb.WriteString(name[last:m[2]])
		}
		if m[3] > last {
			last = m[3]
		}
	}
	sb.WriteString(name[last:])
	return sb.String()
}

// FileName runs the full naming pipeline for a track: override or template,
// cleanup filters, filesystem sanitization, and the raw-id fallback for names
// that sanitize to nothing. The returned name carries the format's extension.
func FileName(track shared.TrackDescriptor, template string, cleanups []*regexp.Regexp, format shared.OutputFormat) string {
	name := track.NameOverride
	if name == "" {
		name = Format(template, track)
		for _, re := range cleanups {
			name = Cleanup(name, re)
		}
	}

	name = shared.SanitizeFileName(name)
	if name == "" {
		name = track.ID
	}
	return name + "." + format.Extension()
}

// FolderName renders a collection's folder the same way a track title is
// rendered: cleaned up and sanitized, falling back to the raw identifier.
func FolderName(title, fallbackID string, cleanups []*regexp.Regexp) string {
	name := title
	for _, re := range cleanups {
		name = Cleanup(name, re)
	}
	name = shared.SanitizeFileName(name)
	if name == "" {
		name = fallbackID
	}
	return name
}
