package naming

import (
	"regexp"
	"testing"

	"daytrip/internal/shared"
)

var sampleTrack = shared.TrackDescriptor{
	ID:      "4uLU6hMCjMI75M1A2tKUQC",
	Title:   "X",
	Artists: []string{"A", "B"},
}

func TestFormatPlaceholders(t *testing.T) {
	cases := []struct {
		template string
		track    shared.TrackDescriptor
		want     string
	}{
		{"%a - %t", sampleTrack, "A - X"},
		{"%A - %t", sampleTrack, "A, B - X"},
		{"%n. %t", shared.TrackDescriptor{Title: "X", TrackNumber: 3}, "03. X"},
		{"%n%t", shared.TrackDescriptor{Title: "X"}, "X"}, // no track number, %n is empty
		{"fixed name", sampleTrack, "fixed name"},
		{"", sampleTrack, ""},
		{"%t (%a)", sampleTrack, "X (A)"},
	}
	for _, c := range cases {
		if got := Format(c.template, c.track); got != c.want {
			t.Errorf("Format(%q) = %q, want %q", c.template, got, c.want)
		}
	}
}

func TestFormatNoArtists(t *testing.T) {
	if got := Format("%a - %t", shared.TrackDescriptor{Title: "X"}); got != " - X" {
		t.Errorf("got %q", got)
	}
}

func TestCleanupRemovesCaptureGroup(t *testing.T) {
	re := regexp.MustCompile(`( \(feat\. [^)]+\))`)
	got := Cleanup("Song Title (feat. Someone) - Live", re)
	if got != "Song Title - Live" {
		t.Errorf("got %q", got)
	}
}

func TestCleanupRemovesAllMatches(t *testing.T) {
	re := regexp.MustCompile(`(x+)`)
	if got := Cleanup("axbxxc", re); got != "abc" {
		t.Errorf("got %q", got)
	}
}

func TestCleanupGroupInsideContext(t *testing.T) {
	// Only the group's span is removed, not the whole match.
	re := regexp.MustCompile(`Title( - Remaster)ed`)
	if got := Cleanup("Title - Remastered", re); got != "Titleed" {
		t.Errorf("got %q", got)
	}
}

func TestCleanupWithoutGroupIsNoOp(t *testing.T) {
	re := regexp.MustCompile(`feat\. .+`)
	input := "Song (feat. Someone)"
	if got := Cleanup(input, re); got != input {
		t.Errorf("pattern without capturing group must not change input, got %q", got)
	}
}

func TestCleanupNilPattern(t *testing.T) {
	if got := Cleanup("unchanged", nil); got != "unchanged" {
		t.Errorf("got %q", got)
	}
}

func TestFeatureTagPattern(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Song (feat. Artist Name)", "Song"},
		{"Song (ft. Artist)", "Song"},
		{"Song (with Artist)", "Song"},
		{"Plain Song", "Plain Song"},
	}
	for _, c := range cases {
		if got := Cleanup(c.in, FeatureTagPattern); got != c.want {
			t.Errorf("Cleanup(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFileName(t *testing.T) {
	got := FileName(sampleTrack, "%a - %t", nil, shared.FormatOpus)
	if got != "A - X.opus" {
		t.Errorf("got %q", got)
	}
}

func TestFileNameOverrideBypassesFormatter(t *testing.T) {
	track := sampleTrack
	track.NameOverride = "My Custom Name"
	got := FileName(track, "%a - %t", []*regexp.Regexp{FeatureTagPattern}, shared.FormatMp3)
	if got != "My Custom Name.mp3" {
		t.Errorf("got %q", got)
	}
}

func TestFileNameSanitizesIllegalCharacters(t *testing.T) {
	track := shared.TrackDescriptor{ID: "id123", Title: `AC/DC: "Back"?`, Artists: []string{"AC/DC"}}
	got := FileName(track, "%t", nil, shared.FormatOgg)
	if got != `AC_DC_ _Back__.ogg` {
		t.Errorf("got %q", got)
	}
}

func TestFileNameEmptyFallsBackToID(t *testing.T) {
	track := shared.TrackDescriptor{ID: "id123", Title: " . "}
	got := FileName(track, "%t", nil, shared.FormatWav)
	if got != "id123.wav" {
		t.Errorf("got %q", got)
	}
}

func TestFileNameIllegalOnlyTitleSanitizes(t *testing.T) {
	// Illegal characters become underscores, which is non-empty, so no fallback.
	track := shared.TrackDescriptor{ID: "id123", Title: "???"}
	got := FileName(track, "%t", nil, shared.FormatWav)
	if got != "___.wav" {
		t.Errorf("got %q", got)
	}
}

func TestFolderName(t *testing.T) {
	if got := FolderName("My Playlist: Vol. 1", "fallback", nil); got != "My Playlist_ Vol. 1" {
		t.Errorf("got %q", got)
	}
	if got := FolderName("", "fallback", nil); got != "fallback" {
		t.Errorf("got %q", got)
	}
}
