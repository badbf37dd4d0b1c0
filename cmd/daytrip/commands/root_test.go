package commands

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"daytrip/internal/config"
	"daytrip/internal/playlist"
	"daytrip/internal/shared"
)

func TestResolveTargetPrefersPlaylistFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mix.json")
	content := `{"title": "Mix", "tracks": ["spotify:track:4uLU6hMCjMI75M1A2tKUQC"]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	pl, _, err := resolveTarget(path)
	if err != nil {
		t.Fatalf("resolveTarget failed: %v", err)
	}
	if pl == nil || pl.Title != "Mix" {
		t.Errorf("playlist not loaded: %+v", pl)
	}
}

func TestResolveTargetCorruptPlaylistAborts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mix.json")
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}

	_, _, err := resolveTarget(path)
	var perr *playlist.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("corrupt playlist file must not fall through to the resolver, got %v", err)
	}
}

func TestResolveTargetFallsBackToResolver(t *testing.T) {
	_, ident, err := resolveTarget("spotify:album:4uLU6hMCjMI75M1A2tKUQC")
	if err != nil {
		t.Fatalf("resolveTarget failed: %v", err)
	}
	if ident.Kind != shared.KindAlbum || ident.ID != "4uLU6hMCjMI75M1A2tKUQC" {
		t.Errorf("got %+v", ident)
	}
}

func TestResolveTargetMalformedInput(t *testing.T) {
	_, _, err := resolveTarget("definitely not a target")
	if !errors.Is(err, shared.ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
}

func TestCompileCleanups(t *testing.T) {
	cmd := NewRootCommand("test")
	if err := cmd.Flags().Set("cleanup-regex", `( - Remaster(?:ed)?(?: \d{4})?)`); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("remove-feature-tags", "true"); err != nil {
		t.Fatal(err)
	}

	cleanups, err := compileCleanups(cmd, config.DefaultConfig())
	if err != nil {
		t.Fatalf("compileCleanups failed: %v", err)
	}
	if len(cleanups) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(cleanups))
	}
}

func TestCompileCleanupsRejectsBadRegex(t *testing.T) {
	cmd := NewRootCommand("test")
	if err := cmd.Flags().Set("cleanup-regex", "(unclosed"); err != nil {
		t.Fatal(err)
	}
	if _, err := compileCleanups(cmd, config.DefaultConfig()); err == nil {
		t.Fatal("expected error for invalid regex")
	}
}
