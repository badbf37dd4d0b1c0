// Package playlist implements the persisted, user-editable playlist format:
// a title plus an ordered list of track entries, where each entry is either a
// bare identifier string or an object carrying an optional name override.
package playlist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Entry references one track. ID holds a share link, URI, or bare id; Name,
// when present, overrides the formatter entirely for this entry.
type Entry struct {
	ID   string
	Name string
}

// entryObject is the long form of an Entry on disk.
type entryObject struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON accepts either a bare string or an {id, name} object.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		e.ID = id
		e.Name = ""
		return nil
	}

	var obj entryObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("track entry must be a string or an object with an id")
	}
	if obj.ID == "" {
		return fmt.Errorf("track entry object is missing an id")
	}
	e.ID = obj.ID
	e.Name = obj.Name
	return nil
}

// MarshalJSON writes the short string form unless a name override is set.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Name == "" {
		return json.Marshal(e.ID)
	}
	return json.Marshal(entryObject{ID: e.ID, Name: e.Name})
}

// Playlist is the persisted form. Track order is the intended download and
// track-number order.
type Playlist struct {
	Title  string  `json:"title"`
	Tracks []Entry `json:"tracks"`
}

// ParseError reports a structurally invalid playlist file. It is only
// returned once the file has been read, so its presence means the target was
// a real file that failed to parse, not a share link.
type ParseError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid playlist %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid playlist %s: %s", e.Path, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load parses a playlist file, preserving track order. Structural problems
// (missing title, empty tracks, malformed entries) surface as *ParseError;
// an unreadable path returns the underlying filesystem error.
func Load(path string) (*Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist file: %w", err)
	}

	var pl Playlist
	if err := json.Unmarshal(data, &pl); err != nil {
		return nil, &ParseError{Path: path, Reason: "not a valid playlist document", Err: err}
	}
	if pl.Title == "" {
		return nil, &ParseError{Path: path, Reason: "missing title"}
	}
	if len(pl.Tracks) == 0 {
		return nil, &ParseError{Path: path, Reason: "tracks list is empty"}
	}
	for i, entry := range pl.Tracks {
		if entry.ID == "" {
			return nil, &ParseError{Path: path, Reason: fmt.Sprintf("track entry %d is missing an id", i+1)}
		}
	}
	return &pl, nil
}

// Save serializes a playlist, overwriting the target file.
func Save(path string, pl *Playlist) error {
	data, err := json.MarshalIndent(pl, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal playlist: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create playlist directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write playlist file: %w", err)
	}
	return nil
}
