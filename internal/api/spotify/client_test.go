package spotify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zmb3/spotify/v2"

	"daytrip/internal/shared"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"rate limited", spotify.Error{Status: http.StatusTooManyRequests}, true},
		{"server error", spotify.Error{Status: http.StatusBadGateway}, true},
		{"not found", spotify.Error{Status: http.StatusNotFound}, false},
		{"unauthorized", spotify.Error{Status: http.StatusUnauthorized}, false},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := classify("op", tt.err)
			var rerr *shared.RemoteError
			if !errors.As(wrapped, &rerr) {
				t.Fatalf("expected *shared.RemoteError, got %T", wrapped)
			}
			if rerr.Transient != tt.transient {
				t.Errorf("transient = %v, want %v", rerr.Transient, tt.transient)
			}
		})
	}
}

func TestOpenStreamServesCachedURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "audio bytes")
	}))
	defer server.Close()

	c := NewClient("id", "", false)
	c.storePreview("abc", server.URL)

	stream, err := c.OpenStream(context.Background(), "abc")
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	defer stream.Close()
	data, err := io.ReadAll(stream)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "audio bytes" {
		t.Errorf("got %q", data)
	}
}

func TestOpenStreamWithoutCachedURLFailsPermanently(t *testing.T) {
	c := NewClient("id", "", false)
	_, err := c.OpenStream(context.Background(), "never-fetched")
	if err == nil {
		t.Fatal("expected error")
	}
	if shared.IsTransient(err) {
		t.Error("missing stream url must not be retried")
	}
}

func TestOpenStreamClassifiesStatusCodes(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusForbidden, false},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		c := NewClient("id", "", false)
		c.storePreview("abc", server.URL)
		_, err := c.OpenStream(context.Background(), "abc")
		if err == nil {
			t.Fatalf("status %d: expected error", tt.status)
		}
		if shared.IsTransient(err) != tt.transient {
			t.Errorf("status %d: transient = %v, want %v", tt.status, shared.IsTransient(err), tt.transient)
		}
		server.Close()
	}
}

func TestStorePreviewIgnoresEmptyURL(t *testing.T) {
	c := NewClient("id", "", false)
	c.storePreview("abc", "")
	if got := c.previewFor("abc"); got != "" {
		t.Errorf("got %q", got)
	}
}
