// Package spotify binds the streaming service contract to the Spotify Web
// API: OAuth login through a loopback redirect, metadata lookups with
// pagination, and audio streaming from the preview endpoints cached during
// the metadata fetch.
package spotify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"daytrip/internal/config"
	"daytrip/internal/shared"
)

const (
	loginAddr    = "127.0.0.1:5907"
	redirectURL  = "http://127.0.0.1:5907/login"
	loginTimeout = 5 * time.Minute

	// One request every 200ms keeps well under the documented rate limits.
	requestInterval = 200 * time.Millisecond
)

// Client implements interfaces.StreamingService against the Spotify Web API.
// API calls require a prior Login or a successful Validate.
type Client struct {
	auth    *spotifyauth.Authenticator
	client  *spotify.Client
	http    *http.Client
	limiter *rate.Limiter
	debug   bool

	mu       sync.Mutex
	previews map[string]string // item id -> audio stream url
}

// NewClient creates an unauthenticated client.
func NewClient(clientID, clientSecret string, debug bool) *Client {
	opts := []spotifyauth.AuthenticatorOption{
		spotifyauth.WithRedirectURL(redirectURL),
		spotifyauth.WithClientID(clientID),
		spotifyauth.WithScopes(spotifyauth.ScopeUserReadPrivate, spotifyauth.ScopeStreaming),
	}
	if clientSecret != "" {
		opts = append(opts, spotifyauth.WithClientSecret(clientSecret))
	}
	return &Client{
		auth:     spotifyauth.New(opts...),
		http:     &http.Client{Timeout: config.RequestTimeout},
		limiter:  rate.NewLimiter(rate.Every(requestInterval), 1),
		debug:    debug,
		previews: make(map[string]string),
	}
}

// Login runs the interactive browser login: it serves the OAuth redirect on a
// loopback port, points the user's browser at the authorization URL, and
// waits for the callback. It fails with *shared.AuthError after five minutes
// without a callback.
func (c *Client) Login(ctx context.Context) (*shared.Credential, error) {
	state, err := randomState()
	if err != nil {
		return nil, &shared.AuthError{Reason: "failed to generate login state", Err: err}
	}

	tokenChan := make(chan *oauth2.Token, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		token, err := c.auth.Token(r.Context(), state, r)
		if err != nil {
			http.Error(w, "Login failed, check the terminal.", http.StatusForbidden)
			errChan <- err
			return
		}
		fmt.Fprintln(w, "Login complete. You can close this tab and return to the terminal.")
		tokenChan <- token
	})

	server := &http.Server{Addr: loginAddr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	defer server.Close()

	authURL := c.auth.AuthURL(state)
	shared.ColorPrompt.Println("🔑 Opening your browser to log in. If nothing happens, open this URL yourself:")
	fmt.Println(authURL)
	openBrowser(authURL)

	select {
	case token := <-tokenChan:
		c.client = spotify.New(c.auth.Client(ctx, token))
		shared.ColorSuccess.Println("✅ Logged in")
		return &shared.Credential{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			Expiry:       token.Expiry,
		}, nil
	case err := <-errChan:
		return nil, &shared.AuthError{Reason: "browser login failed", Err: err}
	case <-time.After(loginTimeout):
		return nil, &shared.AuthError{Reason: "login timed out waiting for the browser callback"}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Validate probes the credential against the profile endpoint. A rejected
// credential reports (false, nil); on success the client is left
// authenticated with it.
func (c *Client) Validate(ctx context.Context, cred *shared.Credential) (bool, error) {
	token := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.Expiry,
		TokenType:    "Bearer",
	}
	client := spotify.New(c.auth.Client(ctx, token))

	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}
	if _, err := client.CurrentUser(ctx); err != nil {
		var serr spotify.Error
		if errors.As(err, &serr) && (serr.Status == http.StatusUnauthorized || serr.Status == http.StatusForbidden) {
			return false, nil
		}
		return false, classify("validate credential", err)
	}
	c.client = client
	return true, nil
}

// GetTrack fetches a single track or episode descriptor and caches its
// stream url for OpenStream.
func (c *Client) GetTrack(ctx context.Context, kind shared.ItemKind, id string) (*shared.TrackDescriptor, error) {
	api, err := c.api()
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	switch kind {
	case shared.KindTrack:
		track, err := api.GetTrack(ctx, spotify.ID(id))
		if err != nil {
			return nil, classify("get track", err)
		}
		c.storePreview(id, track.PreviewURL)
		return &shared.TrackDescriptor{
			ID:      id,
			Kind:    shared.KindTrack,
			Title:   track.Name,
			Artists: artistNames(track.Artists),
		}, nil

	case shared.KindEpisode:
		episode, err := api.GetEpisode(ctx, id)
		if err != nil {
			return nil, classify("get episode", err)
		}
		c.storePreview(id, episode.AudioPreviewURL)
		return &shared.TrackDescriptor{
			ID:      id,
			Kind:    shared.KindEpisode,
			Title:   episode.Name,
			Artists: []string{episode.Show.Publisher},
		}, nil

	default:
		return nil, &shared.RemoteError{
			Op:  "get track",
			Err: fmt.Errorf("%s is not a single-item kind", kind),
		}
	}
}

// GetCollection fetches the full, order-preserving membership of an album,
// playlist, or show, following pagination. Members the service reports as
// unavailable land in Collection.Failed instead of aborting the fetch.
func (c *Client) GetCollection(ctx context.Context, kind shared.ItemKind, id string) (*shared.Collection, error) {
	api, err := c.api()
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	switch kind {
	case shared.KindAlbum:
		return c.getAlbum(ctx, api, id)
	case shared.KindPlaylist:
		return c.getPlaylist(ctx, api, id)
	case shared.KindShow:
		return c.getShow(ctx, api, id)
	default:
		return nil, &shared.RemoteError{
			Op:  "get collection",
			Err: fmt.Errorf("%s is not a collection kind", kind),
		}
	}
}

func (c *Client) getAlbum(ctx context.Context, api *spotify.Client, id string) (*shared.Collection, error) {
	album, err := api.GetAlbum(ctx, spotify.ID(id))
	if err != nil {
		return nil, classify("get album", err)
	}

	coll := &shared.Collection{ID: id, Title: album.Name}
	page := album.Tracks
	for {
		for _, track := range page.Tracks {
			c.storePreview(track.ID.String(), track.PreviewURL)
			coll.Tracks = append(coll.Tracks, shared.TrackDescriptor{
				ID:      track.ID.String(),
				Kind:    shared.KindTrack,
				Title:   track.Name,
				Artists: artistNames(track.Artists),
			})
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		if err := api.NextPage(ctx, &page); err == spotify.ErrNoMorePages {
			break
		} else if err != nil {
			return nil, classify("get album tracks", err)
		}
	}
	return coll, nil
}

func (c *Client) getPlaylist(ctx context.Context, api *spotify.Client, id string) (*shared.Collection, error) {
	playlist, err := api.GetPlaylist(ctx, spotify.ID(id))
	if err != nil {
		return nil, classify("get playlist", err)
	}

	coll := &shared.Collection{ID: id, Title: playlist.Name}
	page := playlist.Tracks
	for {
		for _, item := range page.Tracks {
			track := item.Track
			if track.ID == "" {
				// Removed or region-locked entries come back hollow.
				position := len(coll.Tracks) + len(coll.Failed) + 1
				coll.Failed = append(coll.Failed, shared.TrackError{
					Title: fmt.Sprintf("%s item %d", playlist.Name, position),
					Err:   errors.New("item no longer available"),
				})
				continue
			}
			c.storePreview(track.ID.String(), track.PreviewURL)
			coll.Tracks = append(coll.Tracks, shared.TrackDescriptor{
				ID:      track.ID.String(),
				Kind:    shared.KindTrack,
				Title:   track.Name,
				Artists: artistNames(track.Artists),
			})
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		if err := api.NextPage(ctx, &page); err == spotify.ErrNoMorePages {
			break
		} else if err != nil {
			return nil, classify("get playlist tracks", err)
		}
	}
	return coll, nil
}

func (c *Client) getShow(ctx context.Context, api *spotify.Client, id string) (*shared.Collection, error) {
	show, err := api.GetShow(ctx, spotify.ID(id))
	if err != nil {
		return nil, classify("get show", err)
	}

	coll := &shared.Collection{ID: id, Title: show.Name}
	page := show.Episodes
	for {
		for _, episode := range page.Episodes {
			c.storePreview(episode.ID.String(), episode.AudioPreviewURL)
			coll.Tracks = append(coll.Tracks, shared.TrackDescriptor{
				ID:      episode.ID.String(),
				Kind:    shared.KindEpisode,
				Title:   episode.Name,
				Artists: []string{show.Publisher},
			})
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		if err := api.NextPage(ctx, &page); err == spotify.ErrNoMorePages {
			break
		} else if err != nil {
			return nil, classify("get show episodes", err)
		}
	}
	return coll, nil
}

// OpenStream opens the raw audio stream for an item whose metadata was
// fetched earlier in the run. Items without a stream url fail permanently.
func (c *Client) OpenStream(ctx context.Context, id string) (io.ReadCloser, error) {
	streamURL := c.previewFor(id)
	if streamURL == "" {
		return nil, &shared.RemoteError{
			Op:  "open stream",
			Err: fmt.Errorf("no audio stream available for %s", id),
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	shared.DebugPrint(c.debug, "streaming %s from %s", id, streamURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, &shared.RemoteError{Op: "open stream", Err: err}
	}
	req.Header.Set("User-Agent", config.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify("open stream", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &shared.RemoteError{
			Op:        "open stream",
			Transient: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
			Err:       fmt.Errorf("unexpected status %s", resp.Status),
		}
	}
	return resp.Body, nil
}

func (c *Client) api() (*spotify.Client, error) {
	if c.client == nil {
		return nil, &shared.AuthError{Reason: "not logged in"}
	}
	return c.client, nil
}

func (c *Client) storePreview(id, url string) {
	if url == "" {
		return
	}
	c.mu.Lock()
	c.previews[id] = url
	c.mu.Unlock()
}

func (c *Client) previewFor(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previews[id]
}

// classify wraps an API failure so the retry primitive can tell transient
// failures (throttling, server errors, network) from permanent ones.
func classify(op string, err error) error {
	var serr spotify.Error
	if errors.As(err, &serr) {
		transient := serr.Status == http.StatusTooManyRequests || serr.Status >= 500
		return &shared.RemoteError{Op: op, Transient: transient, Err: err}
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return &shared.RemoteError{Op: op, Transient: true, Err: err}
	}
	return &shared.RemoteError{Op: op, Err: err}
}

func artistNames(artists []spotify.SimpleArtist) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return names
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// openBrowser is best effort; the auth url is always printed as well.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
