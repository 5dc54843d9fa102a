// Spotify API implementation of [Library] and [FeatureSource]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/desertthunder/moodmap/internal/models"
	"github.com/desertthunder/moodmap/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Scope requests read-only access to private and collaborative playlists.
	Scope = "playlist-read-private playlist-read-collaborative"

	// MaxFeatureIDs is the most ids a single audio-features request accepts here.
	MaxFeatureIDs = 50

	playlistPageSize = 50
	itemsPageSize    = 100
	itemFields       = "items(track(id,name,artists(name),album(name))),next,total"
)

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Tracks struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

// SpotifyPlaylistItem represents an entry of a playlist. Track is nil for removed or unavailable entries.
type SpotifyPlaylistItem struct {
	Track *SpotifyTrack `json:"track"`
}

// SpotifyTrack represents a Spotify track. ID is nil for local files.
type SpotifyTrack struct {
	ID      *string         `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	Album   SpotifyAlbum    `json:"album"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	Name string `json:"name"`
}

type audioFeaturesResponse struct {
	AudioFeatures []*models.AudioFeatures `json:"audio_features"`
}

type errorResponse struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is returned for non-2xx Spotify responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("spotify API error: status %d: %s", e.StatusCode, e.Message)
}

// Is matches [shared.ErrAPIRequest], and [shared.ErrTokenExpired] for 401 responses.
func (e *APIError) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrTokenExpired:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// SpotifyOpts tunes a [SpotifyService]. The zero value talks to the real Spotify endpoints.
type SpotifyOpts struct {
	BaseURL           string
	AuthURL           string
	TokenURL          string
	RequestsPerSecond float64      // 0 disables pacing
	HTTPClient        *http.Client // base client underneath the oauth2 transports
}

// SpotifyService implements [Library], [FeatureSource] and [OAuthService] against the Spotify Web API.
type SpotifyService struct {
	config         *oauth2.Config
	appConfig      *clientcredentials.Config
	token          *oauth2.Token
	httpClient     *http.Client
	appClient      *http.Client
	baseClient     *http.Client
	baseURL        string
	limiter        *rate.Limiter
	onTokenRefresh func(*oauth2.Token)
}

var (
	_ Library       = (*SpotifyService)(nil)
	_ FeatureSource = (*SpotifyService)(nil)
	_ OAuthService  = (*SpotifyService)(nil)
)

// NewSpotifyService creates a new Spotify service from explicit credentials.
func NewSpotifyService(creds shared.SpotifyConfig, opts SpotifyOpts) (*SpotifyService, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := creds.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.AuthURL == "" {
		opts.AuthURL = spotifyAuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}

	config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       strings.Fields(Scope),
		Endpoint: oauth2.Endpoint{
			AuthURL:   opts.AuthURL,
			TokenURL:  opts.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	appConfig := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     opts.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	s := &SpotifyService{
		config:     config,
		appConfig:  appConfig,
		baseClient: opts.HTTPClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
	}
	s.appClient = appConfig.Client(s.clientContext(context.Background()))

	if opts.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return s, nil
}

// clientContext carries the base HTTP client to the oauth2 transports.
func (s *SpotifyService) clientContext(ctx context.Context) context.Context {
	if s.baseClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, s.baseClient)
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig returns the authorization-code flow configuration.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// SetTokenRefreshCallback registers fn to be called whenever the user token changes.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

// Authenticate installs a user token. Expired tokens are refreshed on the next request.
func (s *SpotifyService) Authenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: no stored token, run 'moodmap auth' first", shared.ErrNotAuthenticated)
	}

	s.token = token
	source := &refreshableTokenSource{
		source:   s.config.TokenSource(s.clientContext(ctx), token),
		callback: s.tokenRefreshed,
		last:     token.AccessToken,
	}
	s.httpClient = oauth2.NewClient(s.clientContext(ctx), source)
	return nil
}

func (s *SpotifyService) tokenRefreshed(token *oauth2.Token) {
	s.token = token
	if s.onTokenRefresh != nil {
		s.onTokenRefresh(token)
	}
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and calls callback whenever the access token changes.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	mu       sync.Mutex
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}
	return token, nil
}

// resolve turns an endpoint path or an absolute cursor URL into a request URL.
// Absolute URLs must point below the configured base URL so tokens never leave the API host.
func (s *SpotifyService) resolve(endpoint string) (string, error) {
	if strings.HasPrefix(endpoint, "/") {
		return s.baseURL + endpoint, nil
	}
	if strings.HasPrefix(endpoint, s.baseURL+"/") {
		return endpoint, nil
	}
	return "", fmt.Errorf("%w: cursor %q is outside %s", shared.ErrInvalidArgument, endpoint, s.baseURL)
}

// doRequest performs a GET with client and decodes the JSON body into result.
func (s *SpotifyService) doRequest(ctx context.Context, client *http.Client, endpoint string, result any) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("request pacing: %w", err)
		}
	}

	target, err := s.resolve(endpoint)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		apiErr.Message = payload.Error.Message
	}
	return apiErr
}

// userRequest is doRequest with the authenticated user client.
func (s *SpotifyService) userRequest(ctx context.Context, endpoint string, result any) error {
	if s.httpClient == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}
	return s.doRequest(ctx, s.httpClient, endpoint, result)
}

// PlaylistsPage fetches one page of the current user's playlists.
func (s *SpotifyService) PlaylistsPage(ctx context.Context, cursor string) (*Page[SpotifySimplePlaylist], error) {
	endpoint := cursor
	if endpoint == "" {
		endpoint = fmt.Sprintf("/me/playlists?limit=%d", playlistPageSize)
	}

	var page Page[SpotifySimplePlaylist]
	if err := s.userRequest(ctx, endpoint, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// PlaylistItemsPage fetches one page of a playlist's items, restricted to the fields the flattener reads.
func (s *SpotifyService) PlaylistItemsPage(ctx context.Context, playlistID, cursor string) (*Page[SpotifyPlaylistItem], error) {
	endpoint := cursor
	if endpoint == "" {
		q := url.Values{}
		q.Set("fields", itemFields)
		q.Set("additional_types", "track")
		q.Set("limit", fmt.Sprint(itemsPageSize))
		endpoint = fmt.Sprintf("/playlists/%s/tracks?%s", url.PathEscape(playlistID), q.Encode())
	}

	var page Page[SpotifyPlaylistItem]
	if err := s.userRequest(ctx, endpoint, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AudioFeatures retrieves audio features for up to [MaxFeatureIDs] tracks using the app token.
func (s *SpotifyService) AudioFeatures(ctx context.Context, ids []string) ([]*models.AudioFeatures, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no track IDs provided", shared.ErrInvalidArgument)
	}
	if len(ids) > MaxFeatureIDs {
		return nil, fmt.Errorf("%w: maximum %d track IDs allowed, got %d", shared.ErrInvalidArgument, MaxFeatureIDs, len(ids))
	}

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))

	var response audioFeaturesResponse
	if err := s.doRequest(ctx, s.appClient, "/audio-features?"+q.Encode(), &response); err != nil {
		return nil, err
	}
	if len(response.AudioFeatures) != len(ids) {
		return nil, fmt.Errorf("%w: audio-features returned %d entries for %d ids",
			shared.ErrAPIRequest, len(response.AudioFeatures), len(ids))
	}
	return response.AudioFeatures, nil
}
