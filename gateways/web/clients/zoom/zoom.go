package zoom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/briefly/backend/config/web"
	"github.com/briefly/backend/services/session/entity"
)

const (
	defaultAuthBase = "https://zoom.us"
	defaultAPIBase  = "https://api.zoom.us"

	startTimeLayout = "2006-01-02T15:04:05Z"
)

type Client struct {
	clientID     string
	clientSecret string
	redirectURI  string
	authBase     string
	apiBase      string
	httpClient   *http.Client
	log          *slog.Logger
}

func New(cfg *config.ZoomConfig) *Client {
	return newClient(cfg, defaultAuthBase, defaultAPIBase)
}

// newClient is split out so tests can point the client at a local server.
func newClient(cfg *config.ZoomConfig, authBase, apiBase string) *Client {
	log := slog.Default()
	log.Debug("creating zoom client",
		slog.String("auth_base", authBase),
		slog.Bool("client_id_set", cfg.ClientID != ""),
		slog.String("redirect_uri", cfg.RedirectURI))
	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		authBase:     authBase,
		apiBase:      apiBase,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		log:          log,
	}
}

// LoginURL builds the authorization-code URL the browser is sent to.
func (c *Client) LoginURL() string {
	return fmt.Sprintf("%s/oauth/authorize?response_type=code&client_id=%s&redirect_uri=%s",
		c.authBase, c.clientID, url.QueryEscape(c.redirectURI))
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// ExchangeCode swaps a one-time authorization code for a bearer token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	const op = "zoom.exchange_code"

	c.log.Info("exchanging authorization code for token")

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authBase+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("token exchange request failed", slog.String("error", err.Error()))
		return "", entity.NewTransportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.log.Error("token exchange rejected",
			slog.Int("status_code", resp.StatusCode),
			slog.String("body", string(body)))
		return "", entity.NewUpstreamError(op, resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", entity.NewAuthError(op, fmt.Errorf("token response has no access_token"))
	}

	c.log.Info("authorization code exchanged successfully")
	return token.AccessToken, nil
}

type listResponse struct {
	Meetings []struct {
		Topic       string `json:"topic"`
		DownloadURL string `json:"download_url"`
		StartTime   string `json:"start_time"`
		Duration    int    `json:"duration"`
	} `json:"meetings"`
	NextPageToken string `json:"next_page_token"`
}

// ListRecordings walks the paginated cloud recordings listing, following
// next_page_token until it comes back empty. On a mid-pagination failure
// the entries accumulated from earlier pages are returned together with
// the error, so an empty listing and a failed one stay distinguishable.
func (c *Client) ListRecordings(ctx context.Context, accessToken string) ([]entity.Recording, error) {
	const op = "zoom.list_recordings"

	c.log.Info("fetching cloud recordings")

	var recordings []entity.Recording
	pageToken := ""

	for {
		endpoint := c.apiBase + "/v2/users/me/recordings"
		if pageToken != "" {
			endpoint += "?page_token=" + url.QueryEscape(pageToken)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return recordings, fmt.Errorf("failed to create listing request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(accessToken))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Error("listing request failed", slog.String("error", err.Error()))
			return recordings, entity.NewTransportError(op, err)
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			c.log.Error("failed to fetch recordings",
				slog.Int("status_code", resp.StatusCode),
				slog.String("body", string(body)))
			if resp.StatusCode == http.StatusUnauthorized {
				return recordings, entity.NewAuthError(op, fmt.Errorf("listing rejected with status %d", resp.StatusCode))
			}
			return recordings, entity.NewUpstreamError(op, resp.StatusCode, string(body))
		}

		var page listResponse
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return recordings, fmt.Errorf("failed to decode listing response: %w", err)
		}

		for _, meeting := range page.Meetings {
			startTime, err := time.Parse(startTimeLayout, meeting.StartTime)
			if err != nil {
				c.log.Warn("unparseable start_time in listing entry",
					slog.String("start_time", meeting.StartTime),
					slog.String("topic", meeting.Topic))
			}
			recordings = append(recordings, entity.Recording{
				Topic:           meeting.Topic,
				DownloadURL:     meeting.DownloadURL,
				StartTime:       startTime,
				DurationMinutes: meeting.Duration,
			})
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
		c.log.Debug("following next page token", slog.Int("accumulated", len(recordings)))
	}

	c.log.Info("recordings fetched", slog.Int("count", len(recordings)))
	return recordings, nil
}
