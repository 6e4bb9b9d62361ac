// Package fetch talks to the provider's guide API. It implements
// domain.ScheduleFetcher: one HTTP query per calendar day, behind a device
// pairing session that is established lazily on the first fetch.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"primaguide/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://guide-api.iprima.cz"

// wireTimeLayout is the timestamp format the provider uses for programme
// start and stop times.
const wireTimeLayout = "20060102150405 -0700"

// Client implements domain.ScheduleFetcher against the provider HTTP API.
// The session token is an explicit field, created on first use; there is
// no hidden global login state.
type Client struct {
	baseURL     string
	email       string
	password    string
	deviceID    string
	accessToken string
	httpClient  *http.Client
	log         *logrus.Logger
}

// NewClient creates a Client. An empty baseURL selects the production API.
func NewClient(baseURL, email, password string, log *logrus.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:  baseURL,
		email:    email,
		password: password,
		// Fresh device id per client; the provider pairs the session to it.
		deviceID: uuid.NewString(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// ensureSession pairs the device with the provider and stores the access
// token. The token is kept for the lifetime of the client, which covers a
// whole grabber run.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.accessToken != "" {
		return nil
	}
	if c.email == "" || c.password == "" {
		return domain.ErrMissingCredentials
	}

	form := url.Values{}
	form.Set("email", c.email)
	form.Set("password", c.password)
	form.Set("device_id", c.deviceID)
	form.Set("device_name", "primaguide")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/pairing", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create pairing request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute pairing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: pairing returned status %d: %s",
			domain.ErrRemoteUnavailable, resp.StatusCode, string(body))
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: failed to decode pairing response: %v", domain.ErrMalformedResponse, err)
	}
	if result.AccessToken == "" {
		return fmt.Errorf("%w: pairing returned no access token", domain.ErrMalformedResponse)
	}

	c.accessToken = result.AccessToken
	c.log.Debug("Paired with provider")
	return nil
}

// FetchDay returns the provider's listing for one calendar day. A response
// without any programmes is a normal result; transport failures, non-OK
// statuses, error payloads and malformed bodies are errors.
func (c *Client) FetchDay(ctx context.Context, day domain.Day, opts domain.FetchOptions) (*domain.DayGuide, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/guide", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create guide request: %w", err)
	}

	params := req.URL.Query()
	params.Set("date", day.Format())
	if opts.Detail != "" {
		params.Set("detail", opts.Detail)
	}
	if opts.Duration > 0 {
		params.Set("min_duration", strconv.Itoa(opts.Duration))
	}
	if len(opts.Channels) > 0 {
		params.Set("channels", strings.Join(opts.Channels, ","))
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute guide request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: guide request returned status %d: %s",
			domain.ErrRemoteUnavailable, resp.StatusCode, string(body))
	}

	var result struct {
		Error    string `json:"error"`
		Channels map[string][]struct {
			EventID     string `json:"event_id"`
			Title       string `json:"title"`
			Description string `json:"description"`
			Start       string `json:"start"`
			Stop        string `json:"stop"`
		} `json:"channels"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode guide response: %v", domain.ErrMalformedResponse, err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrRemoteRejected, result.Error)
	}

	guide := &domain.DayGuide{
		Channels: make(map[string]domain.Channel, len(result.Channels)),
	}
	for channelID, entries := range result.Channels {
		guide.Channels[channelID] = domain.NewChannel(channelID)

		for _, raw := range entries {
			start, err := time.Parse(wireTimeLayout, raw.Start)
			if err != nil {
				return nil, fmt.Errorf("%w: bad start time %q for event %s: %v",
					domain.ErrMalformedResponse, raw.Start, raw.EventID, err)
			}
			stop, err := time.Parse(wireTimeLayout, raw.Stop)
			if err != nil {
				return nil, fmt.Errorf("%w: bad stop time %q for event %s: %v",
					domain.ErrMalformedResponse, raw.Stop, raw.EventID, err)
			}

			guide.Programmes = append(guide.Programmes, domain.ProgrammeEntry{
				EventID:     raw.EventID,
				Channel:     channelID,
				Title:       raw.Title,
				Description: raw.Description,
				Start:       start,
				Stop:        stop,
			})
		}
	}

	c.log.WithFields(logrus.Fields{
		"day":        day.String(),
		"channels":   len(guide.Channels),
		"programmes": len(guide.Programmes),
	}).Debug("Fetched day guide")

	return guide, nil
}
