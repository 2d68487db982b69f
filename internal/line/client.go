package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"myloop/internal/config"

	"github.com/rs/zerolog"
)

const pushEndpoint = "https://api.line.me/v2/bot/message/push"

// Sender delivers one text message to a LINE user. The core performs no
// retries; a returned error is recorded by the caller.
type Sender interface {
	Push(ctx context.Context, lineUserID, text string) error
}

// Client calls the LINE Messaging API.
type Client struct {
	accessToken string
	httpClient  *http.Client
	baseURL     string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		accessToken: cfg.ChannelAccessToken,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		baseURL:     pushEndpoint,
	}
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiError struct {
	Message string `json:"message"`
}

// Push sends a text push message to the given LINE user.
func (c *Client) Push(ctx context.Context, lineUserID, text string) error {
	payload := pushRequest{
		To:       lineUserID,
		Messages: []textMessage{{Type: "text", Text: text}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("line push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("line push: status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("line push: status %d", resp.StatusCode)
	}

	return nil
}

// Simulator logs messages instead of delivering them. Selected via
// DELIVERY_MODE=simulated for local development and demos.
type Simulator struct {
	log zerolog.Logger
}

func NewSimulator(logger zerolog.Logger) *Simulator {
	return &Simulator{log: logger.With().Str("component", "line-simulator").Logger()}
}

func (s *Simulator) Push(ctx context.Context, lineUserID, text string) error {
	s.log.Info().Str("to", lineUserID).Str("text", text).Msg("simulated push")
	return nil
}

// NewSender picks the delivery implementation for the configured mode.
func NewSender(cfg *config.Config, logger zerolog.Logger) Sender {
	if cfg.Mode == config.ModeLive {
		return NewClient(cfg)
	}
	return NewSimulator(logger)
}
