// Package resend клиент HTTP API почтового провайдера Resend.
package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// DefaultBaseURL адрес API по умолчанию.
const DefaultBaseURL = "https://api.resend.com"

// Client отправляет письма через Resend.
type Client struct {
	apiKey     string
	apiURL     string
	from       string
	httpClient *http.Client
}

// NewClient создаёт клиент с ключом apiKey и адресом отправителя from.
func NewClient(apiKey, baseURL, from string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		apiURL:     baseURL,
		from:       from,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// SendEmail отправляет письмо и возвращает идентификатор у провайдера.
func (c *Client) SendEmail(ctx context.Context, params SendEmailRequest) (*SendEmailResponse, error) {
	const op = "resend.SendEmail"
	if c.apiKey == "" {
		return nil, fmt.Errorf("%s: api key is not configured", op)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/emails", params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("%s: %s: %s", op, resp.Status, apiErr.Message)
		}
		return nil, fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var out SendEmailResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &out, nil
}

// Send реализует отправку доменного письма.
func (c *Client) Send(ctx context.Context, email models.Email) error {
	_, err := c.SendEmail(ctx, SendEmailRequest{
		From:    c.from,
		To:      email.To,
		Subject: email.Subject,
		Text:    email.Text,
	})
	return err
}
