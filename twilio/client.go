package twilio

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apex/log"
)

const messagesEndpoint = "https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json"

// Client talks to the Twilio REST API for outbound WhatsApp messages
// and authenticated media downloads.
type Client struct {
	accountSID string
	authToken  string
	from       string
	client     *http.Client
}

// NewClient creates a Twilio client. The from number must be in
// "whatsapp:+<digits>" form.
func NewClient(accountSID, authToken, from string) *Client {
	return &Client{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether outbound messaging credentials are set.
func (c *Client) Configured() bool {
	return c.accountSID != "" && c.authToken != "" && c.from != ""
}

type messageResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// SendMessage sends a proactive WhatsApp message to the worker.
// mediaURL may be empty; it is attached only when it is an http(s) URL.
func (c *Client) SendMessage(to, body, mediaURL string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("twilio credentials not configured")
	}
	if !strings.HasPrefix(to, "whatsapp:") {
		to = "whatsapp:" + to
	}

	form := url.Values{}
	form.Set("From", c.from)
	form.Set("To", to)
	form.Set("Body", body)
	if isHTTPURL(mediaURL) {
		form.Set("MediaUrl", mediaURL)
	}

	endpoint := fmt.Sprintf(messagesEndpoint, c.accountSID)
	req, err := http.NewRequest("POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("twilio API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var msg messageResponse
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	log.Infof("Sent WhatsApp message to %s, SID=%s", to, msg.SID)
	return msg.SID, nil
}

// FetchMedia downloads an inbound media attachment. Twilio media URLs
// require basic auth and redirect to the storage backend.
func (c *Client) FetchMedia(mediaURL string) ([]byte, string, error) {
	if c.accountSID == "" || c.authToken == "" {
		return nil, "", fmt.Errorf("twilio credentials not configured")
	}

	req, err := http.NewRequest("GET", mediaURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("media fetch failed (status %d)", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read media body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func isHTTPURL(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
