package notify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrConflict is returned by GetUpdates when another consumer holds the
// polling session (HTTP 409). The cursor must be reset to zero; this is
// a recovery rule, not a failure to surface.
var ErrConflict = errors.New("telegram: conflicting getUpdates consumer")

// Update is one inbound telegram event. The id is monotonically
// increasing; the next poll cursor is UpdateID+1.
type Update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

// TelegramClient talks to the Bot API over plain HTTP. All calls are
// best-effort from the decision loop's perspective.
type TelegramClient struct {
	token   string
	chatID  string
	baseURL string
	http    *http.Client
}

// NewTelegramClient creates a client. An empty token or chat id yields a
// disabled client whose Enabled reports false.
func NewTelegramClient(token, chatID string, timeout time.Duration) *TelegramClient {
	return &TelegramClient{
		token:   token,
		chatID:  chatID,
		baseURL: "https://api.telegram.org",
		http:    &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether the client is fully configured.
func (c *TelegramClient) Enabled() bool {
	return c.token != "" && c.chatID != ""
}

// ChatID returns the configured chat id.
func (c *TelegramClient) ChatID() string { return c.chatID }

// Send posts text to the configured chat.
func (c *TelegramClient) Send(text string) error {
	if !c.Enabled() {
		return nil
	}
	body, err := json.Marshal(map[string]string{
		"chat_id": c.chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("telegram: failed to encode message: %w", err)
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	resp, err := c.http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: send failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: send returned status %d", resp.StatusCode)
	}
	return nil
}

// GetUpdates polls the inbound command backlog starting at offset.
func (c *TelegramClient) GetUpdates(offset int64) ([]Update, error) {
	if !c.Enabled() {
		return nil, nil
	}
	url := fmt.Sprintf("%s/bot%s/getUpdates?offset=%d", c.baseURL, c.token, offset)
	resp, err := c.http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("telegram: poll failed: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		OK        bool     `json:"ok"`
		ErrorCode int      `json:"error_code"`
		Result    []Update `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("telegram: failed to decode updates: %w", err)
	}
	if payload.ErrorCode == http.StatusConflict {
		return nil, ErrConflict
	}
	if !payload.OK {
		return nil, fmt.Errorf("telegram: getUpdates returned error code %d", payload.ErrorCode)
	}
	return payload.Result, nil
}
