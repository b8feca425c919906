package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/snapetech/m3u2strm/internal/httpclient"
	"github.com/snapetech/m3u2strm/internal/logging"
)

const DefaultTelegramAPI = "https://api.telegram.org"

// ErrNotConfigured is returned by Telegram.Notify when the bot token or chat
// id is missing.
var ErrNotConfigured = errors.New("telegram bot token or chat id not configured")

// Telegram sends messages through the Bot API sendMessage method with HTML
// parse mode.
type Telegram struct {
	Token   string
	ChatID  string
	BaseURL string // defaults to DefaultTelegramAPI
	Client  *http.Client
	Logger  *log.Logger
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Configured reports whether both token and chat id are set.
func (t *Telegram) Configured() bool {
	return strings.TrimSpace(t.Token) != "" && strings.TrimSpace(t.ChatID) != ""
}

func (t *Telegram) Notify(ctx context.Context, message string) error {
	logger := logging.Component(t.Logger, "telegram")
	if !t.Configured() {
		logger.Warn("telegram bot token or chat id not configured, skipping notification")
		return ErrNotConfigured
	}
	base := strings.TrimRight(t.BaseURL, "/")
	if base == "" {
		base = DefaultTelegramAPI
	}
	q := url.Values{}
	q.Set("chat_id", t.ChatID)
	q.Set("text", message)
	q.Set("parse_mode", "HTML")
	endpoint := base + "/bot" + t.Token + "/sendMessage?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", httpclient.UserAgent)
	resp, err := httpclient.DoWithRetry(ctx, t.Client, req, httpclient.DefaultRetryPolicy)
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", redact(err, t.Token))
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out telegramResponse
	_ = json.Unmarshal(body, &out)
	if resp.StatusCode != http.StatusOK || !out.OK {
		desc := out.Description
		if desc == "" {
			desc = strings.TrimSpace(string(body))
		}
		return fmt.Errorf("telegram sendMessage returned %d: %s", resp.StatusCode, desc)
	}
	logger.Info("sent telegram notification")
	return nil
}

// redact strips the bot token from transport errors, which embed the URL.
func redact(err error, token string) error {
	if token == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<token>"))
}
