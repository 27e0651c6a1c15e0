package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/config"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/phone"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/resilience"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/sanitize"
)

const (
	maxButtons     = 3
	maxButtonTitle = 20
)

// ErrTooManyButtons is returned for interactive messages with more than three buttons.
var ErrTooManyButtons = errors.New("whatsapp: at most 3 reply buttons are allowed")

// Button is a quick-reply button.
type Button struct {
	ID    string
	Title string
}

// Client sends messages through the WhatsApp Cloud API.
type Client struct {
	baseURL       string
	accessToken   string
	phoneNumberID string
	http          *http.Client
	breaker       *resilience.Breaker
	log           *logger.Logger
}

func NewClient(cfg config.WhatsAppConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:       strings.TrimRight(cfg.GetWhatsAppAPIBaseURL(), "/"),
		accessToken:   cfg.GetWhatsAppAccessToken(),
		phoneNumberID: cfg.GetWhatsAppPhoneNumberID(),
		http:          &http.Client{Timeout: 10 * time.Second},
		breaker:       resilience.NewBreaker("whatsapp"),
		log:           log,
	}
}

func (c *Client) configured() bool {
	return c.accessToken != "" && c.phoneNumberID != ""
}

// SendText sends a plain text message. Unconfigured clients log and skip.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	if c == nil {
		return nil
	}
	_, err := c.send(ctx, sendRequest{
		To:   to,
		Type: "text",
		Text: &TextContent{Body: body},
	})
	return err
}

// SendButtons sends an interactive message with up to three reply buttons.
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []Button) error {
	if c == nil {
		return nil
	}
	if len(buttons) > maxButtons {
		return ErrTooManyButtons
	}

	replies := make([]replyButton, 0, len(buttons))
	for _, b := range buttons {
		replies = append(replies, replyButton{
			Type:  "reply",
			Reply: ButtonReply{ID: b.ID, Title: sanitize.Truncate(b.Title, maxButtonTitle)},
		})
	}

	_, err := c.send(ctx, sendRequest{
		To:   to,
		Type: "interactive",
		Interactive: &interactiveMessage{
			Type:   "button",
			Body:   TextContent{Body: body},
			Action: interactiveAction{Buttons: replies},
		},
	})
	return err
}

// SendQuickReplies sends body with one reply button per title. A tapped
// button comes back as an inbound message whose text is the title.
func (c *Client) SendQuickReplies(ctx context.Context, to, body string, titles []string) error {
	buttons := make([]Button, 0, len(titles))
	for i, title := range titles {
		buttons = append(buttons, Button{ID: fmt.Sprintf("reply_%d", i+1), Title: title})
	}
	return c.SendButtons(ctx, to, body, buttons)
}

func (c *Client) send(ctx context.Context, payload sendRequest) (string, error) {
	recipient := phone.Digits(phone.NormalizeE164(payload.To))
	if !c.configured() {
		c.log.Warn("whatsapp not configured, message skipped", "to", recipient, "type", payload.Type)
		return "", nil
	}

	payload.MessagingProduct = "whatsapp"
	payload.RecipientType = "individual"
	payload.To = recipient

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	var messageID string
	err = c.breaker.Do(func() error {
		url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.accessToken)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("whatsapp request failed: %w", err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		if resp.StatusCode >= http.StatusBadRequest {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return fmt.Errorf("whatsapp api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}

		var decoded sendResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err == nil && len(decoded.Messages) > 0 {
			messageID = decoded.Messages[0].ID
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	c.log.Info("whatsapp message sent", "to", recipient, "type", payload.Type, "message_id", messageID)
	return messageID, nil
}
