// Package telegram sends operator notifications and lead summaries to the
// operator chat and answers inline keyboard callbacks.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/config"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrNotConfigured is returned when the bot token or operator chat id is missing.
var ErrNotConfigured = errors.New("telegram not configured")

const requestTimeout = 10 * time.Second

// Client talks to the Bot API. Construction never calls the network.
type Client struct {
	bot    *tgbotapi.BotAPI
	chatID string
	log    *logger.Logger
}

// NewClient builds a client against the public Bot API endpoint.
func NewClient(cfg config.TelegramConfig, log *logger.Logger) *Client {
	return NewClientWithEndpoint(cfg, tgbotapi.APIEndpoint, &http.Client{Timeout: requestTimeout}, log)
}

// NewClientWithEndpoint builds a client against endpoint, a format string
// taking the token and the method name.
func NewClientWithEndpoint(cfg config.TelegramConfig, endpoint string, httpClient *http.Client, log *logger.Logger) *Client {
	token := strings.TrimSpace(cfg.GetTelegramBotToken())
	bot := &tgbotapi.BotAPI{
		Token:  token,
		Client: httpClient,
		Buffer: 100,
	}
	bot.SetAPIEndpoint(endpoint)

	return &Client{
		bot:    bot,
		chatID: strings.TrimSpace(cfg.GetTelegramChatID()),
		log:    log,
	}
}

func (c *Client) configured() bool {
	return c != nil && c.bot != nil && c.bot.Token != "" && c.chatID != ""
}

// SendMessage sends plain text to the operator chat. Nothing in text is
// parsed as markup, so lead names and error messages go out verbatim.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	if !c.configured() {
		return ErrNotConfigured
	}
	msg := c.newMessage(text, "")
	return c.send(ctx, msg)
}

// SendLeadSummary posts the qualification summary with approve and reject buttons.
func (c *Client) SendLeadSummary(ctx context.Context, summary LeadSummary) error {
	if !c.configured() {
		return ErrNotConfigured
	}
	msg := c.newMessage(FormatLeadSummary(summary), tgbotapi.ModeMarkdown)
	msg.ReplyMarkup = ApprovalKeyboard(summary.LeadID)
	return c.send(ctx, msg)
}

// AnswerCallback acknowledges a callback query so the operator's client stops
// showing a spinner.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if c == nil || c.bot == nil || c.bot.Token == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// ApprovalKeyboard returns the single row of approve and reject buttons for a lead.
func ApprovalKeyboard(leadID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Approve & Provision", "approve:"+leadID),
			tgbotapi.NewInlineKeyboardButtonData("Reject", "reject:"+leadID),
		),
	)
}

func (c *Client) newMessage(text, parseMode string) tgbotapi.MessageConfig {
	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(c.chatID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(c.chatID, text)
	}
	msg.ParseMode = parseMode
	msg.DisableWebPagePreview = true
	return msg
}

func (c *Client) send(ctx context.Context, msg tgbotapi.MessageConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.bot.Send(msg); err != nil {
		if c.log != nil {
			c.log.Error("telegram send failed", "error", err)
		}
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
