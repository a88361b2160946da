// Package telegram adapts the Telegram Bot API (long polling) to the
// gateway's channel adapter interface, bridging inbound/outbound
// traffic through a bus.MessageBus.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/drost/internal/bus"
)

// Config configures the Telegram channel adapter.
type Config struct {
	Token string
}

// Channel implements gateway.ChannelAdapter for Telegram.
type Channel struct {
	cfg   Config
	bot   *telego.Bot
	msgBus *bus.MessageBus

	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// New creates a Telegram channel bound to msgBus for inbound/outbound
// message exchange with the agent runtime.
func New(cfg Config, msgBus *bus.MessageBus) (*Channel, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	return &Channel{cfg: cfg, bot: bot, msgBus: msgBus}, nil
}

func (c *Channel) Name() string { return "telegram" }

// Connect starts long polling and the outbound-delivery loop.
func (c *Channel) Connect(ctx context.Context) error {
	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel
	c.pollDone = make(chan struct{})

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("telegram: start long polling: %w", err)
	}

	go func() {
		defer close(c.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				c.handleUpdate(pollCtx, update)
			}
		}
	}()

	go c.deliverOutbound(pollCtx)

	return nil
}

// Disconnect cancels long polling and waits for it to exit.
func (c *Channel) Disconnect(ctx context.Context) error {
	if c.pollCancel != nil {
		c.pollCancel()
	}
	if c.pollDone != nil {
		select {
		case <-c.pollDone:
		case <-time.After(10 * time.Second):
			slog.Warn("telegram: polling loop did not exit within timeout")
		}
	}
	return nil
}

func (c *Channel) handleUpdate(ctx context.Context, update telego.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message

	inbound := bus.InboundMessage{
		Channel:  "telegram",
		SenderID: fmt.Sprintf("%d", msg.From.ID),
		ChatID:   fmt.Sprintf("%d", msg.Chat.ID),
		Content:  msg.Text,
		PeerKind: peerKind(msg.Chat.Type),
	}
	if msg.MessageThreadID > 0 {
		inbound.ThreadID = fmt.Sprintf("%d", msg.MessageThreadID)
	}

	if c.msgBus != nil {
		c.msgBus.PublishInbound(inbound)
	}
}

func peerKind(chatType string) string {
	if chatType == "group" || chatType == "supergroup" {
		return "group"
	}
	return "direct"
}

func (c *Channel) deliverOutbound(ctx context.Context) {
	for {
		msg, ok := c.msgBus.SubscribeOutbound(ctx)
		if !ok {
			return
		}
		if msg.Channel != "telegram" {
			continue
		}
		if err := c.send(ctx, msg); err != nil {
			slog.Warn("telegram: failed to send outbound message", "chat_id", msg.ChatID, "error", err)
		}
	}
}

func (c *Channel) send(ctx context.Context, msg bus.OutboundMessage) error {
	chatID, err := parseChatID(msg.ChatID)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat id %q: %w", msg.ChatID, err)
	}
	chatIDObj := tu.ID(chatID)
	outMsg := tu.Message(chatIDObj, msg.Content)
	_, err = c.bot.SendMessage(ctx, outMsg)
	return err
}

func parseChatID(chatIDStr string) (int64, error) {
	var id int64
	_, err := fmt.Sscanf(chatIDStr, "%d", &id)
	return id, err
}
