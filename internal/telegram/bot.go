package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/koinot-markazi/split-bill-bot/internal/ocr"
	"github.com/koinot-markazi/split-bill-bot/internal/splitbill"
)

type Bot struct {
	api        *bot.Bot
	svc        *splitbill.Service
	recognizer *ocr.Client // nil when receipt recognition is not configured
}

// New creates the Telegram bot and registers all handlers.
func New(token string, svc *splitbill.Service, recognizer *ocr.Client) (*Bot, error) {
	if token == "" {
		return nil, errors.New("telegram token is required")
	}

	b := &Bot{
		svc:        svc,
		recognizer: recognizer,
	}

	api, err := bot.New(token, bot.WithDefaultHandler(b.handleDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	b.api = api
	b.registerHandlers()

	return b, nil
}

// Start starts the bot with long polling and blocks until ctx is canceled.
func (b *Bot) Start(ctx context.Context) error {
	me, err := b.api.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}

	log.Printf("telegram bot started as @%s", me.Username)
	b.api.Start(ctx)
	return nil
}

func (b *Bot) registerHandlers() {
	// Commands. Prefix match also covers the /cmd@BotName form used in
	// groups.
	b.api.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)
	b.api.RegisterHandler(bot.HandlerTypeMessageText, "/newbill", bot.MatchTypePrefix, b.handleNewBill)
	b.api.RegisterHandler(bot.HandlerTypeMessageText, "/resto", bot.MatchTypePrefix, b.handleResto)
	b.api.RegisterHandler(bot.HandlerTypeMessageText, "/closebill", bot.MatchTypePrefix, b.handleCloseBill)
	b.api.RegisterHandler(bot.HandlerTypeMessageText, "/history", bot.MatchTypePrefix, b.handleHistory)

	// Inline keyboard callbacks
	b.api.RegisterHandler(bot.HandlerTypeCallbackQueryData, "join_bill_", bot.MatchTypePrefix, b.handleJoinCallback)
	b.api.RegisterHandler(bot.HandlerTypeCallbackQueryData, "item_", bot.MatchTypePrefix, b.handleItemCallback)
	b.api.RegisterHandler(bot.HandlerTypeCallbackQueryData, "close_resto", bot.MatchTypeExact, b.handleCloseRestoCallback)
}

// handleDefault routes what the registered handlers did not catch: receipt
// photos and free-text expense lines.
func (b *Bot) handleDefault(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	if len(msg.Photo) > 0 {
		b.handleReceiptPhoto(ctx, msg)
		return
	}
	if msg.Text != "" && !strings.HasPrefix(msg.Text, "/") {
		b.handleExpenseText(ctx, msg)
	}
}

func displayName(u *models.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// send delivers text to a chat; failures are logged and dropped, nothing in
// the ledger depends on delivery.
func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	b.sendWithMarkup(ctx, chatID, text, nil)
}

func (b *Bot) sendWithMarkup(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) {
	_, err := b.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	})
	if err != nil {
		log.Printf("failed to send message to chat %d: %v", chatID, err)
	}
}

func (b *Bot) answerCallback(ctx context.Context, queryID, text string, alert bool) {
	_, err := b.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		log.Printf("failed to answer callback query: %v", err)
	}
}
