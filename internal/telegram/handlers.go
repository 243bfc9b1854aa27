package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/koinot-markazi/split-bill-bot/internal/ocr"
	"github.com/koinot-markazi/split-bill-bot/internal/splitbill"
)

func (b *Bot) handleStart(ctx context.Context, _ *bot.Bot, update *models.Update) {
	b.send(ctx, update.Message.Chat.ID,
		"👋 Привет! Я бот для разделения счетов.\n\n"+
			"📝 Команды:\n"+
			"/newbill — общий счёт и ручные траты\n"+
			"/resto — чек из ресторана (фото)\n"+
			"/closebill — закрыть текущий счёт/сессию\n"+
			"/history — последние 10 записей\n\n"+
			"Добавьте меня в группу со своими друзьями.")
}

func (b *Bot) handleNewBill(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	userName := displayName(msg.From)

	bill, err := b.svc.NewBill(ctx, msg.Chat.ID, msg.From.ID, userName)
	if errors.Is(err, splitbill.ErrAlreadyOpen) {
		b.send(ctx, msg.Chat.ID, "❌ Уже есть открытый счет. Закройте его командой /closebill")
		return
	}
	if err != nil {
		log.Printf("failed to create bill in chat %d: %v", msg.Chat.ID, err)
		b.send(ctx, msg.Chat.ID, "❌ Не получилось создать счет. Попробуйте ещё раз.")
		return
	}

	b.sendWithMarkup(ctx, msg.Chat.ID, billCreatedText(userName), joinKeyboard(bill.ID))
}

func (b *Bot) handleResto(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	userName := displayName(msg.From)

	_, err := b.svc.NewReceiptSession(ctx, msg.Chat.ID, msg.From.ID, userName)
	if errors.Is(err, splitbill.ErrAlreadyOpen) {
		b.send(ctx, msg.Chat.ID, "❌ Уже есть открытая /resto сессия. Закройте её /closebill")
		return
	}
	if err != nil {
		log.Printf("failed to create receipt session in chat %d: %v", msg.Chat.ID, err)
		b.send(ctx, msg.Chat.ID, "❌ Не получилось создать сессию. Попробуйте ещё раз.")
		return
	}

	b.send(ctx, msg.Chat.ID,
		fmt.Sprintf("🍽 Сессия ресторана создана!\nСоздатель: @%s\n\n"+
			"📸 Отправьте фото чека, чтобы я его обработал.", userName))
}

func (b *Bot) handleCloseBill(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message

	res, err := b.svc.Close(ctx, msg.Chat.ID, msg.From.ID)
	switch {
	case errors.Is(err, splitbill.ErrNoOpenSession):
		b.send(ctx, msg.Chat.ID, "❌ Нет открытых счетов в этом чате.")
	case errors.Is(err, splitbill.ErrForbidden):
		b.send(ctx, msg.Chat.ID, "❌ Только создатель счета может его закрыть.")
	case errors.Is(err, splitbill.ErrNoParticipants):
		b.send(ctx, msg.Chat.ID, "❌ Нет участников в счете.")
	case errors.Is(err, splitbill.ErrNoExpenses):
		b.send(ctx, msg.Chat.ID, "❌ Нет расходов для расчета.")
	case err != nil:
		log.Printf("failed to close session in chat %d: %v", msg.Chat.ID, err)
		b.send(ctx, msg.Chat.ID, "❌ Не получилось закрыть счет. Попробуйте ещё раз.")
	case res.Bill != nil:
		b.send(ctx, msg.Chat.ID, renderBillSummary(res.Bill))
	default:
		b.send(ctx, msg.Chat.ID, renderReceiptSummary(res.Receipt))
	}
}

func (b *Bot) handleHistory(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message

	entries, err := b.svc.History(ctx, msg.Chat.ID)
	if err != nil {
		log.Printf("failed to load history for chat %d: %v", msg.Chat.ID, err)
		return
	}
	b.send(ctx, msg.Chat.ID, renderHistory(entries))
}

// handleExpenseText treats any plain group message as a potential
// "<description> <amount>" expense. Messages that are not expenses for the
// chat's open bill are ignored without a reply.
func (b *Bot) handleExpenseText(ctx context.Context, msg *models.Message) {
	e, err := b.svc.RecordExpense(ctx, msg.Chat.ID, msg.From.ID, displayName(msg.From), msg.Text)
	switch {
	case errors.Is(err, splitbill.ErrNoOpenSession),
		errors.Is(err, splitbill.ErrNotParticipant),
		errors.Is(err, splitbill.ErrInvalidAmount):
		return
	case err != nil:
		log.Printf("failed to record expense in chat %d: %v", msg.Chat.ID, err)
		return
	}

	b.send(ctx, msg.Chat.ID, fmt.Sprintf("✅ Добавлено: %s — %s сум", e.Description, splitbill.FormatAmount(e.Amount)))
}

func (b *Bot) handleReceiptPhoto(ctx context.Context, msg *models.Message) {
	sess, err := b.svc.CheckReceiptUpload(ctx, msg.Chat.ID, msg.From.ID)
	switch {
	case errors.Is(err, splitbill.ErrNoOpenSession):
		return
	case errors.Is(err, splitbill.ErrForbidden):
		b.send(ctx, msg.Chat.ID, "❌ Только создатель сессии может загружать чек.")
		return
	case errors.Is(err, splitbill.ErrAlreadyIngested):
		b.send(ctx, msg.Chat.ID, "❌ Чек уже загружен.")
		return
	case err != nil:
		log.Printf("failed to validate receipt upload in chat %d: %v", msg.Chat.ID, err)
		return
	}

	if b.recognizer == nil {
		b.send(ctx, msg.Chat.ID, "❌ Распознавание чеков не настроено.")
		return
	}

	b.send(ctx, msg.Chat.ID, "⏳ Обрабатываю чек...")

	// Telegram sends several sizes, the last is the largest.
	photo := msg.Photo[len(msg.Photo)-1]
	image, err := b.downloadFile(ctx, photo.FileID)
	if err != nil {
		log.Printf("failed to download receipt photo in chat %d: %v", msg.Chat.ID, err)
		b.send(ctx, msg.Chat.ID, "❌ Ошибка при обработке чека.")
		return
	}

	// The recognition call is slow and runs without the session lock;
	// IngestReceipt re-validates before inserting.
	recognized, err := b.recognizer.Extract(ctx, image)
	switch {
	case errors.Is(err, ocr.ErrBadPayload):
		b.send(ctx, msg.Chat.ID, "❌ Не удалось извлечь позиции. Попробуйте другое фото.")
		return
	case err != nil:
		log.Printf("receipt recognition failed in chat %d: %v", msg.Chat.ID, err)
		b.send(ctx, msg.Chat.ID, "❌ Ошибка при обработке чека.")
		return
	}

	candidates := make([]splitbill.LineItem, 0, len(recognized))
	for _, it := range recognized {
		candidates = append(candidates, splitbill.LineItem{
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
			Shared:   it.Shared,
		})
	}

	_, err = b.svc.IngestReceipt(ctx, msg.Chat.ID, msg.From.ID, candidates)
	switch {
	case errors.Is(err, splitbill.ErrNoValidItems):
		b.send(ctx, msg.Chat.ID, "❌ Не удалось распознать позиции в чеке.")
		return
	case errors.Is(err, splitbill.ErrAlreadyIngested):
		b.send(ctx, msg.Chat.ID, "❌ Чек уже загружен.")
		return
	case err != nil:
		log.Printf("failed to store receipt items in chat %d: %v", msg.Chat.ID, err)
		b.send(ctx, msg.Chat.ID, "❌ Ошибка при обработке чека.")
		return
	}

	view, err := b.svc.ReceiptView(ctx, sess.ID)
	if err != nil {
		log.Printf("failed to build receipt view for session %d: %v", sess.ID, err)
		return
	}
	text, markup := renderReceiptView(view, msg.From.ID)
	b.sendWithMarkup(ctx, msg.Chat.ID, text, markup)
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	f, err := b.api.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.api.FileDownloadLink(f), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (b *Bot) handleJoinCallback(ctx context.Context, _ *bot.Bot, update *models.Update) {
	q := update.CallbackQuery
	billID, err := strconv.ParseInt(strings.TrimPrefix(q.Data, "join_bill_"), 10, 64)
	if err != nil {
		b.answerCallback(ctx, q.ID, "", false)
		return
	}

	res, err := b.svc.JoinBill(ctx, billID, q.From.ID, displayName(&q.From))
	switch {
	case errors.Is(err, splitbill.ErrSessionClosed), errors.Is(err, splitbill.ErrNoOpenSession):
		b.editCallbackMessage(ctx, q, "❌ Этот счет уже закрыт.", nil)
		b.answerCallback(ctx, q.ID, "", false)
		return
	case err != nil:
		log.Printf("failed to join bill %d: %v", billID, err)
		b.answerCallback(ctx, q.ID, "", false)
		return
	}

	if !res.Joined {
		b.answerCallback(ctx, q.ID, "Вы уже в этом счете!", true)
		return
	}

	names := make([]string, 0, len(res.Participants))
	for _, p := range res.Participants {
		names = append(names, "@"+p.Name)
	}
	text := billCreatedText(res.Bill.CreatorName) +
		fmt.Sprintf("\n\nУчастники (%d): %s", len(names), strings.Join(names, ", "))

	b.editCallbackMessage(ctx, q, text, joinKeyboard(billID))
	b.answerCallback(ctx, q.ID, "", false)
}

func (b *Bot) handleItemCallback(ctx context.Context, _ *bot.Bot, update *models.Update) {
	q := update.CallbackQuery
	itemID, err := strconv.ParseInt(strings.TrimPrefix(q.Data, "item_"), 10, 64)
	if err != nil {
		b.answerCallback(ctx, q.ID, "", false)
		return
	}

	view, claimed, err := b.svc.ToggleClaim(ctx, itemID, q.From.ID, displayName(&q.From))
	switch {
	case errors.Is(err, splitbill.ErrSessionClosed), errors.Is(err, splitbill.ErrNoOpenSession):
		b.answerCallback(ctx, q.ID, "❌ Эта сессия уже закрыта.", true)
		return
	case err != nil:
		log.Printf("failed to toggle claim on item %d: %v", itemID, err)
		b.answerCallback(ctx, q.ID, "", false)
		return
	}

	text, markup := renderReceiptView(view, q.From.ID)
	b.editCallbackMessage(ctx, q, text, markup)

	if claimed {
		b.answerCallback(ctx, q.ID, "Вы выбрали блюдо", false)
	} else {
		b.answerCallback(ctx, q.ID, "Выбор снят", false)
	}
}

func (b *Bot) handleCloseRestoCallback(ctx context.Context, _ *bot.Bot, update *models.Update) {
	q := update.CallbackQuery
	if q.Message.Message == nil {
		b.answerCallback(ctx, q.ID, "Нет открытой сессии.", true)
		return
	}
	chatID := q.Message.Message.Chat.ID

	res, err := b.svc.Close(ctx, chatID, q.From.ID)
	switch {
	case errors.Is(err, splitbill.ErrNoOpenSession):
		b.answerCallback(ctx, q.ID, "Нет открытой сессии.", true)
		return
	case errors.Is(err, splitbill.ErrForbidden):
		b.answerCallback(ctx, q.ID, "Только создатель может закрыть счёт.", true)
		return
	case errors.Is(err, splitbill.ErrNoParticipants):
		b.answerCallback(ctx, q.ID, "", false)
		b.send(ctx, chatID, "❌ Никто не выбрал блюда.")
		return
	case err != nil:
		log.Printf("failed to close receipt session in chat %d: %v", chatID, err)
		b.answerCallback(ctx, q.ID, "", false)
		return
	}

	b.answerCallback(ctx, q.ID, "", false)
	if res.Receipt != nil {
		b.send(ctx, chatID, renderReceiptSummary(res.Receipt))
	} else if res.Bill != nil {
		b.send(ctx, chatID, renderBillSummary(res.Bill))
	}
}

// editCallbackMessage updates the message the pressed keyboard hangs on.
// When Telegram refuses the text edit (old messages), at least the keyboard
// is refreshed.
func (b *Bot) editCallbackMessage(ctx context.Context, q *models.CallbackQuery, text string, markup models.ReplyMarkup) {
	msg := q.Message.Message
	if msg == nil {
		return
	}

	_, err := b.api.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		Text:        text,
		ReplyMarkup: markup,
	})
	if err == nil {
		return
	}
	if markup != nil {
		_, err2 := b.api.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
			ChatID:      msg.Chat.ID,
			MessageID:   msg.ID,
			ReplyMarkup: markup,
		})
		if err2 == nil {
			return
		}
	}
	log.Printf("failed to edit message %d in chat %d: %v", msg.ID, msg.Chat.ID, err)
}
