package telegram

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/koinot-markazi/split-bill-bot/internal/splitbill"
)

func billCreatedText(creatorName string) string {
	return fmt.Sprintf("💰 Новый счет создан!\nСоздатель: @%s\n\n"+
		"Участники: нажмите кнопку ниже, затем присылайте траты в формате:\n"+
		"<описание> <сумма>\n\nНапример: Пицца 50000", creatorName)
}

func joinKeyboard(billID int64) models.ReplyMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "✅ Присоединиться к счету", CallbackData: fmt.Sprintf("join_bill_%d", billID)},
			},
		},
	}
}

// renderReceiptView builds the item-choice surface: one line and one button
// per item, the button labeled with the claim count and a check mark when
// the viewing user claimed it, plus the close button.
func renderReceiptView(view *splitbill.ReceiptView, currentUserID int64) (string, models.ReplyMarkup) {
	var b strings.Builder
	b.WriteString("✅ Чек обработан!\n\nВыберите свои позиции (нажмите на нужные, повторное нажатие снимает выбор):\n\n")

	var keyboard [][]models.InlineKeyboardButton
	for _, st := range view.Items {
		it := st.Item
		total := it.Price * float64(it.Quantity)

		qtyText := ""
		if it.Quantity > 1 {
			qtyText = fmt.Sprintf(" x%d", it.Quantity)
		}
		fmt.Fprintf(&b, "• %s%s — %s сум\n", it.Name, qtyText, splitbill.FormatAmount(total))

		btnText := "🍽 " + it.Name
		if len(st.Claimers) > 0 {
			btnText += fmt.Sprintf(" [%d]", len(st.Claimers))
		}
		if st.ClaimedBy(currentUserID) {
			btnText += " ✅"
		}
		keyboard = append(keyboard, []models.InlineKeyboardButton{
			{Text: btnText, CallbackData: fmt.Sprintf("item_%d", it.ID)},
		})
	}

	keyboard = append(keyboard, []models.InlineKeyboardButton{
		{Text: "🧾 Закрыть счёт", CallbackData: "close_resto"},
	})

	return b.String(), &models.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}

func renderBillSummary(sum *splitbill.BillSummary) string {
	var b strings.Builder
	b.WriteString("💰 Счет закрыт!\n\n")
	fmt.Fprintf(&b, "Общая сумма: %s сум\nНа человека: %s сум\nУчастников: %d\n\n",
		splitbill.FormatAmount(sum.Total), splitbill.FormatAmount(sum.Share), len(sum.Participants))

	names := make(map[int64]string, len(sum.Participants))
	b.WriteString("📊 Расходы:\n")
	for _, p := range sum.Participants {
		names[p.UserID] = p.Name
		fmt.Fprintf(&b, "@%s: %s сум\n", p.Name, splitbill.FormatAmount(sum.Paid[p.UserID]))
	}

	b.WriteString("\n💸 Расчеты:\n")
	if len(sum.Transfers) == 0 {
		b.WriteString("Все уже расплатились! ✅\n")
		return b.String()
	}
	for _, t := range sum.Transfers {
		fmt.Fprintf(&b, "@%s → @%s: %s сум\n", names[t.FromID], names[t.ToID], splitbill.FormatAmount(t.Amount))
	}
	return b.String()
}

func renderReceiptSummary(sum *splitbill.ReceiptSummary) string {
	var b strings.Builder
	b.WriteString("🍽 Чек из ресторана разделен!\n\n")
	fmt.Fprintf(&b, "Общая сумма: %s сум\nУчастников: %d\n\n",
		splitbill.FormatAmount(sum.Total), len(sum.Names))

	uids := make([]int64, 0, len(sum.Names))
	for uid := range sum.Names {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

	b.WriteString("💰 К оплате:\n")
	for _, uid := range uids {
		fmt.Fprintf(&b, "@%s: %s сум\n", sum.Names[uid], splitbill.FormatAmount(sum.Totals[uid]))
	}
	return b.String()
}

func renderHistory(entries []splitbill.HistoryEntry) string {
	if len(entries) == 0 {
		return "📜 История пуста. Создайте первый счёт с помощью /newbill или /resto."
	}

	var bills, restos []splitbill.HistoryEntry
	for _, e := range entries {
		if e.Kind == splitbill.KindPooledBill {
			bills = append(bills, e)
		} else {
			restos = append(restos, e)
		}
	}

	var b strings.Builder
	b.WriteString("📜 История:\n\n")
	writeGroup := func(title string, group []splitbill.HistoryEntry) {
		if len(group) == 0 {
			return
		}
		b.WriteString(title + "\n")
		for _, e := range group {
			emoji := "🔓"
			if e.Status == splitbill.StatusClosed {
				emoji = "✅"
			}
			fmt.Fprintf(&b, "%s #%d — @%s (%s)\n", emoji, e.ID, e.CreatorName, e.CreatedAt.Format("2006-01-02 15:04"))
		}
		b.WriteString("\n")
	}
	writeGroup("💰 /newbill:", bills)
	writeGroup("🍽 /resto:", restos)

	return strings.TrimRight(b.String(), "\n")
}
