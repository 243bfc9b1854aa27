package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/koinot-markazi/split-bill-bot/internal/splitbill"
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type sessionEntry struct {
	ID          int64      `json:"id"`
	Kind        string     `json:"kind"`
	CreatorName string     `json:"creator_name"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

func (a *API) handleChatSessions(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(mux.Vars(r)["chat_id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid chat id", http.StatusBadRequest)
		return
	}

	entries, err := a.svc.History(r.Context(), chatID)
	if err != nil {
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	out := make([]sessionEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, sessionEntry{
			ID:          e.ID,
			Kind:        string(e.Kind),
			CreatorName: e.CreatorName,
			Status:      string(e.Status),
			CreatedAt:   e.CreatedAt,
			ClosedAt:    e.ClosedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

type receiptItem struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Price     float64  `json:"price"`
	Quantity  int      `json:"quantity"`
	Shared    bool     `json:"shared"`
	ClaimedBy []string `json:"claimed_by"`
}

type receiptResponse struct {
	ID          int64         `json:"id"`
	ChatID      int64         `json:"chat_id"`
	CreatorName string        `json:"creator_name"`
	Status      string        `json:"status"`
	Items       []receiptItem `json:"items"`
}

func (a *API) handleReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid receipt id", http.StatusBadRequest)
		return
	}

	view, err := a.svc.ReceiptView(r.Context(), id)
	if errors.Is(err, splitbill.ErrNoOpenSession) {
		http.Error(w, "receipt not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to load receipt", http.StatusInternalServerError)
		return
	}

	resp := receiptResponse{
		ID:          view.Session.ID,
		ChatID:      view.Session.ChatID,
		CreatorName: view.Session.CreatorName,
		Status:      string(view.Session.Status),
	}
	for _, st := range view.Items {
		names := make([]string, 0, len(st.Claimers))
		for _, c := range st.Claimers {
			names = append(names, c.Name)
		}
		resp.Items = append(resp.Items, receiptItem{
			ID:        st.Item.ID,
			Name:      st.Item.Name,
			Price:     st.Item.Price,
			Quantity:  st.Item.Quantity,
			Shared:    st.Item.Shared,
			ClaimedBy: names,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
