package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// providerWebhook accepts provider callbacks in any of the known payload shapes.
func (h *Handler) providerWebhook(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}

	cb := normalizeProviderCallback(body)
	if cb.OrderID == "" {
		writeMessage(w, http.StatusBadRequest, "missing orderId")
		return
	}

	res, err := h.svc.Webhooks.HandleProviderCallback(r.Context(), cb)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"outcome": res.Outcome})
}

// normalizeProviderCallback folds the field-name variants providers use onto
// one callback. Nested "data" values are consulted last.
func normalizeProviderCallback(body map[string]any) service.ProviderCallback {
	data, _ := body["data"].(map[string]any)
	raw := firstValue(body, data, []string{"status", "statusCode"}, "status")
	if raw == "" {
		raw = domain.ProviderStatusUnknown
	}
	return service.ProviderCallback{
		OrderID:   firstValue(body, data, []string{"orderId", "OrderID", "merchantReference"}, "orderId"),
		Status:    domain.NormalizeProviderStatus(raw),
		TxnID:     firstValue(body, data, []string{"txnId", "transactionId"}, "txnId"),
		RawStatus: raw,
	}
}

func firstValue(body, data map[string]any, keys []string, nested string) string {
	for _, k := range keys {
		if s := scalar(body[k]); s != "" {
			return s
		}
	}
	if data != nil {
		return scalar(data[nested])
	}
	return ""
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// telegramWebhook always answers 200 so Telegram does not redeliver; failures
// are logged and the user was already told through the chat.
func (h *Handler) telegramWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&update); err != nil {
		logger.Warn("Ignoring undecodable telegram update", "error", err)
		writeOK(w, http.StatusOK, nil)
		return
	}

	if err := h.svc.Webhooks.HandleChatUpdate(r.Context(), toChatUpdate(update)); err != nil {
		logger.ErrorContext(r.Context(), "Telegram update failed", "updateID", update.UpdateID, "error", err)
	}
	writeOK(w, http.StatusOK, nil)
}

func toChatUpdate(u tgbotapi.Update) service.ChatUpdate {
	var out service.ChatUpdate
	if q := u.CallbackQuery; q != nil {
		cb := &service.ChatCallback{ID: q.ID, Data: q.Data}
		if q.From != nil {
			cb.FromUserID = strconv.FormatInt(q.From.ID, 10)
			cb.FromUsername = q.From.UserName
		}
		if q.Message != nil && q.Message.Chat != nil {
			cb.ChatID = strconv.FormatInt(q.Message.Chat.ID, 10)
		}
		out.Callback = cb
		return out
	}

	if m := u.Message; m != nil {
		msg := &service.ChatMessage{Text: m.Text}
		if m.Chat != nil {
			msg.ChatID = strconv.FormatInt(m.Chat.ID, 10)
		}
		if m.From != nil {
			msg.FromUserID = strconv.FormatInt(m.From.ID, 10)
			msg.FromUsername = m.From.UserName
			msg.FromName = strings.TrimSpace(fmt.Sprintf("%s %s", m.From.FirstName, m.From.LastName))
		}
		out.Message = msg
	}
	return out
}
