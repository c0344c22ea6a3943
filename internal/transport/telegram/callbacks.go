package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	addomain "github.com/popmarket/popmarket/internal/modules/ad/domain"
	catalogDomain "github.com/popmarket/popmarket/internal/modules/catalog/domain"
	gallerydomain "github.com/popmarket/popmarket/internal/modules/gallery/domain"
)

// handleGalleryCallback drives the photo browser state machine.
// Callback data: gal:open:<adID>:<index> | gal:next | gal:prev |
// gal:zin | gal:zout | gal:close
func (h *Handler) handleGalleryCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}
	defer h.answer(ctx, b, cb)

	msg := cb.Message.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID
	viewerID := cb.From.ID

	parts := strings.Split(cb.Data, ":")
	if len(parts) < 2 {
		return
	}

	switch parts[1] {
	case "open":
		if len(parts) != 4 {
			return
		}
		target, err := strconv.Atoi(parts[3])
		if err != nil {
			return
		}
		viewer, err := h.gallery.Open(ctx, viewerID, parts[2], target)
		if err != nil {
			slog.Error("Failed to open gallery", "ad_id", parts[2], "error", err)
			return
		}
		url, _ := viewer.Current()
		b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:      chatID,
			Photo:       &models.InputFileString{Data: url},
			Caption:     galleryCaption(viewer),
			ReplyMarkup: galleryKeyboard(viewer),
		})

	case "next", "prev":
		viewer, ok := h.gallery.Get(viewerID)
		if !ok || !viewer.IsOpen() {
			return
		}
		if parts[1] == "next" {
			viewer.Next()
		} else {
			viewer.Prev()
		}
		url, _ := viewer.Current()
		b.EditMessageMedia(ctx, &bot.EditMessageMediaParams{
			ChatID:    chatID,
			MessageID: msg.ID,
			Media: &models.InputMediaPhoto{
				Media:   url,
				Caption: galleryCaption(viewer),
			},
			ReplyMarkup: galleryKeyboard(viewer),
		})

	case "zin", "zout":
		viewer, ok := h.gallery.Get(viewerID)
		if !ok || !viewer.IsOpen() {
			return
		}
		if parts[1] == "zin" {
			viewer.ZoomIn()
		} else {
			viewer.ZoomOut()
		}
		b.EditMessageCaption(ctx, &bot.EditMessageCaptionParams{
			ChatID:      chatID,
			MessageID:   msg.ID,
			Caption:     galleryCaption(viewer),
			ReplyMarkup: galleryKeyboard(viewer),
		})

	case "close":
		h.gallery.Close(viewerID)
		b.DeleteMessage(ctx, &bot.DeleteMessageParams{
			ChatID:    chatID,
			MessageID: msg.ID,
		})
	}
}

// handleAdCallback handles owner actions.
// Callback data: ad:status:<adID>:<status> | ad:del:<adID>
func (h *Handler) handleAdCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}
	defer h.answer(ctx, b, cb)

	msg := cb.Message.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID

	user := addomain.TelegramUser{
		ID:        cb.From.ID,
		FirstName: cb.From.FirstName,
		LastName:  cb.From.LastName,
		Username:  cb.From.Username,
	}

	parts := strings.Split(cb.Data, ":")
	if len(parts) < 3 {
		return
	}

	switch parts[1] {
	case "status":
		if len(parts) != 4 {
			return
		}
		status, err := addomain.ParseStatus(parts[3])
		if err != nil {
			return
		}
		if err := h.ads.UpdateStatus(ctx, user, parts[2], status); err != nil {
			h.notifyFailure(ctx, b, chatID, err)
			return
		}
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("✅ Статус обновлён: %s", status.Label()),
		})

	case "del":
		if err := h.ads.Delete(ctx, user, parts[2]); err != nil {
			h.notifyFailure(ctx, b, chatID, err)
			return
		}
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "🗑 Объявление удалено.",
		})
	}
}

// handleFilterCallback adjusts the chat's filter state and re-renders.
// Callback data: flt:view | flt:cat:<value> | flt:type:<value>
func (h *Handler) handleFilterCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}
	defer h.answer(ctx, b, cb)

	msg := cb.Message.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID

	state := h.filterFor(chatID)
	parts := strings.Split(cb.Data, ":")
	if len(parts) < 2 {
		return
	}

	h.mu.Lock()
	switch parts[1] {
	case "view":
		state.Mode = state.Mode.Toggle()
	case "cat":
		if len(parts) == 3 {
			state.Category = parts[2]
		}
	case "type":
		if len(parts) == 3 {
			state.Type = parts[2]
		}
	}
	snapshot := *state
	h.mu.Unlock()

	h.renderResult(ctx, b, chatID, &cb.From, snapshot)
}

func (h *Handler) notifyFailure(ctx context.Context, b *bot.Bot, chatID int64, err error) {
	// Ownership mismatches and backend failures get the same shape
	slog.Error("Ad mutation failed", "error", err)
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "⚠️ Не получилось выполнить действие. Попробуйте ещё раз.",
	})
}

func (h *Handler) answer(ctx context.Context, b *bot.Bot, cb *models.CallbackQuery) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
	})
}

func galleryCaption(v *gallerydomain.Viewer) string {
	return fmt.Sprintf("%d / %d · %d%%", v.Index()+1, v.Len(), int(v.Zoom()*100))
}

func galleryKeyboard(v *gallerydomain.Viewer) *models.InlineKeyboardMarkup {
	nav := []models.InlineKeyboardButton{}
	if v.Len() > 1 {
		nav = append(nav,
			models.InlineKeyboardButton{Text: "◀️", CallbackData: "gal:prev"},
			models.InlineKeyboardButton{Text: "▶️", CallbackData: "gal:next"},
		)
	}

	zoom := []models.InlineKeyboardButton{
		{Text: "➖", CallbackData: "gal:zout"},
		{Text: "➕", CallbackData: "gal:zin"},
		{Text: "✖️", CallbackData: "gal:close"},
	}

	rows := [][]models.InlineKeyboardButton{}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, zoom)
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// viewerKeyboard offers the photo browser to any reader
func (h *Handler) viewerKeyboard(ad *addomain.Ad) *models.InlineKeyboardMarkup {
	if len(ad.Images) == 0 {
		return nil
	}
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: fmt.Sprintf("📷 Фото (%d)", len(ad.Images)), CallbackData: fmt.Sprintf("gal:open:%s:0", ad.ID)},
		}},
	}
}

// ownerKeyboard adds status and delete controls to the photo button
func (h *Handler) ownerKeyboard(ad *addomain.Ad) *models.InlineKeyboardMarkup {
	rows := [][]models.InlineKeyboardButton{}

	if len(ad.Images) > 0 {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: fmt.Sprintf("📷 Фото (%d)", len(ad.Images)), CallbackData: fmt.Sprintf("gal:open:%s:0", ad.ID)},
		})
	}

	actions := []models.InlineKeyboardButton{}
	if ad.Status == addomain.StatusActive {
		if ad.HasType(addomain.TypeSale) {
			actions = append(actions, models.InlineKeyboardButton{
				Text: "Продано", CallbackData: fmt.Sprintf("ad:status:%s:sold", ad.ID),
			})
		}
		if ad.HasType(addomain.TypeExchange) {
			actions = append(actions, models.InlineKeyboardButton{
				Text: "Обменяно", CallbackData: fmt.Sprintf("ad:status:%s:exchanged", ad.ID),
			})
		}
	} else {
		actions = append(actions, models.InlineKeyboardButton{
			Text: "Снова активно", CallbackData: fmt.Sprintf("ad:status:%s:active", ad.ID),
		})
	}
	actions = append(actions, models.InlineKeyboardButton{
		Text: "🗑 Удалить", CallbackData: fmt.Sprintf("ad:del:%s", ad.ID),
	})

	rows = append(rows, actions)
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// filterKeyboard renders the category, type and view controls under a
// result list, with the single label table providing button names
func (h *Handler) filterKeyboard(state catalogDomain.FilterState) *models.InlineKeyboardMarkup {
	mark := func(label, value, current string) string {
		if value == current {
			return "· " + label + " ·"
		}
		return label
	}

	categories := []models.InlineKeyboardButton{
		{Text: mark("Все", catalogDomain.All, state.Category), CallbackData: "flt:cat:all"},
	}
	for _, c := range []addomain.Category{addomain.CategoryFigures, addomain.CategoryMerch, addomain.CategoryPlush} {
		categories = append(categories, models.InlineKeyboardButton{
			Text:         mark(c.Label(), string(c), state.Category),
			CallbackData: "flt:cat:" + string(c),
		})
	}

	types := []models.InlineKeyboardButton{
		{Text: mark("Все", catalogDomain.All, state.Type), CallbackData: "flt:type:all"},
	}
	for _, t := range []addomain.AdType{addomain.TypeSale, addomain.TypeExchange} {
		types = append(types, models.InlineKeyboardButton{
			Text:         mark(t.Label(), string(t), state.Type),
			CallbackData: "flt:type:" + string(t),
		})
	}

	viewLabel := "Сетка"
	if state.Mode == catalogDomain.ModeGrid {
		viewLabel = "Список"
	}
	view := []models.InlineKeyboardButton{
		{Text: "Вид: " + viewLabel, CallbackData: "flt:view"},
	}

	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{categories, types, view},
	}
}
