package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"

	addomain "github.com/popmarket/popmarket/internal/modules/ad/domain"
	adService "github.com/popmarket/popmarket/internal/modules/ad/service"
	catalogDomain "github.com/popmarket/popmarket/internal/modules/catalog/domain"
	catalogService "github.com/popmarket/popmarket/internal/modules/catalog/service"
	galleryService "github.com/popmarket/popmarket/internal/modules/gallery/service"
	"github.com/popmarket/popmarket/internal/shared/config"
)

const listRenderLimit = 10

// Handler handles Telegram bot interactions: opening the Mini-App,
// browsing and managing ads, and paging through ad photos
type Handler struct {
	cfg     *config.Config
	ads     *adService.Service
	catalog *catalogService.Service
	gallery *galleryService.Service
	bot     *bot.Bot

	mu      sync.Mutex
	filters map[int64]*catalogDomain.FilterState
}

// New creates a new Telegram handler
func New(cfg *config.Config, ads *adService.Service, catalog *catalogService.Service, gallery *galleryService.Service) *Handler {
	return &Handler{
		cfg:     cfg,
		ads:     ads,
		catalog: catalog,
		gallery: gallery,
		filters: make(map[int64]*catalogDomain.FilterState),
	}
}

// SetBot sets the bot instance once it is constructed
func (h *Handler) SetBot(b *bot.Bot) {
	h.bot = b
}

// RegisterCommands registers bot commands and callback routes
func (h *Handler) RegisterCommands(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.handleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, h.handleHelp)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/ads", bot.MatchTypePrefix, h.handleAds)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/myads", bot.MatchTypeExact, h.handleMyAds)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "gal:", bot.MatchTypePrefix, h.handleGalleryCallback)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "ad:", bot.MatchTypePrefix, h.handleAdCallback)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "flt:", bot.MatchTypePrefix, h.handleFilterCallback)
}

// HandleUpdate processes updates no registered handler claimed
func (h *Handler) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message != nil && update.Message.Text != "" {
		// Unknown command or free text: treat it as a search query
		h.searchAndRender(ctx, b, update.Message.Chat.ID, update.Message.From, update.Message.Text)
	}
}

// AnnounceAd posts a freshly created ad to the configured channel.
// Failures are logged, never surfaced to the creating user.
func (h *Handler) AnnounceAd(ctx context.Context, ad *addomain.Ad) {
	if h.bot == nil || h.cfg.AnnounceChatID == 0 {
		return
	}

	text := renderAdCard(ad, true)
	var err error
	if len(ad.Images) > 0 {
		_, err = h.bot.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:  h.cfg.AnnounceChatID,
			Photo:   &models.InputFileString{Data: ad.Images[0]},
			Caption: text,
		})
	} else {
		_, err = h.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: h.cfg.AnnounceChatID,
			Text:   text,
		})
	}
	if err != nil {
		slog.Error("Failed to announce ad", "ad_id", ad.ID, "error", err)
	}
}

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{},
	}
	if h.cfg.WebAppURL != "" {
		keyboard.InlineKeyboard = append(keyboard.InlineKeyboard, []models.InlineKeyboardButton{
			{Text: "🛍 Открыть маркет", WebApp: &models.WebAppInfo{URL: h.cfg.WebAppURL}},
		})
	}

	text := `👋 Добро пожаловать в Pop Mart Маркет!

Здесь покупают, продают и меняют коллекционные фигурки, мерч и плюши.

Команды:
/ads [запрос] — смотреть объявления
/myads — мои объявления
/help — помощь`

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        text,
		ReplyMarkup: keyboard,
	})
}

func (h *Handler) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	text := `Команды:
/ads — последние объявления
/ads labubu — поиск по названию и описанию
/myads — ваши объявления со статусами

Под списком есть кнопки фильтров по категории и типу,
и переключатель вида (список/сетка).
Создать объявление можно в Mini-App по кнопке из /start.`

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
}

func (h *Handler) handleAds(ctx context.Context, b *bot.Bot, update *models.Update) {
	query := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/ads"))
	h.searchAndRender(ctx, b, update.Message.Chat.ID, update.Message.From, query)
}

func (h *Handler) searchAndRender(ctx context.Context, b *bot.Bot, chatID int64, from *models.User, query string) {
	state := h.filterFor(chatID)
	h.mu.Lock()
	state.Query = query
	snapshot := *state
	h.mu.Unlock()

	if err := h.catalog.Refresh(ctx); err != nil {
		slog.Error("Failed to refresh ads", "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "⚠️ Не удалось загрузить объявления, попробуйте ещё раз.",
		})
		return
	}

	h.renderResult(ctx, b, chatID, from, snapshot)
}

func (h *Handler) handleMyAds(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message.From == nil {
		return
	}
	userID := update.Message.From.ID

	ads, err := h.ads.MyAds(ctx, userID)
	if err != nil {
		slog.Error("Failed to load user ads", "user_id", userID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "⚠️ Не удалось загрузить ваши объявления.",
		})
		return
	}

	if len(ads) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "У вас пока нет объявлений. Создайте первое в Mini-App!",
		})
		return
	}

	for _, ad := range ads {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      update.Message.Chat.ID,
			Text:        renderAdCard(ad, false),
			ReplyMarkup: h.ownerKeyboard(ad),
		})
	}
}

func (h *Handler) renderResult(ctx context.Context, b *bot.Bot, chatID int64, from *models.User, state catalogDomain.FilterState) {
	result := h.catalog.Visible(state)

	switch result.Empty {
	case catalogDomain.EmptyNoAds:
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        "Пока нет объявлений. Станьте первым, кто разместит объявление!",
			ReplyMarkup: h.filterKeyboard(state),
		})
		return
	case catalogDomain.EmptyNoMatches:
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        "Ничего не найдено. Попробуйте изменить критерии поиска.",
			ReplyMarkup: h.filterKeyboard(state),
		})
		return
	}

	presentation := catalogDomain.PresentationFor(state.Mode)
	shown := result.Ads
	if len(shown) > listRenderLimit {
		shown = shown[:listRenderLimit]
	}

	if presentation.ImageFirst {
		h.renderGrid(ctx, b, chatID, shown)
	} else {
		h.renderList(ctx, b, chatID, from, shown)
	}

	summary := fmt.Sprintf("Показано %d из %d", len(shown), len(result.Ads))
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        summary,
		ReplyMarkup: h.filterKeyboard(state),
	})
}

// renderList is the compact list view: one text card per ad with the
// description line included
func (h *Handler) renderList(ctx context.Context, b *bot.Bot, chatID int64, from *models.User, ads []*addomain.Ad) {
	for _, ad := range ads {
		keyboard := h.viewerKeyboard(ad)
		if from != nil && from.ID == ad.AuthorID {
			keyboard = h.ownerKeyboard(ad)
		}
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        renderAdCard(ad, true),
			ReplyMarkup: keyboard,
		})
	}
}

// renderGrid is the image-first view: ads with photos go out as a
// media group, the rest as short captions
func (h *Handler) renderGrid(ctx context.Context, b *bot.Bot, chatID int64, ads []*addomain.Ad) {
	withImages := lo.Filter(ads, func(ad *addomain.Ad, _ int) bool {
		return len(ad.Images) > 0
	})

	media := lo.Map(withImages, func(ad *addomain.Ad, _ int) models.InputMedia {
		return &models.InputMediaPhoto{
			Media:   ad.Images[0],
			Caption: fmt.Sprintf("%s — %.0f ₽", ad.Title, ad.Price),
		}
	})

	for _, group := range lo.Chunk(media, 10) {
		if _, err := b.SendMediaGroup(ctx, &bot.SendMediaGroupParams{
			ChatID: chatID,
			Media:  group,
		}); err != nil {
			slog.Error("Failed to send media group", "error", err)
		}
	}

	for _, ad := range ads {
		if len(ad.Images) == 0 {
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   fmt.Sprintf("%s — %.0f ₽", ad.Title, ad.Price),
			})
		}
	}
}

func (h *Handler) filterFor(chatID int64) *catalogDomain.FilterState {
	h.mu.Lock()
	defer h.mu.Unlock()
	state, ok := h.filters[chatID]
	if !ok {
		state = &catalogDomain.FilterState{
			Category: catalogDomain.All,
			Type:     catalogDomain.All,
			Mode:     catalogDomain.ModeList,
		}
		h.filters[chatID] = state
	}
	return state
}

func renderAdCard(ad *addomain.Ad, withDescription bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s — %.0f ₽\n", ad.Title, ad.Price)
	fmt.Fprintf(&sb, "%s · %s · %s\n", ad.Category.Label(), renderTypes(ad.Types), ad.Location)
	if ad.Status != addomain.StatusActive {
		fmt.Fprintf(&sb, "Статус: %s\n", ad.Status.Label())
	}
	if withDescription {
		sb.WriteString("\n")
		sb.WriteString(ad.Description)
		sb.WriteString("\n")
	}
	if ad.ContactInfo != "" {
		fmt.Fprintf(&sb, "\nКонтакты: %s", ad.ContactInfo)
	}
	fmt.Fprintf(&sb, "\nАвтор: %s", ad.AuthorName)
	return sb.String()
}

func renderTypes(types []addomain.AdType) string {
	labels := lo.Map(types, func(t addomain.AdType, _ int) string {
		return t.Label()
	})
	return strings.Join(labels, " + ")
}
