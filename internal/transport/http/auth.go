package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/samber/oops"

	addomain "github.com/popmarket/popmarket/internal/modules/ad/domain"
	apperrors "github.com/popmarket/popmarket/internal/shared/errors"
)

// identity extracts and validates the Mini-App init data carried in
// the Authorization header as "tma <initData>". Browsing is anonymous;
// every mutation requires a validated identity.
func (s *Server) identity(r *http.Request) (addomain.TelegramUser, error) {
	scheme, initData, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "tma") || initData == "" {
		return addomain.TelegramUser{}, apperrors.ErrUnauthorized
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return addomain.TelegramUser{}, oops.With("context", "parsing init data").Wrap(apperrors.ErrUnauthorized)
	}

	user, valid := bot.ValidateWebappRequest(values, s.cfg.TelegramBotToken)
	if !valid || user == nil {
		return addomain.TelegramUser{}, apperrors.ErrUnauthorized
	}

	return addomain.TelegramUser{
		ID:           user.ID,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Username:     user.Username,
		LanguageCode: user.LanguageCode,
	}, nil
}
