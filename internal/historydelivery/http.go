// Package historydelivery manages delivery layer of transaction history.
package historydelivery

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kefaspay/wallet/internal/domain"
	"github.com/kefaspay/wallet/internal/middleware"
	"github.com/kefaspay/wallet/pkg/errorspkg"
	"github.com/kefaspay/wallet/pkg/jsonresponse"
	"github.com/kefaspay/wallet/pkg/tokenpkg"
)

// Service provides service layer interface needed by history delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package historydelivery
type Service interface {
	List(ctx context.Context, userID int64) ([]domain.Transaction, error)
}

// Handler facilitates history delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns history handler.
func NewHandler(hs Service) *Handler {
	return &Handler{
		service: hs,
	}
}

type data struct {
	Transactions []domain.Transaction `json:"transactions"`
}

type response struct {
	Data data `json:"data"`
}

// List handles http request to read the caller's transaction history,
// newest first.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	authPayload := gctx.MustGet(middleware.AuthorizationPayloadKey).(*tokenpkg.Payload)

	transactions, err := h.service.List(ctx, authPayload.UserID)
	if err != nil {
		l.Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, jsonresponse.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{Transactions: transactions}})
}
