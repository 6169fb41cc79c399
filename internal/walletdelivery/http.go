// Package walletdelivery manages delivery layer of wallets.
package walletdelivery

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

// Service provides service layer interface needed by wallet delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package walletdelivery
type Service interface {
	Get(ctx context.Context, ownerID int64) (domain.Wallet, error)
}

// Handler facilitates wallet delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns wallet handler.
func NewHandler(ws Service) *Handler {
	return &Handler{
		service: ws,
	}
}

type data struct {
	Balance int64 `json:"balance"`
}

type response struct {
	Data data `json:"data"`
}

// Balance handles http request to read the caller's wallet balance.
func (h *Handler) Balance(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	authPayload := gctx.MustGet(middleware.AuthorizationPayloadKey).(*tokenpkg.Payload)

	wallet, err := h.service.Get(ctx, authPayload.UserID)
	if err != nil {
		l.Info().Err(err).Send()

		if err == domain.ErrWalletNotFound {
			gctx.JSON(http.StatusNotFound, jsonresponse.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, jsonresponse.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{Balance: wallet.Balance}})
}
