// Package transferdelivery manages delivery layer of transfers and deposits.
package transferdelivery

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

// Service provides service layer interface needed by transfer delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transferdelivery
type Service interface {
	Transfer(ctx context.Context, senderID int64, arg domain.CreateTransferParams) (domain.TransferTxResult, error)
	Fund(ctx context.Context, ownerID int64, arg domain.FundWalletParams) (domain.TransferTxResult, error)
	ByReference(ctx context.Context, reference string) (domain.Transaction, error)
}

// Handler facilitates transfer delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transfer handler.
func NewHandler(ts Service) *Handler {
	return &Handler{
		service: ts,
	}
}

type transferRequest struct {
	ReceiverPhone string `json:"receiver_phone" binding:"required,phone"`
	Amount        string `json:"amount" binding:"required"`
	Description   string `json:"description"`
}

type fundRequest struct {
	Amount      string `json:"amount" binding:"required"`
	Description string `json:"description"`
}

type data struct {
	Reference   string             `json:"reference"`
	Transaction domain.Transaction `json:"transaction"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

// Create handles http request to transfer funds to the user owning the
// receiver phone number.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req transferRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	authPayload := gctx.MustGet(middleware.AuthorizationPayloadKey).(*tokenpkg.Payload)

	arg := domain.CreateTransferParams{
		ReceiverPhone: req.ReceiverPhone,
		Amount:        req.Amount,
		Description:   req.Description,
	}

	result, err := h.service.Transfer(ctx, authPayload.UserID, arg)
	if err != nil {
		handleServiceError(gctx, err)
		return
	}

	res := response{
		Data: data{
			Reference:   result.Transaction.Reference,
			Transaction: result.Transaction,
		},
	}

	gctx.JSON(http.StatusOK, res)
}

// Fund handles http request to fund the caller's own wallet.
func (h *Handler) Fund(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req fundRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	authPayload := gctx.MustGet(middleware.AuthorizationPayloadKey).(*tokenpkg.Payload)

	arg := domain.FundWalletParams{
		Amount:      req.Amount,
		Description: req.Description,
	}

	result, err := h.service.Fund(ctx, authPayload.UserID, arg)
	if err != nil {
		handleServiceError(gctx, err)
		return
	}

	res := response{
		Data: data{
			Reference:   result.Transaction.Reference,
			Transaction: result.Transaction,
		},
	}

	gctx.JSON(http.StatusOK, res)
}

// Get handles http request to look up a transaction by its reference, so a
// retried request observes the terminal state instead of re-executing.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	reference := gctx.Param("reference")

	txn, err := h.service.ByReference(ctx, reference)
	if err != nil {
		handleServiceError(gctx, err)
		return
	}

	res := response{
		Data: data{
			Reference:   txn.Reference,
			Transaction: txn,
		},
	}

	gctx.JSON(http.StatusOK, res)
}

func handleServiceError(gctx *gin.Context, err error) {
	l := zerolog.Ctx(gctx.Request.Context())
	l.Info().Err(err).Send()

	switch err {
	case
		domain.ErrInvalidAmount,
		domain.ErrInsufficientBalance,
		domain.ErrSelfTransferNotAllowed:
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	case
		domain.ErrReceiverNotFound,
		domain.ErrWalletNotFound,
		domain.ErrTransactionNotFound:
		gctx.JSON(http.StatusNotFound, jsonresponse.Error(err))

		return
	case domain.ErrDuplicateReference:
		gctx.JSON(http.StatusConflict, jsonresponse.Error(err))

		return
	case domain.ErrVersionConflict:
		gctx.JSON(http.StatusServiceUnavailable, jsonresponse.Error(err))

		return
	}

	gctx.JSON(http.StatusInternalServerError, jsonresponse.Error(errorspkg.ErrInternal))
}
