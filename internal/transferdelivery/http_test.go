package transferdelivery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/kefaspay/wallet/internal/domain"
	"github.com/kefaspay/wallet/internal/middleware"
	"github.com/kefaspay/wallet/pkg/randompkg"
	"github.com/kefaspay/wallet/pkg/refpkg"
	"github.com/kefaspay/wallet/pkg/tokenpkg"
)

func setupTestRouter(t *testing.T, service Service) (*gin.Engine, tokenpkg.Maker) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		require.NoError(t, v.RegisterValidation("phone", ValidPhone))
	}

	tokenMaker, err := tokenpkg.NewPasetoMaker(randompkg.String(32))
	require.NoError(t, err)

	handler := NewHandler(service)

	engine := gin.New()

	authorized := engine.Group("/", middleware.AuthMiddleware(tokenMaker))
	authorized.POST("/transfers", handler.Create)
	authorized.GET("/transfers/:reference", handler.Get)
	authorized.POST("/wallets/fund", handler.Fund)

	return engine, tokenMaker
}

func TestCreate(t *testing.T) {
	userID := int64(1)
	receiverID := int64(2)
	reference := refpkg.UUIDGenerator{}.New()

	result := domain.TransferTxResult{
		Transaction: domain.Transaction{
			ID:         1,
			Reference:  reference,
			SenderID:   userID,
			ReceiverID: &receiverID,
			Amount:     300,
			Type:       domain.TypeTransfer,
			Status:     domain.StatusCompleted,
		},
	}

	testCases := []struct {
		name           string
		requestBody    gin.H
		setupAuth      func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker)
		buildStubs     func(service *MockService)
		wantStatusCode int
	}{
		{
			name:        "OK",
			requestBody: gin.H{"receiver_phone": "+2348100000002", "amount": "300", "description": "lunch"},
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthorizationTypeBearer, userID, time.Minute)
			},
			buildStubs: func(service *MockService) {
				arg := domain.CreateTransferParams{
					ReceiverPhone: "+2348100000002",
					Amount:        "300",
					Description:   "lunch",
				}

				service.EXPECT().Transfer(gomock.Any(), gomock.Eq(userID), gomock.Eq(arg)).
					Times(1).
					Return(result, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:        "NoAuthorization",
			requestBody: gin.H{"receiver_phone": "+2348100000002", "amount": "300"},
			setupAuth:   func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {},
			buildStubs: func(service *MockService) {
				service.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:        "MissingReceiverPhone",
			requestBody: gin.H{"amount": "300"},
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthorizationTypeBearer, userID, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:        "MissingAmount",
			requestBody: gin.H{"receiver_phone": "+2348100000002"},
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthorizationTypeBearer, userID, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:        "InvalidAmount",
			requestBody: gin.H{"receiver_phone": "+2348100000002", "amount": "-5"},
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthorizationTypeBearer, userID, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransferTxResult{}, domain.ErrInvalidAmount)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:        "InsufficientBalance",
			requestBody: gin.H{"receiver_phone": "+2348100000002", "amount": "1000000"},
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthorizationTypeBearer, userID, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransferTxResult{}, domain.ErrInsufficientBalance)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:        "SelfTransfer",
			requestBody: gin.H{"receiver_phone": "+2348100000001", "amount": "300"},
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthorizationTypeBearer, userID, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransferTxResult{}, domain.ErrSelfTransferNotAllowed)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:        "ReceiverNotFound",
			requestBody: gin.H{"receiver_phone": "+2348199999999", "amount": "300"},
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthorizationTypeBearer, userID, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransferTxResult{}, domain.ErrReceiverNotFound)
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:        "DuplicateReference",
			requestBody: gin.H{"receiver_phone": "+2348100000002", "amount": "300"},
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthorizationTypeBearer, userID, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransferTxResult{}, domain.ErrDuplicateReference)
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name:        "VersionConflict",
			requestBody: gin.H{"receiver_phone": "+2348100000002", "amount": "300"},
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthorizationTypeBearer, userID, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransferTxResult{}, domain.ErrVersionConflict)
			},
			wantStatusCode: http.StatusServiceUnavailable,
		},
		{
			name:        "InternalError",
			requestBody: gin.H{"receiver_phone": "+2348100000002", "amount": "300"},
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthorizationTypeBearer, userID, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransferTxResult{}, fmt.Errorf("pq: database is shutting down"))
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			engine, tokenMaker := setupTestRouter(t, service)

			body, err := json.Marshal(tc.requestBody)
			require.NoError(t, err)

			request, err := http.NewRequest(http.MethodPost, "/transfers", bytes.NewReader(body))
			require.NoError(t, err)

			tc.setupAuth(t, request, tokenMaker)

			recorder := httptest.NewRecorder()
			engine.ServeHTTP(recorder, request)

			require.Equal(t, tc.wantStatusCode, recorder.Code)

			if tc.wantStatusCode == http.StatusOK {
				var got response
				require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
				require.Equal(t, reference, got.Data.Reference)
				require.Equal(t, domain.StatusCompleted, got.Data.Transaction.Status)
			}
		})
	}
}

func TestFundEndpoint(t *testing.T) {
	userID := int64(1)
	reference := refpkg.UUIDGenerator{}.New()

	result := domain.TransferTxResult{
		Transaction: domain.Transaction{
			ID:        1,
			Reference: reference,
			SenderID:  userID,
			Amount:    500,
			Type:      domain.TypeDeposit,
			Status:    domain.StatusCompleted,
		},
	}

	testCases := []struct {
		name           string
		requestBody    gin.H
		setupAuth      func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker)
		buildStubs     func(service *MockService)
		wantStatusCode int
	}{
		{
			name:        "OK",
			requestBody: gin.H{"amount": "500"},
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthorizationTypeBearer, userID, time.Minute)
			},
			buildStubs: func(service *MockService) {
				arg := domain.FundWalletParams{Amount: "500"}

				service.EXPECT().Fund(gomock.Any(), gomock.Eq(userID), gomock.Eq(arg)).
					Times(1).
					Return(result, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:        "NoAuthorization",
			requestBody: gin.H{"amount": "500"},
			setupAuth:   func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {},
			buildStubs: func(service *MockService) {
				service.EXPECT().Fund(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:        "MissingAmount",
			requestBody: gin.H{},
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthorizationTypeBearer, userID, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Fund(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:        "WalletNotFound",
			requestBody: gin.H{"amount": "500"},
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthorizationTypeBearer, userID, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Fund(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransferTxResult{}, domain.ErrWalletNotFound)
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			engine, tokenMaker := setupTestRouter(t, service)

			body, err := json.Marshal(tc.requestBody)
			require.NoError(t, err)

			request, err := http.NewRequest(http.MethodPost, "/wallets/fund", bytes.NewReader(body))
			require.NoError(t, err)

			tc.setupAuth(t, request, tokenMaker)

			recorder := httptest.NewRecorder()
			engine.ServeHTTP(recorder, request)

			require.Equal(t, tc.wantStatusCode, recorder.Code)
		})
	}
}

func TestGet(t *testing.T) {
	userID := int64(1)
	reference := refpkg.UUIDGenerator{}.New()

	txn := domain.Transaction{
		ID:        1,
		Reference: reference,
		SenderID:  userID,
		Amount:    300,
		Type:      domain.TypeTransfer,
		Status:    domain.StatusCompleted,
	}

	testCases := []struct {
		name           string
		reference      string
		buildStubs     func(service *MockService)
		wantStatusCode int
	}{
		{
			name:      "OK",
			reference: reference,
			buildStubs: func(service *MockService) {
				service.EXPECT().ByReference(gomock.Any(), gomock.Eq(reference)).
					Times(1).
					Return(txn, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:      "NotFound",
			reference: "TXN-UNKNOWN",
			buildStubs: func(service *MockService) {
				service.EXPECT().ByReference(gomock.Any(), gomock.Eq("TXN-UNKNOWN")).
					Times(1).
					Return(domain.Transaction{}, domain.ErrTransactionNotFound)
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			engine, tokenMaker := setupTestRouter(t, service)

			request, err := http.NewRequest(http.MethodGet, "/transfers/"+tc.reference, nil)
			require.NoError(t, err)

			middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthorizationTypeBearer, userID, time.Minute)

			recorder := httptest.NewRecorder()
			engine.ServeHTTP(recorder, request)

			require.Equal(t, tc.wantStatusCode, recorder.Code)

			if tc.wantStatusCode == http.StatusOK {
				var got response
				require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
				require.Equal(t, reference, got.Data.Reference)
			}
		})
	}
}
