// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/kefaspay/wallet/internal/historydelivery"
	"github.com/kefaspay/wallet/internal/historyservice"
	"github.com/kefaspay/wallet/internal/ledgerrepo"
	"github.com/kefaspay/wallet/internal/middleware"
	"github.com/kefaspay/wallet/internal/transferdelivery"
	"github.com/kefaspay/wallet/internal/transferrepo"
	"github.com/kefaspay/wallet/internal/transferservice"
	"github.com/kefaspay/wallet/internal/userrepo"
	"github.com/kefaspay/wallet/internal/walletdelivery"
	"github.com/kefaspay/wallet/internal/walletrepo"
	"github.com/kefaspay/wallet/internal/walletservice"
	"github.com/kefaspay/wallet/pkg/configpkg"
	"github.com/kefaspay/wallet/pkg/refpkg"
	"github.com/kefaspay/wallet/pkg/tokenpkg"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Engine *gin.Engine
	Config configpkg.Config
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes.
func New(conn *sql.DB, publisher transferservice.Publisher, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	walletRepo := walletrepo.NewRepoPGS(conn)
	ledgerRepo := ledgerrepo.NewRepoPGS(conn)
	transferRepo := transferrepo.NewRepoPGS(conn)
	userRepo := userrepo.NewRepoPGS(conn)

	tokenMaker, err := tokenpkg.NewPasetoMaker(config.TokenSymmetricKey)
	if err != nil {
		return nil, errors.New("cannot create token maker")
	}

	walletService := walletservice.New(walletRepo)
	historyService := historyservice.New(ledgerRepo)
	transferService := transferservice.New(
		transferRepo,
		walletRepo,
		userRepo,
		ledgerRepo,
		publisher,
		refpkg.UUIDGenerator{},
		config,
	)

	walletHandler := walletdelivery.NewHandler(walletService)
	historyHandler := historydelivery.NewHandler(historyService)
	transferHandler := transferdelivery.NewHandler(transferService)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("phone", transferdelivery.ValidPhone); err != nil {
			return nil, err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	authRoutes.POST("/transfers", transferHandler.Create)
	authRoutes.GET("/transfers/:reference", transferHandler.Get)
	authRoutes.POST("/wallets/fund", transferHandler.Fund)
	authRoutes.GET("/wallets/balance", walletHandler.Balance)
	authRoutes.GET("/transactions", historyHandler.List)

	server := &Server{
		DB:     conn,
		Engine: engine,
		Config: config,
	}

	return server, nil
}
