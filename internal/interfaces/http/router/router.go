// Package router mounts the API surface: auth, receivables ledger,
// realtime stream, autofill and the directory CRUD.
package router

import (
	appdir "github.com/freightflow/backend/internal/application/directory"
	domaindir "github.com/freightflow/backend/internal/domain/directory"
	"github.com/freightflow/backend/internal/infrastructure/auth"
	"github.com/freightflow/backend/internal/interfaces/http/handler"
	"github.com/freightflow/backend/internal/interfaces/http/middleware"
	"github.com/freightflow/backend/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies collects everything the API routes need.
type Dependencies struct {
	JWTService *auth.JWTService
	Resolver   *session.Resolver
	Directory  *appdir.Directory

	System      *handler.SystemHandler
	Auth        *handler.AuthHandler
	Ledger      *handler.LedgerHandler
	Stream      *handler.ReceivablesStreamHandler
	Users       *handler.UserHandler
	Attachments *handler.AttachmentHandler // nil when object storage is disabled

	Logger *zap.Logger
}

// Setup mounts all routes on the engine. Probes stay outside the
// versioned group; everything under /api/v1 carries a resolved session.
func Setup(engine *gin.Engine, deps Dependencies) {
	engine.GET("/health", deps.System.Health)
	engine.GET("/ready", deps.System.Ready)

	api := engine.Group("/api/v1")
	api.Use(middleware.Session(deps.JWTService, deps.Resolver, deps.Logger))

	api.POST("/auth/login", deps.Auth.Login)

	receivables := api.Group("/receivables")
	{
		receivables.GET("", deps.Ledger.ListReceivables)
		receivables.GET("/stream", deps.Stream.Stream)
		receivables.GET("/:registrationId", deps.Ledger.GetReceivable)
		receivables.POST("/:registrationId/payments", middleware.RequireAuth(), deps.Ledger.RegisterPayment)
		receivables.PUT("/:registrationId/payments", middleware.RequireAuth(), deps.Ledger.UpdatePayment)
		receivables.POST("/clear", middleware.RequireAuth(), deps.Ledger.BulkClear)
	}

	api.GET("/autofill/:registrationId", deps.Ledger.AutofillLookup)

	if deps.Attachments != nil {
		api.GET("/attachments/*storageKey", middleware.RequireAuth(), deps.Attachments.Download)
	}

	directory := api.Group("/directory", middleware.RequireAuth())
	{
		d := deps.Directory
		handler.NewDirectoryHandler(d.Vehicles, func() *domaindir.Vehicle { return &domaindir.Vehicle{} }).
			Register(directory.Group("/vehicles"))
		handler.NewDirectoryHandler(d.Operators, func() *domaindir.Operator { return &domaindir.Operator{} }).
			Register(directory.Group("/operators"))
		handler.NewDirectoryHandler(d.Clients, func() *domaindir.Client { return &domaindir.Client{} }).
			Register(directory.Group("/clients"))
		handler.NewDirectoryHandler(d.Suppliers, func() *domaindir.Supplier { return &domaindir.Supplier{} }).
			Register(directory.Group("/suppliers"))
		handler.NewDirectoryHandler(d.Warehouses, func() *domaindir.Warehouse { return &domaindir.Warehouse{} }).
			Register(directory.Group("/warehouses"))
		handler.NewDirectoryHandler(d.BankAccounts, func() *domaindir.BankAccount { return &domaindir.BankAccount{} }).
			Register(directory.Group("/bank-accounts"))

		users := directory.Group("/users")
		userCRUD := handler.NewDirectoryHandler(d.Users, func() *domaindir.User { return &domaindir.User{} })
		users.GET("", userCRUD.List)
		users.GET("/:key", userCRUD.Get)
		users.POST("", deps.Users.Create)
		users.PUT("/:key", userCRUD.Update)
		users.DELETE("/:key", userCRUD.Delete)
	}
}
