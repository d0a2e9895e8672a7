package app

import (
	"net/http"

	"github.com/dumelo/kolo/internal/handler"
	"github.com/dumelo/kolo/internal/middleware"
)

func (app *Application) routes() http.Handler {
	mux := http.NewServeMux()

	middlewareRepo := middleware.New(app.errorHandler, app.Logger, app.DB.User(), &app.Config)

	routeHandler := handler.NewRouteHandler(&handler.RouteHandler{
		UserRepo:        app.DB.User(),
		JarRepo:         app.DB.Jar(),
		TransactionRepo: app.DB.Transaction(),
		ActivityRepo:    app.DB.Activity(),
		SettingsRepo:    app.DB.Settings(),

		ErrHandler:   app.errorHandler,
		Helper:       app.Helper,
		Mailer:       app.Mailer,
		Config:       &app.Config,
		Kafka:        app.Kafka,
		Aggregator:   app.Aggregator,
		Eganow:       app.Eganow,
		Paystack:     app.Paystack,
		FileUploader: app.FileUploader,
	})

	healthHandler := handler.NewHealthCheckHandler(app.errorHandler)

	mux.HandleFunc("GET /status", healthHandler.HandleHealthCheck)

	mux.HandleFunc("POST /auth/register", routeHandler.HandleAuthRegister)
	mux.HandleFunc("POST /auth/login", routeHandler.HandleAuthLogin)

	// public payment link; contributors don't need an account
	mux.HandleFunc("GET /link/{code}", routeHandler.HandleJarByShortCode)
	mux.HandleFunc("POST /link/{code}/contributions", routeHandler.HandleCreateContribution)

	// gateways call back here; authentication is by reference lookup
	mux.HandleFunc("POST /webhooks/{provider}", routeHandler.HandleGatewayWebhook)

	authenticated := func(fn http.HandlerFunc) http.Handler {
		return middlewareRepo.RequireAuthenticatedUser(fn)
	}

	mux.Handle("PATCH /account/withdrawal-account", authenticated(routeHandler.HandleSetWithdrawalAccount))

	mux.Handle("POST /jars", authenticated(routeHandler.HandleCreateJar))
	mux.Handle("GET /jars", authenticated(routeHandler.HandleUserJars))
	mux.Handle("GET /jars/{id}", authenticated(routeHandler.HandleJarDetails))
	mux.Handle("PATCH /jars/{id}", authenticated(routeHandler.HandleUpdateJar))
	mux.Handle("DELETE /jars/{id}", authenticated(routeHandler.HandleDeleteJar))
	mux.Handle("POST /jars/{id}/cover-image", authenticated(routeHandler.HandleUploadJarCover))

	mux.Handle("POST /jars/{id}/contributions", authenticated(routeHandler.HandleCreateContribution))
	mux.Handle("POST /jars/{id}/payouts", authenticated(routeHandler.HandleInitiatePayout))

	admin := func(fn http.HandlerFunc) http.Handler {
		return middlewareRepo.RequireAdminUser(fn)
	}

	mux.Handle("POST /admin/jars/{id}/freeze", admin(routeHandler.HandleFreezeJar))
	mux.Handle("POST /admin/jars/{id}/unfreeze", admin(routeHandler.HandleUnfreezeJar))
	mux.Handle("GET /admin/transactions", admin(routeHandler.HandleListTransactions))
	mux.Handle("GET /admin/settings/fees", admin(routeHandler.HandleGetFeeSettings))
	mux.Handle("PATCH /admin/settings/fees", admin(routeHandler.HandleUpdateFeeSettings))
	mux.Handle("POST /admin/transactions/recalculate-charges", admin(routeHandler.HandleRecalculateCharges))
	mux.Handle("POST /admin/jars/recalculate-totals", admin(routeHandler.HandleRecalculateJarTotals))

	return middlewareRepo.LogAccess(middlewareRepo.RecoverPanic(middlewareRepo.Authenticate(mux)))
}
