package internal

import (
	"net/http"
	"watchsync/internal/controllers"
	"watchsync/internal/providers"
	"watchsync/internal/remote"
)

func InitRoutes(progress *controllers.ProgressController, account *controllers.AccountController, catalog *controllers.CatalogController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Any("/progress", map[string]http.Handler{
		http.MethodGet:    http.HandlerFunc(progress.GetProgress),
		http.MethodPost:   http.HandlerFunc(progress.SaveProgress),
		http.MethodDelete: http.HandlerFunc(progress.DeleteProgress),
	})
	routers.Get("/history", http.HandlerFunc(progress.History))
	routers.Get("/resume", http.HandlerFunc(progress.Resume))
	routers.Get("/continue", http.HandlerFunc(progress.Continue))
	routers.Post("/player/message", http.HandlerFunc(progress.PlayerMessage))
	routers.Post("/session/start", http.HandlerFunc(progress.StartSession))
	routers.Post("/session/end", http.HandlerFunc(progress.EndSession))
	routers.Get("/sessions", http.HandlerFunc(progress.Sessions))

	routers.Post("/auth/login", http.HandlerFunc(account.Login))
	routers.Post("/auth/logout", http.HandlerFunc(account.Logout))
	routers.Get("/auth/status", http.HandlerFunc(account.Status))
	routers.Get("/auth/profile", http.HandlerFunc(account.Profile))
	routers.Any("/watchlist", account.ListHandlers(remote.Watchlist))
	routers.Any("/favorites", account.ListHandlers(remote.Favorites))

	routers.Get("/catalog/search", http.HandlerFunc(catalog.Search))
	routers.Get("/catalog/trending", http.HandlerFunc(catalog.Trending))
	routers.Get("/catalog/discover", http.HandlerFunc(catalog.Discover))
	routers.Get("/catalog/details", http.HandlerFunc(catalog.Details))
	return routers
}
