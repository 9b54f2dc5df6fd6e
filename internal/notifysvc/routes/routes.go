package routes

import (
	"github.com/avvvet/valentine-services/internal/notifysvc/handlers"
	"github.com/avvvet/valentine-services/internal/notifysvc/ws"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func SetRoutes(r chi.Router, ws *ws.Ws, tokenAuth *jwtauth.JWTAuth) {
	h := handlers.NewHandler(ws)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/ws", h.HandleWebSocket)

		// operator routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/health", h.HealthHandler)
		})
	})
}
