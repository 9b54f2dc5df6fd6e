package handlers

import (
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Route("/cards", func(r chi.Router) {
		r.Post("/", h.CreateCard)
		r.Get("/{slug}", h.GetCard)
		r.Post("/{slug}/respond", h.RespondCard)
	})

	// operator routes, guarded by a service token
	r.Route("/ops", func(r chi.Router) {
		r.Use(jwtauth.Verifier(h.tokenAuth))
		r.Use(jwtauth.Authenticator)

		r.Get("/health", h.HealthHandler)
	})
}

func (h *Handler) InitAuth(jwtKey string) {
	h.tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)
}

// OpsToken issues a service token for the /ops routes.
func (h *Handler) OpsToken(ttl time.Duration) (string, error) {
	_, tokenString, err := h.tokenAuth.Encode(map[string]interface{}{
		"service": "card",
		"exp":     time.Now().Add(ttl).Unix(),
	})
	return tokenString, err
}
