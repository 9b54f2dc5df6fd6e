package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/avvvet/valentine-services/internal/cardsvc/imagestore"
	"github.com/avvvet/valentine-services/internal/cardsvc/models"
	"github.com/avvvet/valentine-services/internal/cardsvc/service"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

// multipart overhead allowed on top of the image itself
const formOverhead = 1 << 20

type CardService interface {
	CreateCard(ctx context.Context, in service.CreateCardInput) (*models.Card, error)
	GetCard(ctx context.Context, slug string) (*models.Card, error)
	Respond(ctx context.Context, slug, answer string) (*models.Card, error)
}

type Handler struct {
	cards     CardService
	tokenAuth *jwtauth.JWTAuth
}

func NewHandler(cards CardService) *Handler {
	return &Handler{cards: cards}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type CreateCardRequest struct {
	SenderName    string `json:"senderName"`
	RecipientName string `json:"recipientName"`
	Message       string `json:"message"`
}

type CreateCardResponse struct {
	Slug string `json:"slug"`
}

type RespondRequest struct {
	Response string `json:"response"`
}

type RespondResponse struct {
	Success  bool            `json:"success"`
	Response models.Response `json:"response"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeCreate(w, r)
	if err != nil {
		h.CreateResponse(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	card, err := h.cards.CreateCard(r.Context(), in)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			h.CreateResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid card fields", Details: err.Error()})
			return
		}
		log.Errorf("Error [CardService.CreateCard] %s", err)
		h.CreateResponse(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to create card", Details: err.Error()})
		return
	}

	h.CreateResponse(w, http.StatusCreated, CreateCardResponse{Slug: card.Slug})
}

// decodeCreate accepts either a JSON body or a multipart form with an
// optional "image" file.
func (h *Handler) decodeCreate(w http.ResponseWriter, r *http.Request) (service.CreateCardInput, error) {
	var in service.CreateCardInput

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req CreateCardRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return in, errors.New("invalid request body")
		}
		in.SenderName = req.SenderName
		in.RecipientName = req.RecipientName
		in.Message = req.Message
		return in, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, imagestore.MaxImageSize+formOverhead)
	if err := r.ParseMultipartForm(imagestore.MaxImageSize + formOverhead); err != nil {
		return in, errors.New("invalid form data")
	}

	in.SenderName = r.FormValue("senderName")
	in.RecipientName = r.FormValue("recipientName")
	in.Message = r.FormValue("message")

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil
	}
	if err != nil {
		return in, errors.New("invalid image upload")
	}

	if header.Size > imagestore.MaxImageSize {
		file.Close()
		return in, fmt.Errorf("image must be at most %d MB", imagestore.MaxImageSize>>20)
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		file.Close()
		return in, errors.New("upload must be an image")
	}

	// the multipart file stays open until the request body is closed
	in.Image = &service.ImageUpload{
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	}

	return in, nil
}

func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	card, err := h.cards.GetCard(r.Context(), slug)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			h.CreateResponse(w, http.StatusNotFound, ErrorResponse{Error: "Card not found"})
			return
		}
		log.Errorf("Error [CardService.GetCard] %s: %s", slug, err)
		h.CreateResponse(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}

	h.CreateResponse(w, http.StatusOK, card)
}

func (h *Handler) RespondCard(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid response"})
		return
	}

	card, err := h.cards.Respond(r.Context(), slug, req.Response)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			h.CreateResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid response"})
		case errors.Is(err, service.ErrNotFound):
			h.CreateResponse(w, http.StatusNotFound, ErrorResponse{Error: "Card not found"})
		case errors.Is(err, service.ErrConflict):
			h.CreateResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Card has already been responded to"})
		default:
			log.Errorf("Error [CardService.Respond] %s: %s", slug, err)
			h.CreateResponse(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to save response"})
		}
		return
	}

	h.CreateResponse(w, http.StatusOK, RespondResponse{Success: true, Response: card.Response})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, http.StatusOK, map[string]string{"status": "ok", "service": "card"})
}
