package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/avvvet/valentine-services/internal/cardsvc/models"
	"github.com/avvvet/valentine-services/internal/cardsvc/service"
	"github.com/avvvet/valentine-services/internal/cardsvc/store"
	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImages struct {
	contentType string
}

func (f *fakeImages) Put(ctx context.Context, contentType string, body io.Reader, size int64) (string, error) {
	f.contentType = contentType
	return "https://img.example.com/cards/photo.png", nil
}

type brokenService struct{}

func (brokenService) CreateCard(ctx context.Context, in service.CreateCardInput) (*models.Card, error) {
	return nil, errors.Join(service.ErrStorage, errors.New("db down"))
}

func (brokenService) GetCard(ctx context.Context, slug string) (*models.Card, error) {
	return nil, errors.Join(service.ErrStorage, errors.New("db down"))
}

func (brokenService) Respond(ctx context.Context, slug, answer string) (*models.Card, error) {
	return nil, errors.Join(service.ErrStorage, errors.New("db down"))
}

func newTestRouter(cards CardService) (*chi.Mux, *Handler) {
	h := NewHandler(cards)
	h.InitAuth("test-secret")
	r := chi.NewRouter()
	h.SetRoutes(r)
	return r, h
}

func do(t *testing.T, r http.Handler, method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestCardLifecycle(t *testing.T) {
	r, _ := newTestRouter(service.NewCardService(store.NewMemoryCardStore(), nil, nil))

	rec := do(t, r, http.MethodPost, "/cards", "application/json",
		strings.NewReader(`{"senderName":"Alex","recipientName":"Jordan","message":"Hi"}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created CreateCardResponse
	decode(t, rec, &created)
	assert.Len(t, created.Slug, 10)

	rec = do(t, r, http.MethodGet, "/cards/"+created.Slug, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]interface{}
	decode(t, rec, &raw)
	assert.Equal(t, "Alex", raw["sender_name"])
	assert.Equal(t, "Jordan", raw["recipient_name"])
	assert.Equal(t, "Hi", raw["message"])
	assert.Nil(t, raw["response"])
	assert.Nil(t, raw["responded_at"])
	assert.Nil(t, raw["image_url"])

	rec = do(t, r, http.MethodPost, "/cards/"+created.Slug+"/respond", "application/json",
		strings.NewReader(`{"response":"yes"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"response":"yes"}`, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/cards/"+created.Slug+"/respond", "application/json",
		strings.NewReader(`{"response":"no"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Card has already been responded to"}`, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/cards/"+created.Slug, "", nil)
	var card models.Card
	decode(t, rec, &card)
	assert.Equal(t, models.ResponseYes, card.Response)
	assert.NotNil(t, card.RespondedAt)
}

func TestCreateCardTooLong(t *testing.T) {
	r, _ := newTestRouter(service.NewCardService(store.NewMemoryCardStore(), nil, nil))

	body, err := json.Marshal(CreateCardRequest{
		SenderName:    strings.Repeat("é", 51),
		RecipientName: "Sam",
		Message:       "Hi",
	})
	require.NoError(t, err)

	rec := do(t, r, http.MethodPost, "/cards", "application/json", bytes.NewReader(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, "Invalid card fields", resp.Error)
	assert.Contains(t, resp.Details, "SenderName must be at most 50 characters")
}

func TestCreateCardMissingFields(t *testing.T) {
	r, _ := newTestRouter(service.NewCardService(store.NewMemoryCardStore(), nil, nil))

	rec := do(t, r, http.MethodPost, "/cards", "application/json",
		strings.NewReader(`{"senderName":"Alex","message":"Hi"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, "Invalid card fields", body.Error)

	rec = do(t, r, http.MethodPost, "/cards", "application/json", strings.NewReader(`{`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCardMultipart(t *testing.T) {
	images := &fakeImages{}
	r, _ := newTestRouter(service.NewCardService(store.NewMemoryCardStore(), images, nil))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("senderName", "Alex"))
	require.NoError(t, mw.WriteField("recipientName", "Jordan"))
	require.NoError(t, mw.WriteField("message", "Hi"))

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="image"; filename="us.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := do(t, r, http.MethodPost, "/cards", mw.FormDataContentType(), &buf)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "image/png", images.contentType)

	var created CreateCardResponse
	decode(t, rec, &created)

	rec = do(t, r, http.MethodGet, "/cards/"+created.Slug, "", nil)
	var card models.Card
	decode(t, rec, &card)
	require.NotNil(t, card.ImageURL)
	assert.Equal(t, "https://img.example.com/cards/photo.png", *card.ImageURL)
}

func TestCreateCardRejectsNonImage(t *testing.T) {
	r, _ := newTestRouter(service.NewCardService(store.NewMemoryCardStore(), &fakeImages{}, nil))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("senderName", "Alex"))
	require.NoError(t, mw.WriteField("recipientName", "Jordan"))
	require.NoError(t, mw.WriteField("message", "Hi"))
	fw, err := mw.CreateFormFile("image", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := do(t, r, http.MethodPost, "/cards", mw.FormDataContentType(), &buf)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCardNotFound(t *testing.T) {
	r, _ := newTestRouter(service.NewCardService(store.NewMemoryCardStore(), nil, nil))

	rec := do(t, r, http.MethodGet, "/cards/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Card not found"}`, rec.Body.String())
}

func TestRespondErrors(t *testing.T) {
	svc := service.NewCardService(store.NewMemoryCardStore(), nil, nil)
	r, _ := newTestRouter(svc)

	card, err := svc.CreateCard(context.Background(), service.CreateCardInput{SenderName: "Alex", RecipientName: "Jordan", Message: "Hi"})
	require.NoError(t, err)

	rec := do(t, r, http.MethodPost, "/cards/"+card.Slug+"/respond", "application/json", strings.NewReader(`{"response":"maybe"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid response"}`, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/cards/nonexistent/respond", "application/json", strings.NewReader(`{"response":"yes"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStorageErrorsAre500(t *testing.T) {
	r, _ := newTestRouter(brokenService{})

	rec := do(t, r, http.MethodPost, "/cards", "application/json",
		strings.NewReader(`{"senderName":"Alex","recipientName":"Jordan","message":"Hi"}`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, "Failed to create card", body.Error)
	assert.NotEmpty(t, body.Details)

	rec = do(t, r, http.MethodGet, "/cards/abc", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(t, r, http.MethodPost, "/cards/abc/respond", "application/json", strings.NewReader(`{"response":"yes"}`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOpsHealthNeedsToken(t *testing.T) {
	r, h := newTestRouter(service.NewCardService(store.NewMemoryCardStore(), nil, nil))

	rec := do(t, r, http.MethodGet, "/ops/health", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := h.OpsToken(time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ops/health", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
