// Package client talks to the card service over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/avvvet/valentine-services/internal/cardsvc/handlers"
	"github.com/avvvet/valentine-services/internal/cardsvc/models"
)

// APIError is a non-2xx answer from the card service.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("card service: %d %s (%s)", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("card service: %d %s", e.Status, e.Message)
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

type Image struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type CreateParams struct {
	SenderName    string
	RecipientName string
	Message       string
	Image         *Image
}

// CreateCard posts JSON, or a multipart form when an image is attached.
func (c *Client) CreateCard(ctx context.Context, p CreateParams) (string, error) {
	var (
		body        io.Reader
		contentType string
	)

	if p.Image == nil {
		b, err := json.Marshal(handlers.CreateCardRequest{
			SenderName:    p.SenderName,
			RecipientName: p.RecipientName,
			Message:       p.Message,
		})
		if err != nil {
			return "", err
		}
		body, contentType = bytes.NewReader(b), "application/json"
	} else {
		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		for k, v := range map[string]string{
			"senderName":    p.SenderName,
			"recipientName": p.RecipientName,
			"message":       p.Message,
		} {
			if err := mw.WriteField(k, v); err != nil {
				return "", err
			}
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, p.Image.Filename))
		h.Set("Content-Type", p.Image.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(part, p.Image.Body); err != nil {
			return "", err
		}
		if err := mw.Close(); err != nil {
			return "", err
		}
		body, contentType = buf, mw.FormDataContentType()
	}

	var out handlers.CreateCardResponse
	if err := c.do(ctx, http.MethodPost, "/cards", contentType, body, &out); err != nil {
		return "", err
	}
	return out.Slug, nil
}

func (c *Client) GetCard(ctx context.Context, slug string) (*models.Card, error) {
	var card models.Card
	if err := c.do(ctx, http.MethodGet, "/cards/"+url.PathEscape(slug), "", nil, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// Respond sends the answer. The returned card only carries the slug and the
// accepted response.
func (c *Client) Respond(ctx context.Context, slug string, answer models.Response) (*models.Card, error) {
	b, err := json.Marshal(handlers.RespondRequest{Response: string(answer)})
	if err != nil {
		return nil, err
	}

	var out handlers.RespondResponse
	path := "/cards/" + url.PathEscape(slug) + "/respond"
	if err := c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(b), &out); err != nil {
		return nil, err
	}
	return &models.Card{Slug: slug, Response: out.Response}, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e handlers.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			apiErr.Message = e.Error
			apiErr.Details = e.Details
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
