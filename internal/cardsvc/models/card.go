package models

import (
	"encoding/json"
	"time"
)

type Response string

const (
	ResponseUnset Response = ""
	ResponseYes   Response = "yes"
	ResponseNo    Response = "no"
)

// ParseResponse accepts exactly "yes" or "no".
func ParseResponse(s string) (Response, bool) {
	switch Response(s) {
	case ResponseYes, ResponseNo:
		return Response(s), true
	default:
		return ResponseUnset, false
	}
}

func (r Response) IsSet() bool {
	return r != ResponseUnset
}

// MarshalJSON renders an unset response as null.
func (r Response) MarshalJSON() ([]byte, error) {
	if r == ResponseUnset {
		return []byte("null"), nil
	}
	return json.Marshal(string(r))
}

func (r *Response) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = ResponseUnset
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*r = Response(s)
	return nil
}

type Card struct {
	ID            string     `json:"id" bson:"_id"`
	Slug          string     `json:"slug" bson:"slug"`
	SenderName    string     `json:"sender_name" bson:"sender_name"`
	RecipientName string     `json:"recipient_name" bson:"recipient_name"`
	Message       string     `json:"message" bson:"message"`
	ImageURL      *string    `json:"image_url" bson:"image_url,omitempty"`
	Response      Response   `json:"response" bson:"response,omitempty"`
	RespondedAt   *time.Time `json:"responded_at" bson:"responded_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
}

func (c *Card) Responded() bool {
	return c.Response.IsSet()
}
