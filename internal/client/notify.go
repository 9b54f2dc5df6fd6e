package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/avvvet/valentine-services/internal/comm"
)

// WatchResponse waits on the notify service socket until the card gets an
// answer. It complements polling and gives up when ctx is done.
func WatchResponse(ctx context.Context, wsURL, slug string) (*comm.CardResponded, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("slug", slug)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial notify service: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var msg comm.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("read notify service: %w", err)
		}

		if msg.Type != comm.EventCardResponded {
			continue
		}
		var ev comm.CardResponded
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		if ev.Slug == slug {
			return &ev, nil
		}
	}
}
