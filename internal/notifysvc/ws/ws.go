package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Client serialises writes to one websocket connection; gorilla allows a
// single concurrent writer.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *Client) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *Client) Close() error {
	return c.conn.Close()
}

type Ws struct {
	connMap  sync.Map // to keep track of socket connection with socketId
	watchMap sync.Map // to keep track of watched card slug with socketId
}

func NewWs() *Ws {
	return &Ws{}
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) *Client {
	c := &Client{conn: conn}
	s.connMap.Store(socketId, c)
	return c
}

func (s *Ws) GetConnection(socketId string) (*Client, bool) {
	c, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return c.(*Client), true
}

// Watch points the socket at a card slug. A socket watches one card at a time.
func (s *Ws) Watch(socketId string, slug string) {
	s.watchMap.Store(socketId, slug)
}

func (s *Ws) GetWatched(socketId string) (string, bool) {
	slug, ok := s.watchMap.Load(socketId)
	if !ok {
		return "", false
	}
	return slug.(string), true
}

func (s *Ws) GetWatchers(slug string) ([]string, bool) {
	var sockets []string
	found := false

	s.watchMap.Range(func(key, value interface{}) bool {
		if value.(string) == slug {
			sockets = append(sockets, key.(string))
			found = true
		}
		return true // continue iterating
	})

	return sockets, found
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	s.watchMap.Delete(socketId)
}
