package stoat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/stoatbridge/stoatbridge/internal/transfer"
)

const (
	fallbackEventsURL = "wss://ws.revolt.chat"

	// readyTimeout bounds how long to wait for the event socket's initial
	// state snapshot.
	readyTimeout = 15 * time.Second
)

// eventsURL resolves the event socket URL advertised by the API root.
func (c *Client) eventsURL(ctx context.Context) string {
	var root struct {
		WS string `json:"ws"`
	}

	if err := c.do(ctx, http.MethodGet, "/", nil, &root); err != nil || root.WS == "" {
		return fallbackEventsURL
	}

	return root.WS
}

// ListServers returns the servers the authenticated account owns. The REST
// API has no server listing, so the initial state snapshot of the event
// socket is used instead.
func (c *Client) ListServers(ctx context.Context) ([]transfer.ServerRef, error) {
	var me struct {
		ID string `json:"_id"`
	}

	if err := c.do(ctx, http.MethodGet, "/users/@me", nil, &me); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	target, err := url.Parse(c.eventsURL(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "parsing event socket url")
	}

	q := target.Query()
	q.Set("version", "1")
	q.Set("format", "json")
	q.Set("token", c.token)
	target.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to event socket")
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if ok {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return nil, errors.Wrap(err, "setting read deadline")
		}
	}

	for {
		var msg struct {
			Type    string `json:"type"`
			Error   string `json:"error"`
			Servers []struct {
				ID    string `json:"_id"`
				Name  string `json:"name"`
				Owner string `json:"owner"`
			} `json:"servers"`
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, errors.Wrap(err, "waiting for event socket snapshot")
		}

		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "Ready":
			var owned []transfer.ServerRef

			for _, s := range msg.Servers {
				if s.Owner == me.ID {
					owned = append(owned, transfer.ServerRef{ID: s.ID, Name: s.Name})
				}
			}

			return owned, nil
		case "Error", "NotFound":
			return nil, errors.Errorf("stoat: event socket rejected the session: %s", msg.Error)
		}
	}
}
