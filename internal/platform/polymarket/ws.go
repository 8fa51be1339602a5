package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// dialTimeout bounds the WebSocket handshake.
	dialTimeout = 15 * time.Second
)

// WSConn is a single subscription connection to the CLOB market channel. It
// carries the full token set it was dialed with; changing the set means
// closing this connection and dialing a new one.
type WSConn struct {
	conn   *websocket.Conn
	tokens []string
}

// DialMarketChannel connects to the CLOB WebSocket and subscribes to the
// market channel for the given instrument tokens.
func DialMarketChannel(ctx context.Context, wsURL string, tokenIDs []string) (*WSConn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: dialTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("polymarket/ws: connect: %w", err)
	}

	cmd := WSCommand{
		Type:     "subscribe",
		AssetIDs: tokenIDs,
		Channel:  "market",
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(cmd); err != nil {
		conn.Close()
		return nil, fmt.Errorf("polymarket/ws: subscribe: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	return &WSConn{conn: conn, tokens: tokenIDs}, nil
}

// Tokens returns the token set this connection is subscribed to.
func (c *WSConn) Tokens() []string { return c.tokens }

// Listen reads messages until ctx is cancelled or the connection fails,
// sending every decoded price update to out. Malformed messages and unknown
// event types are dropped; a single bad field never aborts the stream.
func (c *WSConn) Listen(ctx context.Context, out chan<- PriceChange) error {
	pingDone := make(chan struct{})
	defer close(pingDone)
	go c.pingLoop(pingDone)

	// Close the socket when ctx ends so the blocking read returns.
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = c.conn.Close()
	})
	defer stop()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("polymarket/ws: read: %w", err)
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		for _, change := range decodeChanges(raw) {
			select {
			case out <- change:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Close shuts the connection down.
func (c *WSConn) Close() error {
	return c.conn.Close()
}

func (c *WSConn) pingLoop(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// decodeChanges normalizes one raw message into zero or more price updates.
// The market channel emits batched "price_change" events; anything else with
// an asset_id and price is treated as a legacy single-instrument update.
func decodeChanges(raw []byte) []PriceChange {
	var envelope WSEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}

	if envelope.EventType == "price_change" {
		var msg PriceChangeMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil
		}
		changes := msg.PriceChanges[:0]
		for _, ch := range msg.PriceChanges {
			if ch.AssetID != "" {
				changes = append(changes, ch)
			}
		}
		return changes
	}

	var legacy LegacyPriceMessage
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil
	}
	if legacy.AssetID == "" || legacy.Price == 0 {
		return nil
	}
	return []PriceChange{{
		AssetID: legacy.AssetID,
		BestAsk: legacy.Price,
		BestBid: legacy.Price,
		Size:    legacy.Size,
	}}
}
