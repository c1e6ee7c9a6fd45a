package websocket

import (
	"errors"
	"fmt"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/lensvault/lensvault_server/internal/download"
	"github.com/lensvault/lensvault_server/internal/lightbox"
	"github.com/lensvault/lensvault_server/internal/pinauth"
	"github.com/lensvault/lensvault_server/internal/portfolio"
	"github.com/rs/zerolog/log"
)

const (
	writeTimeout   = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4 * 1024
	sendBufferSize = 256
)

// Client is one viewer socket. It owns the lightbox navigator for its
// connection; navigation state is per-socket, not per-session.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	sess      *pinauth.Session
	caps      download.Capabilities
	item      *portfolio.Item
	navigator *lightbox.Navigator
	router    *download.Router
	send      chan interface{}
}

func NewClient(hub *Hub, conn *websocket.Conn, sess *pinauth.Session, caps download.Capabilities, item *portfolio.Item, router *download.Router) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		sess:      sess,
		caps:      caps,
		item:      item,
		navigator: lightbox.NewNavigator(len(item.Media)),
		router:    router,
		send:      make(chan interface{}, sendBufferSize),
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg IncomingMessage
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Debug().
					Str("sessionId", c.sess.ID).
					Err(err).
					Msg("[WS] Read error")
			} else {
				log.Debug().
					Str("sessionId", c.sess.ID).
					Msg("[WS] Viewer disconnected")
			}
			return
		}

		c.handleMessage(&msg)
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case MessageTypeOpen:
		if err := c.navigator.Open(msg.Index); err != nil {
			c.sendError(err)
			return
		}
		c.sendState()

	case MessageTypeNext:
		if err := c.navigator.Next(); err != nil {
			c.sendError(err)
			return
		}
		c.sendState()

	case MessageTypePrevious:
		if err := c.navigator.Previous(); err != nil {
			c.sendError(err)
			return
		}
		c.sendState()

	case MessageTypeClose:
		c.navigator.Close()
		c.sendState()

	case MessageTypeDownload:
		c.sendPlan(download.SingleAsset(msg.Index))

	case MessageTypeDownloadCurrent:
		index, open := c.navigator.Current()
		if !open {
			c.sendError(lightbox.ErrClosed)
			return
		}
		c.sendPlan(download.SingleAsset(index))

	case MessageTypeDownloadAll:
		c.sendPlan(download.AllAssets())

	case MessageTypePing:
		c.send <- &OutgoingMessage{Type: MessageTypePong}

	default:
		log.Debug().
			Str("type", string(msg.Type)).
			Msg("[WS] Unknown message type")
	}
}

// sendPlan answers a download command with the routing verdict. The socket
// only plans; the actual transfer runs over HTTP at the returned URL.
func (c *Client) sendPlan(target download.Target) {
	decision, err := c.router.Plan(c.sess, c.caps, c.item, target)
	if err != nil {
		if errors.Is(err, download.ErrIndexInvalid) {
			c.sendError(err)
			return
		}
		log.Error().Err(err).Str("sessionId", c.sess.ID).Msg("[WS] Plan failed")
		c.sendError(fmt.Errorf("download planning failed"))
		return
	}

	msg := &PlanMessage{Type: MessageTypePlan}
	switch decision.Kind {
	case download.DecisionPinRequired:
		msg.Action = "pin"
		msg.PinRequired = true
		msg.URL = fmt.Sprintf("/share/%s/pin", c.item.Slug)
	case download.DecisionRedirect:
		msg.Action = "redirect"
		msg.URL = decision.RedirectURL
	case download.DecisionSingle:
		msg.Action = "download"
		msg.URL = fmt.Sprintf("/share/%s/assets/%d/download", c.item.Slug, decision.Index)
	case download.DecisionArchive:
		msg.Action = "download"
		msg.URL = fmt.Sprintf("/share/%s/download", c.item.Slug)
	case download.DecisionNone:
		msg.Action = "none"
	}

	c.send <- msg
}

func (c *Client) sendState() {
	index, open := c.navigator.Current()
	c.send <- &StateMessage{
		Type:  MessageTypeState,
		Open:  open,
		Index: index,
	}
}

func (c *Client) sendError(err error) {
	c.send <- &OutgoingMessage{
		Type:  MessageTypeError,
		Error: err.Error(),
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel closed
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			err := c.conn.WriteJSON(message)
			if err != nil {
				log.Debug().
					Str("sessionId", c.sess.ID).
					Err(err).
					Msg("[WS] Write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Str("sessionId", c.sess.ID).
					Err(err).
					Msg("[WS] Ping error")
				return
			}
		}
	}
}
