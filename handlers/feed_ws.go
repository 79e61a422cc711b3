package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"proxo/middleware"
	"proxo/models"
	"proxo/services/feed"
	"proxo/services/geo"
	"proxo/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// pingInterval is how often the server pings the client.
	pingInterval = 30 * time.Second
	// pongWait is how long a connection may stay silent before it is considered dead.
	pongWait = 60 * time.Second
	// maxMessageSize bounds a single client message.
	maxMessageSize = 8192
	// writeWait bounds a single write.
	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are restricted by the CORS layer and the token check.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message types exchanged on the live feed socket.
const (
	msgFeed          = "feed"
	msgPosOptions    = "position_options"
	msgCancelResult  = "cancel_result"
	msgError         = "error"
	msgPosition      = "position"
	msgLocateByIP    = "locate_by_ip"
	msgChoosePlace   = "choose_place"
	msgClearLocation = "clear_location"
	msgCancel        = "cancel"
)

type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type wsOutbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type cancelResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// liveClient is one websocket connection bound to one feed session.
type liveClient struct {
	conn         *websocket.Conn
	session      *feed.Session
	ipPositioner geo.Positioner
	replies      chan wsOutbound
	logger       *zap.Logger
}

// LiveFeedHandler handles GET /api/hangouts/live. It upgrades to a websocket
// and streams complete feed views as the viewer's session produces them.
func (h *HangoutHandler) LiveFeedHandler(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "auth_required", "Authentication required")
		return
	}
	logger := getLogger(c).With(zap.String("viewer", viewer))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	session := feed.NewSession(h.Store, h.Resolver, h.Service, feed.Options{
		Viewer:          viewer,
		PositionOptions: h.PositionOptions,
		RefreshInterval: h.RefreshInterval,
		Logger:          logger,
	})
	go session.Run(ctx)
	defer session.Close()

	client := &liveClient{
		conn:    conn,
		session: session,
		replies: make(chan wsOutbound, 16),
		logger:  logger.With(zap.String("session", session.ID)),
	}
	if h.IPLocator != nil {
		client.ipPositioner = geo.NewCachedPositioner(h.IPLocator.ForIP(middleware.ClientIP(c)), nil)
	}

	client.logger.Info("Live feed connected")
	// The device runs the positioning itself, so it needs the options before its first report.
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(wsOutbound{Type: msgPosOptions, Data: h.PositionOptions.Device()}); err != nil {
		client.logger.Warn("Failed to send position options", zap.Error(err))
		return
	}
	go func() {
		client.readPump(ctx)
		cancel()
	}()
	client.writePump(ctx)
	client.logger.Info("Live feed disconnected")
}

// readPump turns client messages into session actions until the connection closes.
func (c *liveClient) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg wsMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("Websocket read error", zap.Error(err))
			}
			return
		}
		if err := c.handle(ctx, msg); err != nil {
			c.reply(ctx, wsOutbound{Type: msgError, Data: gin.H{"message": err.Error(), "for": msg.Type}})
		}
	}
}

func (c *liveClient) handle(ctx context.Context, msg wsMessage) error {
	switch msg.Type {
	case msgPosition:
		var report geo.PositionReport
		if err := json.Unmarshal(msg.Data, &report); err != nil {
			return err
		}
		return c.session.AcquireLocation(geo.NewReportedPositioner(report))

	case msgLocateByIP:
		if c.ipPositioner == nil {
			return c.session.AcquireLocation(nil)
		}
		return c.session.AcquireLocation(c.ipPositioner)

	case msgChoosePlace:
		var place struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		}
		if err := json.Unmarshal(msg.Data, &place); err != nil {
			return err
		}
		return c.session.SetLocation(models.Coordinates{Latitude: place.Latitude, Longitude: place.Longitude}, 0)

	case msgClearLocation:
		return c.session.ClearLocation()

	case msgCancel:
		var req struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return err
		}
		result := cancelResult{ID: req.ID, OK: true}
		if err := c.session.Cancel(ctx, req.ID); err != nil {
			c.logger.Info("Cancel from live feed failed", zap.String("id", req.ID), zap.Error(err))
			result.OK = false
			result.Error = err.Error()
		}
		c.reply(ctx, wsOutbound{Type: msgCancelResult, Data: result})
		return nil

	default:
		c.logger.Debug("Ignoring unknown message type", zap.String("type", msg.Type))
		return nil
	}
}

func (c *liveClient) reply(ctx context.Context, out wsOutbound) {
	select {
	case c.replies <- out:
	case <-ctx.Done():
	}
}

// writePump sends views, replies and pings until the session ends or a write fails.
func (c *liveClient) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case view, ok := <-c.session.Views():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(wsOutbound{Type: msgFeed, Data: view}); err != nil {
				return
			}

		case out := <-c.replies:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(out); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
