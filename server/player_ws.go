package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"artlens/config"
	"artlens/core/auth"
	"artlens/core/playback"
	"artlens/logger"

	"github.com/gorilla/websocket"
)

const (
	// WebSocket 配置
	writeWait      = 30 * time.Second    // 写入超时
	pongWait       = 60 * time.Second    // 等待 pong 响应超时
	pingPeriod     = (pongWait * 9) / 10 // ping 间隔 (必须小于 pongWait)
	maxMessageSize = 8192                // 最大消息大小
	sendBuffer     = 64                  // 发送队列长度，满了就丢弃
	flushWait      = time.Second         // 关闭前清空队列的最长时间
)

var (
	errConnClosed = errors.New("player connection closed")
	errSlowClient = errors.New("player send buffer full")
)

// PlayerHandler serves /ws/player: one playback session per connection,
// driving the audio element on the other end.
type PlayerHandler struct {
	cfg      *config.Config
	upgrader websocket.Upgrader
}

// NewPlayerHandler creates a new PlayerHandler.
func NewPlayerHandler(cfg *config.Config) *PlayerHandler {
	return &PlayerHandler{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// playerMessage is everything the client may send.
type playerMessage struct {
	Type     string          `json:"type"` // play, pause, resume, stop, mute, event
	Track    *playback.Track `json:"track,omitempty"`
	Token    uint64          `json:"token,omitempty"`
	Event    string          `json:"event,omitempty"`
	Position float64         `json:"position,omitempty"` // seconds
	Duration float64         `json:"duration,omitempty"` // seconds
	Error    string          `json:"error,omitempty"`
}

type stateMessage struct {
	Type  string         `json:"type"`
	State playback.State `json:"state"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// playerConn serializes all writes through one goroutine and implements
// playback.CommandSink.
type playerConn struct {
	conn    *websocket.Conn
	out     chan interface{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func (c *playerConn) Send(cmd playback.Command) error {
	return c.enqueue(cmd)
}

func (c *playerConn) enqueue(v interface{}) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.out <- v:
		return nil
	default:
		return errSlowClient
	}
}

func (c *playerConn) close() {
	c.once.Do(func() { close(c.done) })
}

// shutdown stops accepting messages and waits until the write loop has
// flushed what was already queued.
func (c *playerConn) shutdown() {
	c.close()
	<-c.stopped
}

// flush writes whatever is still queued, giving up after flushWait.
func (c *playerConn) flush() {
	c.conn.SetWriteDeadline(time.Now().Add(flushWait))
	for {
		select {
		case v := <-c.out:
			if err := c.conn.WriteJSON(v); err != nil {
				return
			}
		default:
			return
		}
	}
}

// writeLoop sends queued messages and keeps the connection alive with pings.
func (c *playerConn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer close(c.stopped)

	for {
		select {
		case v := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(v); err != nil {
				logger.Debug("Player write failed", logger.ErrorField(err))
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			c.flush()
			return
		}
	}
}

// WebSocketPlayerHandler upgrades the connection and runs a playback session
// until the client goes away.
func (h *PlayerHandler) WebSocketPlayerHandler(w http.ResponseWriter, r *http.Request) {
	// Extract token from query params, browsers cannot set headers on upgrade
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		logger.Warn("Invalid WebSocket token", logger.ErrorField(err))
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}
	userID := claims.UserID()

	// Upgrade to WebSocket
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade WebSocket",
			logger.String("userID", userID),
			logger.ErrorField(err))
		return
	}
	defer conn.Close()

	// Configure connection
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	pc := &playerConn{
		conn:    conn,
		out:     make(chan interface{}, sendBuffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go pc.writeLoop()
	defer pc.shutdown()

	// 每个连接一个播放会话
	loader := playback.NewRemoteLoader(pc)
	session := playback.NewSession(loader, playback.Options{
		LoadTimeout:      h.cfg.PlayerLoadTimeout,
		ProgressInterval: h.cfg.PlayerProgressInterval,
		Name:             userID,
		OnChange: func(st playback.State) {
			if err := pc.enqueue(stateMessage{Type: "state", State: st}); err != nil && err != errConnClosed {
				logger.Warn("Dropping player state", logger.String("userID", userID), logger.ErrorField(err))
			}
		},
	})
	// Cleanup queues the final unload and state; shutdown flushes them
	// before the connection closes.
	defer session.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Player connected", logger.String("userID", userID))
	_ = pc.enqueue(stateMessage{Type: "state", State: session.State()})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket unexpected close",
					logger.String("userID", userID),
					logger.ErrorField(err))
			}
			break
		}
		// Reset read deadline after receiving message
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg playerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = pc.enqueue(errorMessage{Type: "error", Error: "Invalid message format"})
			continue
		}
		if errMsg := handlePlayerMessage(ctx, session, loader, &msg); errMsg != "" {
			_ = pc.enqueue(errorMessage{Type: "error", Error: errMsg})
		}
	}

	logger.Info("Player disconnected", logger.String("userID", userID))
}

// handlePlayerMessage applies one client message and returns a non-empty
// error text when it was rejected.
func handlePlayerMessage(ctx context.Context, session *playback.Session, loader *playback.RemoteLoader, msg *playerMessage) string {
	switch msg.Type {
	case "play":
		if msg.Track == nil || msg.Track.URL == "" {
			return "Track with url is required"
		}
		session.Play(ctx, *msg.Track)
	case "pause":
		session.Pause()
	case "resume":
		session.Resume(ctx)
	case "stop":
		session.Stop()
	case "mute":
		session.ToggleMute()
	case "event":
		evType, ok := playback.ParseEventType(msg.Event)
		if !ok {
			return "Unknown event " + msg.Event
		}
		ev := playback.Event{
			Type:     evType,
			Position: seconds(msg.Position),
			Duration: seconds(msg.Duration),
		}
		if evType == playback.EventError {
			text := msg.Error
			if text == "" {
				text = "media error"
			}
			ev.Err = errors.New(text)
		}
		loader.Dispatch(msg.Token, ev)
	default:
		return "Unknown message type " + msg.Type
	}
	return ""
}

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
