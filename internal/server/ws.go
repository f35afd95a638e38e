package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mapdesk/internal/controller"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

// Intent is a message from the document
type Intent struct {
	Type    string  `json:"type"`
	Query   string  `json:"query,omitempty"`
	Layer   string  `json:"layer,omitempty"`
	Visible bool    `json:"visible,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
	Zoom    int     `json:"zoom,omitempty"`
	Width   int     `json:"width,omitempty"`
	Height  int     `json:"height,omitempty"`
}

// session is one connected document
type session struct {
	conn    *websocket.Conn
	ctrl    *controller.Controller
	log     *zap.Logger
	outChan chan controller.Event

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	searches  sync.WaitGroup
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sess := newSession(conn, s.ctrl, s.log, sendBuffer)
	sess.log.Info("document connected")

	unsubscribe := s.ctrl.SubscribeWithSnapshot(sess.push)
	go sess.writeMsgLoop()
	sess.readMsgLoop()

	unsubscribe()
	sess.Close()
	sess.searches.Wait()
	sess.log.Info("document disconnected")
}

func newSession(conn *websocket.Conn, ctrl *controller.Controller, log *zap.Logger, buffer int) *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		conn:    conn,
		ctrl:    ctrl,
		log:     log.With(zap.String("remote", conn.RemoteAddr().String())),
		outChan: make(chan controller.Event, buffer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// push runs under the controller lock and must never block. A document
// too slow to drain its queue is disconnected.
func (s *session) push(ev controller.Event) {
	select {
	case <-s.ctx.Done():
	case s.outChan <- ev:
	default:
		s.log.Warn("document not keeping up, dropping connection", zap.String("event", string(ev.Type)))
		s.Close()
	}
}

// Close tears the session down once
func (s *session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.conn.Close()
	})
}

func (s *session) readMsgLoop() {
	s.conn.SetReadLimit(64 * 1024)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in Intent
		if err := s.conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) &&
				s.ctx.Err() == nil {
				s.log.Warn("websocket read", zap.Error(err))
			}
			return
		}
		s.handle(in)
	}
}

func (s *session) handle(in Intent) {
	switch in.Type {
	case "search":
		// Searches may overlap; the controller keeps only the newest.
		s.searches.Add(1)
		go func() {
			defer s.searches.Done()
			_, err := s.ctrl.Search(s.ctx, in.Query)
			if err != nil && !errors.Is(err, controller.ErrNotFound) && !errors.Is(err, controller.ErrSuperseded) {
				s.log.Debug("search intent failed", zap.Error(err))
			}
		}()
	case "world":
		s.ctrl.ResetWorld()
	case "toggle":
		if err := s.ctrl.SetOverlayVisible(in.Layer, in.Visible); err != nil {
			s.log.Warn("toggle intent", zap.Error(err))
		}
	case "moveend":
		s.ctrl.SyncView(in.Lat, in.Lon, in.Zoom)
	case "resize":
		s.ctrl.SetViewport(in.Width, in.Height)
	default:
		s.log.Warn("unknown intent", zap.String("type", in.Type))
	}
}

func (s *session) writeMsgLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case <-s.ctx.Done():
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case ev := <-s.outChan:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(ev); err != nil {
				s.log.Warn("websocket write", zap.Error(err))
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
