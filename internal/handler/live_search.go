package handler

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/user/moovie-pulse/internal/metrics"
	"github.com/user/moovie-pulse/internal/model"
	"github.com/user/moovie-pulse/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxInput   = 1024
)

// liveSearchInput 客户端每次输入发送一条
type liveSearchInput struct {
	Query string `json:"query"`
}

// liveSearchSession 一个 WebSocket 连接对应一个防抖控制器
type liveSearchSession struct {
	conn       *websocket.Conn
	controller *service.QueryController
	send       chan model.SearchState
}

// LiveSearch 实时搜索：客户端推送输入，服务端推送状态快照
func (h *Handler) LiveSearch(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[LiveSearch] WebSocket 升级失败: %v", err)
		return
	}

	s := &liveSearchSession{
		conn: conn,
		send: make(chan model.SearchState, 16),
	}
	s.controller = service.NewQueryController(h.Searcher, h.Config.SearchDebounce, s.publish)
	if !h.register(s) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
		return
	}
	defer h.unregister(s)

	metrics.LiveSearchSessions.Inc()
	defer metrics.LiveSearchSessions.Dec()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writePump()
	}()

	s.readPump()
	s.controller.Close()
	close(s.send)
	<-done
}

func (h *Handler) register(s *liveSearchSession) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.sessions[s] = struct{}{}
	return true
}

func (h *Handler) unregister(s *liveSearchSession) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
}

// CloseSessions 关闭所有实时搜索连接并拒绝新连接
// http.Server.Shutdown 不管已升级的连接，需要在等待后台记录任务前调用
func (h *Handler) CloseSessions() {
	h.mu.Lock()
	h.closing = true
	sessions := make([]*liveSearchSession, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.controller.Close()
		_ = s.conn.Close()
	}
	if len(sessions) > 0 {
		log.Printf("[LiveSearch] 已关闭 %d 个实时搜索连接", len(sessions))
	}
}

// publish 在控制器锁内调用，不能阻塞；队列满时丢掉最旧的快照
func (s *liveSearchSession) publish(state model.SearchState) {
	for {
		select {
		case s.send <- state:
			return
		default:
		}
		select {
		case <-s.send:
		default:
		}
	}
}

func (s *liveSearchSession) readPump() {
	defer s.conn.Close()
	s.conn.SetReadLimit(maxInput)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[LiveSearch] 连接异常断开: %v", err)
			}
			return
		}
		var in liveSearchInput
		if err := json.Unmarshal(data, &in); err != nil {
			continue
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		s.controller.Input(in.Query)
	}
}

func (s *liveSearchSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case state, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := s.conn.WriteJSON(state); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
