package handler

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/user/moovie-pulse/internal/config"
	"github.com/user/moovie-pulse/internal/model"
	"github.com/user/moovie-pulse/internal/service"
	"github.com/user/moovie-pulse/internal/utils"
)

// Handler HTTP 处理器
type Handler struct {
	Config   *config.Config
	Searcher *service.Searcher
	Ledger   *service.Ledger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[*liveSearchSession]struct{}
	closing  bool
}

// NewHandler 创建处理器
func NewHandler(cfg *config.Config, searcher *service.Searcher, ledger *service.Ledger) *Handler {
	return &Handler{
		Config:   cfg,
		Searcher: searcher,
		Ledger:   ledger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions: make(map[*liveSearchSession]struct{}),
	}
}

// Movies 一次性搜索，query 为空时返回热门列表
// 查询词原样使用，不做 trim
func (h *Handler) Movies(c *gin.Context) {
	query := c.Query("query")
	state := h.Searcher.Search(c.Request.Context(), query)

	switch state.Status {
	case model.StatusSuccess:
		utils.Success(c, state)
	case model.StatusEmpty:
		utils.SuccessWithMessage(c, state.Message, state)
	default:
		utils.BadGateway(c, state.Message, state)
	}
}

type trendingQuery struct {
	Limit *int `form:"limit" binding:"omitempty,min=1,max=20"`
}

// Trending 热搜排行
func (h *Handler) Trending(c *gin.Context) {
	var q trendingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequest(c, "limit 必须在 1 到 20 之间")
		return
	}
	limit := h.Config.TrendingLimit
	if q.Limit != nil {
		limit = *q.Limit
	}
	utils.Success(c, h.Ledger.ListTrending(c.Request.Context(), limit))
}
