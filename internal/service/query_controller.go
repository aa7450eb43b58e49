package service

import (
	"context"
	"sync"
	"time"

	"github.com/user/moovie-pulse/internal/metrics"
	"github.com/user/moovie-pulse/internal/model"
)

// DefaultDebounce 输入静默多久后才发起请求
const DefaultDebounce = 500 * time.Millisecond

// QueryController 把连续的输入变成防抖后的查询
//
// 状态流转: idle -> debouncing -> loading -> success | empty | error。
// 每次输入都会让序号加一，只有序号仍是最新的响应才会生效，
// 旧请求的上下文同时被取消。
type QueryController struct {
	searcher *Searcher
	delay    time.Duration
	onChange func(model.SearchState)

	mu     sync.Mutex
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	state  model.SearchState
	closed bool
	wg     sync.WaitGroup
}

// NewQueryController onChange 在持有内部锁时调用，不能回调 controller 自身
func NewQueryController(searcher *Searcher, delay time.Duration, onChange func(model.SearchState)) *QueryController {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if onChange == nil {
		onChange = func(model.SearchState) {}
	}
	return &QueryController{
		searcher: searcher,
		delay:    delay,
		onChange: onChange,
		state: model.SearchState{
			Status:  model.StatusIdle,
			Results: []model.MovieSummary{},
		},
	}
}

// Input 接收最新的输入值，重置防抖计时
func (c *QueryController) Input(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.seq++
	seq := c.seq
	if c.timer != nil {
		c.timer.Stop()
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	// 防抖期间保留上一次的结果
	c.state = model.SearchState{
		Seq:     seq,
		Query:   value,
		Status:  model.StatusDebouncing,
		Results: c.state.Results,
	}
	c.onChange(c.state)

	c.timer = time.AfterFunc(c.delay, func() {
		c.fire(seq, value)
	})
}

func (c *QueryController) fire(seq uint64, value string) {
	c.mu.Lock()
	if c.closed || seq != c.seq {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state.Status = model.StatusLoading
	c.state.Message = ""
	c.onChange(c.state)
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	result := c.searcher.Fetch(ctx, value)

	c.mu.Lock()
	defer c.mu.Unlock()
	cancel()
	if c.closed || seq != c.seq {
		metrics.StaleResponsesTotal.Inc()
		return
	}
	c.cancel = nil

	result.Seq = seq
	c.state = result
	c.onChange(c.state)
	c.searcher.RecordIfSearched(result)
}

// State 当前状态快照
func (c *QueryController) State() model.SearchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close 停止计时器、取消进行中的请求并等待其返回
func (c *QueryController) Close() {
	c.mu.Lock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
	c.wg.Wait()
}
