package model

// SearchStatus 实时搜索的状态
type SearchStatus string

const (
	StatusIdle       SearchStatus = "idle"
	StatusDebouncing SearchStatus = "debouncing"
	StatusLoading    SearchStatus = "loading"
	StatusSuccess    SearchStatus = "success"
	StatusEmpty      SearchStatus = "empty"
	StatusError      SearchStatus = "error"
)

// 面向用户的提示文案
const (
	MessageNoMovies    = "No movies found. Please try a different search."
	MessageFetchFailed = "Failed to fetch movies. Please try again later."
)

// SearchState 某一时刻的搜索状态快照
type SearchState struct {
	Seq     uint64         `json:"seq"`
	Query   string         `json:"query"`
	Status  SearchStatus   `json:"status"`
	Message string         `json:"message,omitempty"`
	Results []MovieSummary `json:"results"`
}

// Loading 是否处于请求中
func (s SearchState) Loading() bool {
	return s.Status == StatusLoading
}
