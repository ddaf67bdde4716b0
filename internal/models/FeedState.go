package models

// PageCursor is the opaque forward-pagination cursor returned by the transport.
type PageCursor struct {
	MinID string `json:"min_id,omitempty"`
	MaxID string `json:"max_id,omitempty"`
}

func (c *PageCursor) HasMore() bool {
	return c != nil && c.MaxID != ""
}

type PageRequest struct {
	MinID string
	MaxID string
	Limit int
	// Fresh bypasses any response cache between the feed and the server.
	Fresh bool
}

// Page is one transport response. A nil Cursor means the server returned none.
type Page[T any] struct {
	Items  []T         `json:"items"`
	Cursor *PageCursor `json:"cursor,omitempty"`
}

type FeedPhase int

const (
	PhaseLoading FeedPhase = iota
	PhaseDisplaying
	PhaseError
)

func (p FeedPhase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseDisplaying:
		return "displaying"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

func (p FeedPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

type PagingState int

const (
	HasNextPage PagingState = iota
	LoadingNextPage
	Exhausted
)

func (s PagingState) String() string {
	switch s {
	case HasNextPage:
		return "has_next_page"
	case LoadingNextPage:
		return "loading_next_page"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

func (s PagingState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FeedState is the rendering-facing snapshot of a feed. Items and Paging are
// meaningful only in PhaseDisplaying, Error only in PhaseError.
type FeedState[T any] struct {
	Phase  FeedPhase   `json:"phase"`
	Items  []T         `json:"items"`
	Paging PagingState `json:"paging"`
	Error  ErrorKind   `json:"error,omitempty"`
}

func LoadingState[T any]() FeedState[T] {
	return FeedState[T]{Phase: PhaseLoading}
}

func DisplayingState[T any](items []T, paging PagingState) FeedState[T] {
	return FeedState[T]{Phase: PhaseDisplaying, Items: items, Paging: paging}
}

func ErrorState[T any](kind ErrorKind) FeedState[T] {
	return FeedState[T]{Phase: PhaseError, Error: kind}
}
