package widget

import "context"

// CloseFilter intercepts a widget's close request. FilterClose returns true
// to claim the request and suppress default close handling, false to let
// the request continue to the next filter.
type CloseFilter interface {
	FilterClose(ctx context.Context, w Widget) bool
}

// CloseFilterFunc is a function adapter for CloseFilter.
type CloseFilterFunc func(ctx context.Context, w Widget) bool

// FilterClose implements the CloseFilter interface.
func (f CloseFilterFunc) FilterClose(ctx context.Context, w Widget) bool {
	return f(ctx, w)
}
