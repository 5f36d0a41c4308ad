package cli

import "github.com/dmitrijs2005/tokenkeeper/internal/client/refresh"

// renderer prints refresh-flow events above the prompt.
type renderer struct{}

func newRenderer() refresh.Notifier { return renderer{} }

func (renderer) Notify(e refresh.Event) {
	switch e.Kind {
	case refresh.EventStatusUpdated, refresh.EventHistoryLoaded:
		// shown by the command that asked for them
		return
	}
	if e.Message == "" {
		return
	}
	switch e.Level {
	case refresh.LevelError:
		printlnFn("[error]", e.Message)
	case refresh.LevelWarn:
		printlnFn("[warn]", e.Message)
	default:
		printlnFn(e.Message)
	}
}
