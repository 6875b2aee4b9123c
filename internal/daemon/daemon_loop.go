package daemon

import (
	"context"
	"log/slog"

	"github.com/xdy-forks/foundry-simple-weather/internal/daemon/events"
	"github.com/xdy-forks/foundry-simple-weather/internal/foundation/errors"
	"github.com/xdy-forks/foundry-simple-weather/internal/logfields"
)

// mainLoop dispatches every published event to the attached hooks, one at a
// time and each to completion. Handler errors are logged and never stop the
// loop.
func (d *Daemon) mainLoop(ctx context.Context, evts <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Main loop stopped by context cancellation")
			return
		case <-d.stopChan:
			d.logger.Info("Main loop stopped by stop signal")
			return
		case evt, ok := <-evts:
			if !ok {
				return
			}
			d.dispatch(ctx, evt)
		}
	}
}

func (d *Daemon) dispatch(ctx context.Context, evt events.Event) {
	name := evt.EventName()
	if d.hooks.Count(name) == 0 {
		d.logger.Debug("No handler attached", logfields.Event(name))
		return
	}
	if err := d.hooks.Call(ctx, evt); err != nil {
		level := slog.LevelWarn
		if errors.GetSeverity(err) == errors.SeverityFatal {
			level = slog.LevelError
		}
		d.logger.Log(ctx, level, "Event handler failed", logfields.Event(name), logfields.Error(err))
	}
}
