package daemon

import (
	"context"
	stdErrors "errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/xdy-forks/foundry-simple-weather/internal/display"
	"github.com/xdy-forks/foundry-simple-weather/internal/versiongate"
)

// notifierSet shows every notification on each of its notifiers.
type notifierSet []versiongate.Notifier

func (s notifierSet) Error(msg string) {
	for _, n := range s {
		n.Error(msg)
	}
}

// chatSet posts every chat message to each of its targets.
type chatSet []interface {
	Post(ctx context.Context, msg display.ChatMessage) error
}

func (s chatSet) Post(ctx context.Context, msg display.ChatMessage) error {
	var errs []error
	for _, c := range s {
		if err := c.Post(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return stdErrors.Join(errs...)
}

// originChecker accepts websocket upgrades from the listed origins. With no
// origins configured the upgrader's same-host check applies.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.ToLower(o), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}
