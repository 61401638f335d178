package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Rath300/research-collab/pkg/realtime"
)

const (
	streamBuffer    = 32
	streamKeepAlive = 25 * time.Second
)

type streamStatus struct {
	status realtime.Status
	err    error
}

// Stream relays inserts matching filter to the client as server-sent events
// until the client disconnects or the channel closes. A channel that cannot be
// opened is reported before any event is written.
func Stream(c echo.Context, filter realtime.Filter) error {
	ctx := c.Request().Context()
	ctx, hub, err := ectoinject.GetContext[*realtime.Hub](ctx)
	if err != nil || hub == nil {
		return httperror.NewHTTPError(http.StatusServiceUnavailable, "realtime updates are not available")
	}

	stop := make(chan struct{})
	defer close(stop)

	events := make(chan realtime.Event, streamBuffer)
	statuses := make(chan streamStatus, streamBuffer)

	sub := hub.NewSubscriber()
	defer sub.Close()
	teardown := sub.Subscribe(ctx, filter,
		func(e realtime.Event) {
			select {
			case events <- e:
			case <-stop:
			}
		},
		func(status realtime.Status, err error) {
			select {
			case statuses <- streamStatus{status, err}:
			case <-stop:
			default:
			}
		})
	defer teardown()

	select {
	case <-ctx.Done():
		return nil
	case s := <-statuses:
		switch s.status {
		case realtime.StatusSubscribed:
		case realtime.StatusTimedOut:
			return httperror.NewHTTPError(http.StatusGatewayTimeout, "timed out opening realtime channel")
		default:
			return httperror.NewHTTPError(http.StatusServiceUnavailable, "realtime channel unavailable")
		}
	}

	// a stream outlives the server write timeout
	_ = http.NewResponseController(c.Response()).SetWriteDeadline(time.Time{})

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintf(res, "event: status\ndata: %s\n\n", realtime.StatusSubscribed); err != nil {
		return nil
	}
	res.Flush()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-keepAlive.C:
			if _, err := fmt.Fprint(res, ": keep-alive\n\n"); err != nil {
				return nil
			}
		case s := <-statuses:
			if s.status == realtime.StatusClosed {
				return nil
			}
			if s.err != nil {
				if _, log, lerr := ectoinject.GetContext[ectologger.Logger](ctx); lerr == nil {
					log.WithContext(ctx).WithError(s.err).Warnf("realtime stream %s: %s", filter, s.status)
				}
			}
			continue
		case e := <-events:
			payload, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", strings.ToLower(string(e.Type)), payload); err != nil {
				return nil
			}
		}
		res.Flush()
	}
}
