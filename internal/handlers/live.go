package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog/hlog"

	"github.com/grvc/ambassadors/internal/session"
	"github.com/grvc/ambassadors/internal/wizard"
)

const liveWriteTimeout = 5 * time.Second

type liveFrame struct {
	TimeLeft  wizard.TimeLeft `json:"timeLeft"`
	Countdown string          `json:"countdown"`
	IsClosed  bool            `json:"isClosed"`
	Step      int             `json:"step"`
}

// GET /wizard/live
// Pushes the session's countdown every interval and keeps the session alive
// while connected. The socket is closed normally once registration has
// closed or the session has ended.
func Live(sm *session.Manager, every time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, wiz, ok := sm.Lookup(r)
		if !ok {
			http.Error(w, "no registration session", http.StatusNotFound)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("accept websocket")
			return
		}
		defer conn.CloseNow()

		ctx := conn.CloseRead(r.Context())
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			if !sm.Touch(id, wiz) {
				_ = conn.Close(websocket.StatusNormalClosure, "session ended")
				return
			}
			st := wiz.Snapshot()
			frame := liveFrame{
				TimeLeft:  st.TimeLeft,
				Countdown: st.TimeLeft.String(),
				IsClosed:  st.IsClosed,
				Step:      int(st.Step),
			}
			wctx, cancel := context.WithTimeout(ctx, liveWriteTimeout)
			err := wsjson.Write(wctx, conn, frame)
			cancel()
			if err != nil {
				return
			}
			if st.IsClosed {
				_ = conn.Close(websocket.StatusNormalClosure, "registration closed")
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}
