package hub

import (
	"time"

	"github.com/sirupsen/logrus"

	"letshare-server/internal/model"
)

// sweepLoop is the periodic dead-socket reaper (spec §4.3): some vendor
// socket stacks do not guarantee a disconnect callback on every path, so
// liveness is re-checked out-of-band.
func (h *Hub) sweepLoop() {
	ticker := time.NewTicker(h.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stopSweep:
			return
		case <-ticker.C:
			h.sweepDead()
		}
	}
}

func (h *Hub) sweepDead() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.bySocket))
	conns := make([]*model.Connection, 0, len(h.bySocket))
	for id, c := range h.bySocket {
		ids = append(ids, id)
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for i, conn := range conns {
		if err := conn.Sender.Ping(); err != nil {
			logrus.WithField("socket_id", ids[i]).Info("hub: sweep reaping dead socket")
			h.Disconnect(ids[i])
		}
	}
}
