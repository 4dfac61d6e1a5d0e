package sandwich

import (
	"fmt"
	"time"

	"github.com/WelcomerTeam/Sandwich-QQBot/qq"
)

const DefaultHeartbeatInterval = time.Duration(qq.DefaultHeartbeatInterval) * time.Millisecond

// HeartbeatTick is the outcome of polling the Heartbeater.
type HeartbeatTick struct {
	Send     bool
	Liveness error
}

// Heartbeater decides when heartbeats are due and whether the gateway is still
// acknowledging them. It never performs I/O.
type Heartbeater struct {
	interval time.Duration

	started  bool
	lastSent time.Time
	lastAck  time.Time
	pending  bool

	// missed windows already reported since the last acknowledgement.
	reported int64
}

func NewHeartbeater() *Heartbeater {
	return &Heartbeater{
		interval: DefaultHeartbeatInterval,
	}
}

func (h *Heartbeater) Interval() time.Duration {
	return h.interval
}

// Pending reports whether a heartbeat is awaiting acknowledgement.
func (h *Heartbeater) Pending() bool {
	return h.pending
}

// OnHello sets the negotiated interval and restarts timing from now.
func (h *Heartbeater) OnHello(interval time.Duration, now time.Time) {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}

	h.interval = interval
	h.started = true
	h.lastSent = now
	h.lastAck = now
	h.pending = false
	h.reported = 0
}

// OnSent records a heartbeat written at now, whether it was due or requested by
// the gateway. Its acknowledgement is timed from now.
func (h *Heartbeater) OnSent(now time.Time) {
	h.lastSent = now
	h.pending = true
}

// OnAck clears the pending heartbeat and returns the round trip since it was sent.
func (h *Heartbeater) OnAck(now time.Time) time.Duration {
	var latency time.Duration

	if h.pending {
		latency = now.Sub(h.lastSent)
	}

	h.pending = false
	h.lastAck = now
	h.reported = 0

	return latency
}

// Tick reports whether a heartbeat should be sent now; the caller reports the
// write with OnSent. Liveness is set once for every interval that passes
// without an acknowledgement beyond the first.
func (h *Heartbeater) Tick(now time.Time) HeartbeatTick {
	var tick HeartbeatTick

	if !h.started {
		return tick
	}

	if h.pending {
		if missed := h.missedWindows(now); missed >= 1 && missed > h.reported {
			h.reported = missed
			tick.Liveness = fmt.Errorf("%w: %d missed window(s) at interval %s", ErrLiveness, missed, h.interval)
		}
	}

	tick.Send = now.Sub(h.lastSent) >= h.interval

	return tick
}

// Until returns how long the caller may wait before Tick has something to report.
func (h *Heartbeater) Until(now time.Time) time.Duration {
	if !h.started {
		return h.interval
	}

	next := h.lastSent.Add(h.interval)

	if h.pending {
		window := h.lastAck.Add(time.Duration(h.reported+2) * h.interval)
		if window.Before(next) {
			next = window
		}
	}

	if until := next.Sub(now); until > 0 {
		return until
	}

	return 0
}

func (h *Heartbeater) missedWindows(now time.Time) int64 {
	return int64(now.Sub(h.lastAck)/h.interval) - 1
}
