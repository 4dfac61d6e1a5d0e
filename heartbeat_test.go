package sandwich_test

import (
	"testing"
	"time"

	sandwich "github.com/WelcomerTeam/Sandwich-QQBot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeaterDefaultInterval(t *testing.T) {
	t.Parallel()

	heartbeater := sandwich.NewHeartbeater()

	assert.Equal(t, 40000*time.Millisecond, heartbeater.Interval())
	assert.False(t, heartbeater.Tick(time.Now()).Send)
}

func TestHeartbeaterHelloOverridesInterval(t *testing.T) {
	t.Parallel()

	start := time.Unix(1000, 0)
	heartbeater := sandwich.NewHeartbeater()

	heartbeater.OnHello(45*time.Second, start)
	assert.Equal(t, 45*time.Second, heartbeater.Interval())

	heartbeater.OnHello(0, start)
	assert.Equal(t, sandwich.DefaultHeartbeatInterval, heartbeater.Interval())
}

func TestHeartbeaterSendsAtInterval(t *testing.T) {
	t.Parallel()

	start := time.Unix(1000, 0)
	interval := 10 * time.Second
	heartbeater := sandwich.NewHeartbeater()
	heartbeater.OnHello(interval, start)

	assert.Equal(t, interval, heartbeater.Until(start))
	assert.False(t, heartbeater.Tick(start.Add(9*time.Second)).Send)

	tick := heartbeater.Tick(start.Add(interval))
	assert.True(t, tick.Send)
	assert.NoError(t, tick.Liveness)
	assert.False(t, heartbeater.Pending())

	// Until the write is reported the heartbeat stays due.
	assert.True(t, heartbeater.Tick(start.Add(interval)).Send)

	heartbeater.OnSent(start.Add(interval))
	assert.True(t, heartbeater.Pending())
	assert.False(t, heartbeater.Tick(start.Add(interval)).Send)

	latency := heartbeater.OnAck(start.Add(interval + 150*time.Millisecond))
	assert.Equal(t, 150*time.Millisecond, latency)
	assert.False(t, heartbeater.Pending())

	assert.False(t, heartbeater.Tick(start.Add(interval+time.Second)).Send)
	assert.True(t, heartbeater.Tick(start.Add(2*interval)).Send)
}

func TestHeartbeaterRequestedHeartbeatIsTimed(t *testing.T) {
	t.Parallel()

	start := time.Unix(1000, 0)
	interval := 10 * time.Second
	heartbeater := sandwich.NewHeartbeater()
	heartbeater.OnHello(interval, start)

	// Sent ahead of schedule because the gateway asked for it.
	heartbeater.OnSent(start.Add(3 * time.Second))
	assert.True(t, heartbeater.Pending())

	latency := heartbeater.OnAck(start.Add(3*time.Second + 120*time.Millisecond))
	assert.Equal(t, 120*time.Millisecond, latency)

	// The next scheduled heartbeat counts from the requested one.
	assert.False(t, heartbeater.Tick(start.Add(interval)).Send)
	assert.True(t, heartbeater.Tick(start.Add(3*time.Second+interval)).Send)
}

func TestHeartbeaterLivenessOncePerMissedWindow(t *testing.T) {
	t.Parallel()

	start := time.Unix(1000, 0)
	interval := 10 * time.Second
	heartbeater := sandwich.NewHeartbeater()
	heartbeater.OnHello(interval, start)

	failures := 0

	// Never acknowledge, poll every second for five intervals.
	for elapsed := time.Second; elapsed <= 5*interval; elapsed += time.Second {
		tick := heartbeater.Tick(start.Add(elapsed))

		if tick.Liveness != nil {
			require.ErrorIs(t, tick.Liveness, sandwich.ErrLiveness)

			failures++
		}

		if tick.Send {
			heartbeater.OnSent(start.Add(elapsed))
		}
	}

	// Windows close at 2, 3, 4 and 5 intervals after the hello.
	assert.Equal(t, 4, failures)

	heartbeater.OnAck(start.Add(5*interval + time.Second))
	assert.NoError(t, heartbeater.Tick(start.Add(6*interval)).Liveness)
}

func TestHeartbeaterUntilTracksLivenessWindow(t *testing.T) {
	t.Parallel()

	start := time.Unix(1000, 0)
	interval := 10 * time.Second
	heartbeater := sandwich.NewHeartbeater()
	heartbeater.OnHello(interval, start)

	require.True(t, heartbeater.Tick(start.Add(interval)).Send)
	heartbeater.OnSent(start.Add(interval))
	assert.Equal(t, interval, heartbeater.Until(start.Add(interval)))
	assert.Equal(t, time.Duration(0), heartbeater.Until(start.Add(3*interval)))
}
