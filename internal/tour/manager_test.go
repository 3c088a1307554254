package tour

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testDefinitions() []*Definition {
	return []*Definition{
		{Name: "alpha", Steps: []StepDef{{Narration: "hello from alpha"}}},
		{Name: "beta", Steps: []StepDef{{Narration: "hello from beta"}}},
	}
}

func TestManagerStartDefaultAndNamed(t *testing.T) {
	speaker := newFakeSpeaker(300 * time.Millisecond)
	m := NewManager(fastConfig(), &Binder{}, Deps{Speaker: speaker}, nil, testDefinitions())

	require.NoError(t, m.Start(""))
	require.True(t, m.Running())
	name, stats := m.Status()
	require.Equal(t, "alpha", name)
	require.True(t, stats.Running)

	require.NoError(t, m.Start("beta"))
	name, _ = m.Status()
	require.Equal(t, "beta", name)

	m.Stop()
	require.False(t, m.Running())

	require.Error(t, m.Start("gamma"))
}

func TestManagerStartSameTourToggles(t *testing.T) {
	speaker := newFakeSpeaker(500 * time.Millisecond)
	m := NewManager(fastConfig(), &Binder{}, Deps{Speaker: speaker}, nil, testDefinitions())

	require.NoError(t, m.Start("alpha"))
	require.True(t, m.Running())

	require.NoError(t, m.Start("alpha"))
	require.False(t, m.Running(), "restarting the running tour is a stop")
}

func TestManagerWarmReceivesLines(t *testing.T) {
	var warmed int32
	warm := func(ctx context.Context, lines []Line) {
		if len(lines) > 0 {
			atomic.StoreInt32(&warmed, int32(len(lines)))
		}
	}

	m := NewManager(fastConfig(), &Binder{}, Deps{}, warm, testDefinitions())
	require.NoError(t, m.Start("alpha"))

	require.Eventually(t, func() bool { return atomic.LoadInt32(&warmed) == 1 }, time.Second, time.Millisecond)
	m.Stop()
}

func TestManagerHandlePhrase(t *testing.T) {
	speaker := newFakeSpeaker(400 * time.Millisecond)
	m := NewManager(fastConfig(), &Binder{}, Deps{Speaker: speaker}, nil, testDefinitions())

	require.False(t, m.HandlePhrase("how fast is van 104"))
	require.False(t, m.Running())

	require.True(t, m.HandlePhrase("start the demo"))
	require.True(t, m.Running())

	require.True(t, m.HandlePhrase("stop the demo"))
	require.False(t, m.Running())
}

func TestManagerNoDefinitions(t *testing.T) {
	m := NewManager(fastConfig(), &Binder{}, Deps{}, nil, nil)
	require.Error(t, m.Start(""))
}
