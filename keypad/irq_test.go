package keypad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segpad/core"
	"segpad/sim"
)

func newInterrupt(t *testing.T, cfg ScannerConfig) (*InterruptScanner, *Queue, *sim.Bench) {
	t.Helper()
	bench := newBench(t)
	q := NewQueue(DefaultQueueCapacity, DropOldest)
	s, err := NewInterruptScanner(bench, bench, q, cfg)
	require.NoError(t, err)
	return s, q, bench
}

// rotateTo advances rotation until col is driven
func rotateTo(s *InterruptScanner, col int) {
	for i := 0; i <= len(testCols); i++ {
		s.RotateColumn()
		if s.ActiveColumn() == col {
			return
		}
	}
}

func rotateCycles(s *InterruptScanner, n int) {
	for i := 0; i < n*(len(testCols)+1); i++ {
		s.RotateColumn()
	}
}

func TestInterruptRotation(t *testing.T) {
	s, _, bench := newInterrupt(t, testScannerConfig())
	assert.Equal(t, -1, s.ActiveColumn(), "starts idle")

	var order []int
	for i := 0; i < 7; i++ {
		s.RotateColumn()
		order = append(order, s.ActiveColumn())

		low := 0
		for c, pin := range testCols {
			if !bench.Level(pin) {
				low++
				assert.Equal(t, s.ActiveColumn(), c)
			}
		}
		if s.ActiveColumn() < 0 {
			assert.Zero(t, low, "idle slot releases every column")
		} else {
			assert.Equal(t, 1, low, "exactly one column driven")
		}
	}
	assert.Equal(t, []int{0, 1, 2, 3, -1, 0, 1}, order)
}

func TestInterruptReadsActiveColumn(t *testing.T) {
	s, q, bench := newInterrupt(t, testScannerConfig())

	bench.Press(1, 2)
	assert.Zero(t, q.Len(), "no column driven, no edge")

	rotateTo(s, 1)
	assert.Zero(t, q.Len())
	rotateTo(s, 2)

	events := q.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, '6', events[0].Symbol)
	assert.Equal(t, 1, events[0].Row)
	assert.Equal(t, 2, events[0].Col)
}

func TestInterruptPressWhileColumnActive(t *testing.T) {
	s, q, bench := newInterrupt(t, testScannerConfig())
	rotateTo(s, 3)

	bench.Press(2, 3) // 'C'
	assert.Equal(t, "C", symbols(q.Drain()))

	bench.Press(2, 0) // column 0 not driven
	assert.Zero(t, q.Len())
}

func TestInterruptHeldKeyOneEvent(t *testing.T) {
	s, q, bench := newInterrupt(t, testScannerConfig())
	bench.Press(0, 1) // '2'

	for i := 0; i < 10; i++ {
		rotateCycles(s, 1)
		core.AdvanceTime(250000) // past the debounce window every cycle
	}
	assert.Equal(t, "2", symbols(q.Drain()))

	bench.Release(0, 1)
	rotateCycles(s, 1)
	core.AdvanceTime(250000)

	bench.Press(0, 1)
	rotateCycles(s, 1)
	assert.Equal(t, "2", symbols(q.Drain()), "a new press after release is a new event")
}

func TestInterruptDebounce(t *testing.T) {
	s, q, bench := newInterrupt(t, testScannerConfig())
	rotateTo(s, 3)

	bench.Press(0, 3) // 'A' at 0ms
	bench.Release(0, 3)
	rotateCycles(s, 1)

	core.SetTime(150000) // 'A' at 150ms
	rotateTo(s, 3)
	bench.Press(0, 3)

	events := q.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, uint32(0), events[0].At)
	assert.Equal(t, uint32(1), s.Stats().Bounced)
}

func TestInterruptSpuriousEdge(t *testing.T) {
	s, q, _ := newInterrupt(t, testScannerConfig())
	s.handleRow(testRows[2])
	s.handleRow(99)

	assert.Zero(t, q.Len())
	assert.Equal(t, uint32(1), s.Stats().Spurious)

	events := core.TraceSnapshot()
	require.NotEmpty(t, events)
	assert.Equal(t, uint8(core.EvtSpuriousEdge), events[len(events)-1].Kind)
	assert.Equal(t, uint8(2), events[len(events)-1].Arg)
}

func TestInterruptTimerDriven(t *testing.T) {
	s, q, bench := newInterrupt(t, testScannerConfig())
	s.Start()

	bench.Press(3, 1) // '0'
	for i := 0; i < 10; i++ {
		core.AdvanceTime(DefaultRotatePeriod)
		core.ProcessTimers()
	}
	assert.Equal(t, "0", symbols(q.Drain()))

	s.Stop()
	assert.Equal(t, -1, s.ActiveColumn())
	for _, pin := range testCols {
		assert.True(t, bench.Level(pin))
	}
}

func TestInterruptRejectsBlockingQueue(t *testing.T) {
	bench := newBench(t)
	_, err := NewInterruptScanner(bench, bench, NewQueue(4, Block), testScannerConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfiguration)

	cfg := testScannerConfig()
	cfg.KeyMap = MustKeyMap("123456", "123456", "123456", "123456", "123456", "123456")
	cfg.RowPins = []core.GPIOPin{1, 2, 3, 4, 5, 6}
	cfg.ColPins = []core.GPIOPin{7, 8, 9, 10, 11, 12}
	_, err = NewInterruptScanner(bench, bench, NewQueue(4, DropOldest), cfg)
	assert.ErrorIs(t, err, core.ErrConfiguration, "36 keys do not fit the held-key word")
}
