package sim

import "segpad/core"

type keyPos struct{ row, col int }

type hold struct {
	forever bool
	until   uint32
}

// Matrix is a key matrix between column outputs and pulled-up row inputs.
// A pressed key connects its row to its column, so the row reads low
// while that column is driven low.
type Matrix struct {
	rows    []core.GPIOPin
	cols    []core.GPIOPin
	rowIdx  map[core.GPIOPin]int
	pressed map[keyPos]hold
}

// WireMatrix attaches a key matrix to the bench
func (b *Bench) WireMatrix(rows, cols []core.GPIOPin) *Matrix {
	m := &Matrix{
		rows:    rows,
		cols:    cols,
		rowIdx:  make(map[core.GPIOPin]int, len(rows)),
		pressed: make(map[keyPos]hold),
	}
	for i, pin := range rows {
		m.rowIdx[pin] = i
	}
	b.mu.Lock()
	b.matrix = m
	b.mu.Unlock()
	return m
}

// rowPulledLow reports whether pin is a matrix row and, if so, whether a
// held key connects it to a column currently driven low
func (m *Matrix) rowPulledLow(b *Bench, pin core.GPIOPin) (low bool, wired bool) {
	row, ok := m.rowIdx[pin]
	if !ok {
		return false, false
	}
	now := core.GetTime()
	for pos, h := range m.pressed {
		if pos.row != row {
			continue
		}
		if !h.forever && !core.TimeBefore(now, h.until) {
			continue
		}
		col, ok := b.pins[m.cols[pos.col]]
		if ok && col.mode == modeOutput && !col.driven {
			return true, true
		}
	}
	return false, true
}

func (b *Bench) setKey(row, col int, h *hold) {
	b.mu.Lock()
	if b.matrix == nil {
		b.mu.Unlock()
		panic("sim: no key matrix wired")
	}
	m := b.matrix
	if row < 0 || row >= len(m.rows) || col < 0 || col >= len(m.cols) {
		b.mu.Unlock()
		panic("sim: key outside matrix")
	}
	if h == nil {
		delete(m.pressed, keyPos{row, col})
	} else {
		m.pressed[keyPos{row, col}] = *h
	}
	fire := b.collectEdgesLocked()
	b.mu.Unlock()
	b.dispatch(fire)
}

// Press closes the key at row, col until Release
func (b *Bench) Press(row, col int) {
	b.setKey(row, col, &hold{forever: true})
}

// Release opens the key at row, col
func (b *Bench) Release(row, col int) {
	b.setKey(row, col, nil)
}

// Tap closes the key at row, col for micros of core time
func (b *Bench) Tap(row, col int, micros uint32) {
	b.setKey(row, col, &hold{until: core.GetTime() + micros})
}

// Held reports whether the key at row, col is currently closed
func (b *Bench) Held(row, col int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.matrix == nil {
		return false
	}
	h, ok := b.matrix.pressed[keyPos{row, col}]
	if !ok {
		return false
	}
	return h.forever || core.TimeBefore(core.GetTime(), h.until)
}
