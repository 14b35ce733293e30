// Package keypad scans a row/column key matrix and publishes debounced
// key presses to a bounded event queue.
//
// Wiring is the usual one for these boards: columns are outputs, idle
// high, driven low one at a time; rows are inputs with pull-ups, so a
// closed key pulls its row low while its column is selected.
package keypad

import (
	"strconv"
	"unicode/utf8"

	"segpad/core"
)

// KeyMap maps (row, column) to a key symbol. It is immutable.
type KeyMap struct {
	keys [][]rune
	cols int
}

// PhoneLayout is the standard 4x4 membrane keypad
var PhoneLayout = MustKeyMap(
	"123A",
	"456B",
	"789C",
	"*0#D",
)

// NewKeyMap builds a key map from one string per row. Every row must have
// the same number of symbols.
func NewKeyMap(rows ...string) (*KeyMap, error) {
	if len(rows) == 0 {
		return nil, core.NewConfigError("keypad", "keymap", "no rows")
	}
	km := &KeyMap{keys: make([][]rune, len(rows))}
	for i, row := range rows {
		km.keys[i] = []rune(row)
		if i == 0 {
			km.cols = utf8.RuneCountInString(row)
			if km.cols == 0 {
				return nil, core.NewConfigError("keypad", "keymap", "no columns")
			}
			continue
		}
		if len(km.keys[i]) != km.cols {
			return nil, core.NewConfigError("keypad", "keymap",
				"row "+strconv.Itoa(i)+" has "+strconv.Itoa(len(km.keys[i]))+" keys, want "+strconv.Itoa(km.cols))
		}
	}
	return km, nil
}

// MustKeyMap is NewKeyMap for fixed layouts. It panics on a ragged table.
func MustKeyMap(rows ...string) *KeyMap {
	km, err := NewKeyMap(rows...)
	if err != nil {
		panic(err)
	}
	return km
}

// Rows returns the row count
func (k *KeyMap) Rows() int { return len(k.keys) }

// Cols returns the column count
func (k *KeyMap) Cols() int { return k.cols }

// Size returns the number of keys
func (k *KeyMap) Size() int { return len(k.keys) * k.cols }

// At returns the symbol at row, col. ok is false outside the matrix.
func (k *KeyMap) At(row, col int) (sym rune, ok bool) {
	if row < 0 || row >= len(k.keys) || col < 0 || col >= k.cols {
		return 0, false
	}
	return k.keys[row][col], true
}

// Index returns the flat key index used by debounce state
func (k *KeyMap) Index(row, col int) int {
	return row*k.cols + col
}

// Find returns the position of a symbol
func (k *KeyMap) Find(sym rune) (row, col int, ok bool) {
	for r, keys := range k.keys {
		for c, s := range keys {
			if s == sym {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

// Layout returns the rows as strings, for configuration round trips
func (k *KeyMap) Layout() []string {
	out := make([]string, len(k.keys))
	for i, row := range k.keys {
		out[i] = string(row)
	}
	return out
}
