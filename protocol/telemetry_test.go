package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segpad/core"
	"segpad/keypad"
	"segpad/segment"
)

func decodeReports(t *testing.T, stream []byte) []Report {
	t.Helper()
	var reports []Report
	NewDecoder().Receive(NewSliceInputBuffer(stream), func(m *Message) {
		r, err := Decode(m)
		require.NoError(t, err)
		reports = append(reports, r)
	})
	return reports
}

func TestTelemetryReports(t *testing.T) {
	var stream bytes.Buffer
	tel := NewTelemetry(&stream)

	codes := []segment.Code{segment.MustHex(1), segment.Dash, segment.Blank}
	long := strings.Repeat("x", 100)

	require.NoError(t, tel.Send(IdentifyReport{Version: Version, Exercise: "keyecho", Digits: 3, Rows: 4, Cols: 4}))
	require.NoError(t, tel.ReportKey(keypad.KeyEvent{Symbol: '#', Row: 3, Col: 2, At: 123456}))
	require.NoError(t, tel.ReportDisplay(codes))
	require.NoError(t, tel.ReportWarning(&core.StuckKeyWarning{Symbol: 'D', Row: 3, Col: 3, Waited: 2000000}))
	require.NoError(t, tel.ReportWarning(fmt.Errorf("refresh: %w", &core.StaleReadWarning{Digit: 2, Generation: 41})))
	require.NoError(t, tel.ReportWarning(errors.New(long)))
	require.NoError(t, tel.Send(StatsReport{Ticks: 100, Frames: 33, Accepted: 4, Dropped: 1}))

	reports := decodeReports(t, stream.Bytes())
	require.Len(t, reports, 7)

	assert.Equal(t, IdentifyReport{Version: Version, Exercise: "keyecho", Digits: 3, Rows: 4, Cols: 4}, reports[0])
	assert.Equal(t, KeyReport{Symbol: '#', Row: 3, Col: 2, At: 123456}, reports[1])
	assert.Equal(t, DisplayReport{Codes: codes}, reports[2])
	assert.Equal(t, WarningReport{Kind: WarnStuckKey, Symbol: 'D', Row: 3, Col: 3, Waited: 2000000}, reports[3])
	assert.Equal(t, WarningReport{Kind: WarnStaleRead, Digit: 2, Generation: 41}, reports[4])
	assert.Equal(t, WarningReport{Kind: WarnOther, Text: long[:MaxWarningText]}, reports[5])
	assert.Equal(t, StatsReport{Ticks: 100, Frames: 33, Accepted: 4, Dropped: 1}, reports[6])

	assert.Equal(t, "stuck key D at row 3 col 3 after 2000000us", reports[3].(WarningReport).String())

	sent, failed := tel.Counts()
	assert.Equal(t, uint32(7), sent)
	assert.Zero(t, failed)
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestTelemetryWriteError(t *testing.T) {
	tel := NewTelemetry(brokenWriter{})
	assert.ErrorIs(t, tel.ReportKey(keypad.KeyEvent{Symbol: '1'}), io.ErrClosedPipe)
	_, failed := tel.Counts()
	assert.Equal(t, uint32(1), failed)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(&Message{Payload: []byte{99}})
	assert.ErrorIs(t, err, ErrUnknownMessage)

	_, err = Decode(&Message{Payload: []byte{byte(MsgKey), '1'}})
	assert.ErrorIs(t, err, ErrBufferTooSmall, "truncated arguments")

	_, err = Decode(&Message{})
	assert.Error(t, err)
}

func TestReader(t *testing.T) {
	pr, pw := io.Pipe()
	r := NewReader(pr)

	tel := NewTelemetry(pw)
	go func() {
		tel.ReportKey(keypad.KeyEvent{Symbol: '5', Row: 1, Col: 1})
		pw.Write([]byte{0x00, 0x13, 0x37, MessageValueSync}) // line noise, then sync
		tel.ReportDisplay([]segment.Code{segment.MustHex(5)})
		pw.Close()
	}()

	var got []Report
	timeout := time.After(2 * time.Second)
	for done := false; !done; {
		select {
		case rep, ok := <-r.Reports():
			if !ok {
				done = true
				break
			}
			got = append(got, rep)
		case <-timeout:
			t.Fatal("reader did not finish")
		}
	}

	require.Len(t, got, 2)
	assert.Equal(t, KeyReport{Symbol: '5', Row: 1, Col: 1}, got[0])
	assert.Equal(t, DisplayReport{Codes: []segment.Code{segment.MustHex(5)}}, got[1])

	st, invalid := r.Stats()
	assert.Equal(t, uint32(2), st.Frames)
	assert.Zero(t, invalid)
	assert.NoError(t, r.Close())
}

func TestDecodeCapture(t *testing.T) {
	var stream bytes.Buffer
	tel := NewTelemetry(&stream)
	require.NoError(t, tel.ReportKey(keypad.KeyEvent{Symbol: '7', Row: 2, Col: 0, At: 500}))
	stream.Write([]byte{0x00, 0x13, 0x37, MessageValueSync})
	require.NoError(t, tel.ReportDisplay([]segment.Code{segment.MustHex(7)}))

	var tail bytes.Buffer
	require.NoError(t, NewTelemetry(&tail).ReportKey(keypad.KeyEvent{Symbol: '8'}))
	stream.Write(tail.Bytes()[:3])

	reports, st, invalid := DecodeCapture(stream.Bytes())
	require.Len(t, reports, 2)
	assert.Equal(t, KeyReport{Symbol: '7', Row: 2, Col: 0, At: 500}, reports[0])
	assert.Equal(t, DisplayReport{Codes: []segment.Code{segment.MustHex(7)}}, reports[1])

	assert.Equal(t, uint32(2), st.Frames)
	assert.Equal(t, uint32(1), st.BadFrames)
	assert.Equal(t, uint32(4), st.Skipped)
	assert.Zero(t, invalid)

	reports, st, _ = DecodeCapture(nil)
	assert.Empty(t, reports)
	assert.Zero(t, st.Frames)
}
