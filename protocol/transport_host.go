//go:build !tinygo

package protocol

import (
	"errors"
	"io"
	"sync"
	"time"
)

// Reader decodes telemetry from a serial port in a background goroutine
type Reader struct {
	port io.ReadCloser

	mu      sync.Mutex
	input   *FifoBuffer
	decoder *Decoder
	invalid uint32

	reports chan Report
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewReader starts reading port. Reports are delivered on Reports; when
// the consumer falls behind the oldest report is dropped.
func NewReader(port io.ReadCloser) *Reader {
	r := &Reader{
		port:    port,
		input:   NewFifoBuffer(512),
		decoder: NewDecoder(),
		reports: make(chan Report, 64),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go r.readLoop()
	return r
}

// Reports is closed when the port reaches EOF or the reader is closed
func (r *Reader) Reports() <-chan Report {
	return r.reports
}

func (r *Reader) readLoop() {
	defer close(r.done)
	defer close(r.reports)

	buffer := make([]byte, 256)
	for {
		select {
		case <-r.stop:
			return
		default:
		}

		n, err := r.port.Read(buffer)
		if n > 0 {
			r.feed(buffer[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || r.stopped() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func (r *Reader) stopped() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// feed pushes bytes through the decoder. Bytes that do not fit in the
// FIFO wait for the next pass.
func (r *Reader) feed(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for len(data) > 0 {
		n := r.input.Write(data)
		data = data[n:]
		r.decoder.Receive(r.input, r.dispatch)
		if n == 0 && r.input.Free() == 0 {
			// A full FIFO with no frame in it is garbage
			r.input.Reset()
			r.decoder.Reset()
		}
	}
}

func (r *Reader) dispatch(msg *Message) {
	rep, err := Decode(msg)
	if err != nil {
		r.invalid++
		return
	}
	select {
	case r.reports <- rep:
	default:
		select {
		case <-r.reports:
		default:
		}
		r.reports <- rep
	}
}

// Stats returns the framing counters and the number of frames whose
// payload could not be decoded
func (r *Reader) Stats() (DecoderStats, uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decoder.Stats(), r.invalid
}

// Close stops the reader and closes the port
func (r *Reader) Close() error {
	var err error
	r.once.Do(func() {
		close(r.stop)
		err = r.port.Close()
		<-r.done
	})
	return err
}

// DecodeCapture decodes a recorded byte stream in one pass. It returns the
// reports in order, the framing counters and the number of frames whose
// payload could not be decoded. A trailing partial frame is ignored.
func DecodeCapture(data []byte) ([]Report, DecoderStats, uint32) {
	var (
		reports []Report
		invalid uint32
	)
	d := NewDecoder()
	d.Receive(NewSliceInputBuffer(data), func(msg *Message) {
		rep, err := Decode(msg)
		if err != nil {
			invalid++
			return
		}
		reports = append(reports, rep)
	})
	return reports, d.Stats(), invalid
}
