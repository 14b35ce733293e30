// Command segmon prints the telemetry a board sends over its serial port.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"segpad/config"
	"segpad/host/monitor"
	"segpad/host/serial"
	"segpad/protocol"
	"segpad/segment"
)

var (
	boardFile = flag.String("board", "board.yaml", "Board file with the telemetry port")
	device    = flag.String("device", "", "Serial device path (overrides the board file)")
	baud      = flag.Int("baud", 0, "Baud rate (overrides the board file)")
	asJSON    = flag.Bool("json", false, "Print the board state as JSON on every display change")
	replay    = flag.String("replay", "", "Decode a recorded telemetry capture instead of a live port")
	verbose   = flag.Bool("verbose", false, "Enable debug output")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("segmon stopped", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	if *replay != "" {
		return replayCapture(*replay, log)
	}

	board, err := config.Load(*boardFile)
	if err != nil {
		return err
	}
	cfg := serial.FromBoard(board.Telemetry)
	if *device != "" {
		cfg.Device = *device
	}
	if *baud > 0 {
		cfg.Baud = *baud
	}

	log.Info("connecting", "device", cfg.Device, "baud", cfg.Baud)
	m, err := monitor.Connect(cfg, log)
	if err != nil {
		return err
	}
	defer m.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return m.Run(ctx, func(r protocol.Report) {
		if _, ok := r.(protocol.DisplayReport); !ok {
			return
		}
		if !*asJSON {
			fmt.Printf("[%s]\n", m.State().Display)
			return
		}
		raw, err := m.JSON()
		if err != nil {
			log.Error("encode state", "err", err)
			return
		}
		fmt.Println(string(raw))
	})
}

func replayCapture(path string, log *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read capture: %w", err)
	}

	reports, st, invalid := protocol.DecodeCapture(data)
	for _, r := range reports {
		if d, ok := r.(protocol.DisplayReport); ok {
			fmt.Printf("[%s]\n", segment.Render(d.Codes))
			continue
		}
		if *asJSON {
			raw, err := json.Marshal(r)
			if err != nil {
				return err
			}
			fmt.Printf("%T %s\n", r, raw)
			continue
		}
		fmt.Printf("%T %+v\n", r, r)
	}

	log.Info("capture decoded",
		"reports", len(reports),
		"frames", st.Frames,
		"lost", st.Lost,
		"bad", st.BadFrames,
		"skipped", st.Skipped,
		"invalid", invalid,
	)
	return nil
}
