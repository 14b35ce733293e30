// segsim runs a board on the simulated bench and drives it from a prompt
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"segpad/config"
	"segpad/core"
)

func main() {
	boardFile := flag.String("board", "board.yaml", "Board description (defaults when missing)")
	exercise := flag.String("exercise", "", "Override the exercise")
	realtime := flag.Bool("realtime", false, "Run on the wall clock instead of the manual clock")
	telemetry := flag.Bool("telemetry", true, "Decode the board's telemetry in-process")
	verbose := flag.Bool("verbose", false, "Verbose logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	core.SetLogger(log)

	b, err := config.Load(*boardFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *exercise != "" {
		b.Exercise = *exercise
	}

	s, err := NewSim(b, os.Stdout, *telemetry, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()
	if *realtime {
		s.GoLive()
	}

	fmt.Printf("segsim: %s on %d digits (%s mode). Type help for commands.\n",
		s.sys.Exercise.Name(), b.Display.Digits, b.Mode)

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			fmt.Println()
			return
		}
		err := s.Exec(in.Text())
		if errors.Is(err, errQuit) {
			return
		}
		if err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}
