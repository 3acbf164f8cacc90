// Command tickshaper runs the decode -> throttle -> burst-detect ->
// publish pipeline described in spec.md. It loads a config file (or
// falls back to defaults), wires a Runtime, and optionally drives an
// interactive operator console on stdin while the pipeline runs.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/siri1404/ITCHFlow/internal/config"
	"github.com/siri1404/ITCHFlow/internal/console"
	"github.com/siri1404/ITCHFlow/internal/runtime"
)

func main() {
	configPath := flag.String("config", "", "path to a key=value config file (defaults used if absent)")
	inputFile := flag.String("input", "", "override input_file from the config")
	interactive := flag.Bool("interactive", false, "run the operator console on stdin/stdout")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("tickshaper: loading config: %v", err)
		}
	}
	if *inputFile != "" {
		cfg.InputFile = *inputFile
	}

	rt, err := runtime.New(cfg)
	if err != nil {
		log.Fatalf("tickshaper: initializing runtime: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("tickshaper: received %v, shutting down", sig)
			rt.Stop()
		case <-ctx.Done():
		}
	}()

	if *interactive {
		go console.New(rt, os.Stdin, os.Stdout).Run()
	}

	if err := rt.Run(); err != nil {
		log.Fatalf("tickshaper: runtime exited with error: %v", err)
	}
}
