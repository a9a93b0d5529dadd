package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/maplibre/maplibre-native-go/internal/cli"
	"github.com/maplibre/maplibre-native-go/pkg/pool"
)

func main() {
	// Worker processes speak the binary render protocol on stdin/stdout
	// and must not parse flags or print anything there, so this check
	// runs before any CLI setup.
	if pool.IsWorkerProcess() {
		if err := pool.RunWorker(pool.WorkerConfig{}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cli.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
