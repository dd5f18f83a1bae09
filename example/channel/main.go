package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/PowerProbe"
)

func main() {
	flow, err := powerprobe.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, batches, closeBatches := powerprobe.NewChannelSink("energy", 32)

	done := make(chan struct{})
	go func() {
		energyWorker(batches)
		close(done)
	}()

	err = flow.Run(ctx, powerprobe.StreamOutTee(sink))
	closeBatches()
	<-done
	if err != nil {
		log.Fatalf("runtime error: %v", err)
	}
}

// energyWorker integrates power over time and prints a running total.
func energyWorker(batches <-chan []powerprobe.Sample) {
	var (
		prev  *powerprobe.Sample
		totMJ float64
	)
	for batch := range batches {
		for i := range batch {
			s := batch[i]
			if prev != nil && prev.PowerMW != nil {
				totMJ += *prev.PowerMW * s.Timestamp.Sub(prev.Timestamp).Seconds()
			}
			prev = &s
		}
		fmt.Printf("energy so far: %.1f mJ\n", totMJ)
	}
}
