package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/PowerProbe"
)

func main() {
	flow, err := powerprobe.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(batch []powerprobe.Sample) error {
		for _, sample := range batch {
			fmt.Printf("%s seq=%d current=%s power=%s\n",
				sample.Timestamp.Format(time.RFC3339Nano),
				sample.Seq,
				format(sample.CurrentMA, "mA"),
				format(sample.PowerMW, "mW"),
			)
		}
		return nil
	}

	if err := flow.Run(ctx, powerprobe.StreamOutCallback("stdout", callback)); err != nil {
		log.Fatalf("runtime error: %v", err)
	}
}

func format(v *float64, unit string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f %s", *v, unit)
}
