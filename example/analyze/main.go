package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ghalamif/PowerProbe"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <capture.csv>", os.Args[0])
	}

	cfg := powerprobe.DefaultAnalysisConfig()
	cfg.BurstThresholdMA = 200
	cfg.DutyCycleThresholds = []float64{120, 200}
	rep, err := powerprobe.AnalyzeFile(os.Args[1], cfg)
	if err != nil {
		log.Fatalf("analyze: %v", err)
	}

	fmt.Printf("%d samples over %.1fs\n", rep.Basic.Samples, rep.Basic.TotalTimeS)
	for _, d := range rep.DutyFiltered {
		if d.DutyCyclePct.Valid {
			fmt.Printf("above %.0f mA: %.2f%% of the time\n", d.ThresholdMA, d.DutyCyclePct.Value)
		}
	}
	fmt.Printf("%d TX bursts\n", rep.Bursts.Count)
}
