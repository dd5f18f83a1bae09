package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/common/expfmt"

	"github.com/ghalamif/PowerProbe"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "analyze":
		err = analyzeCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("powerprobe %s: %v", cmd, err)
	}
}

// loadConfig reads path, or returns the built-in defaults when path is empty.
func loadConfig(path string) (*powerprobe.Config, error) {
	if path == "" {
		return powerprobe.DefaultConfig(), nil
	}
	cfg, err := powerprobe.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to configuration file (defaults apply when empty)")
	port := fs.String("port", "", "Serial port, overrides serial.port")
	topology := fs.String("topology", "", "GATEWAY_ONLY|GATEWAY_NOISE|GATEWAY_AIR|GATEWAY_FULL or 1-4")
	scenario := fs.String("scenario", "", "Scenario code A|B|C")
	input := fs.String("input", "", "Replay a recorded device log instead of reading the serial port")
	analyze := fs.Bool("analyze", false, "Write stats reports when the capture stops")
	plots := fs.Bool("plots", false, "Render plots when the capture stops (implies -analyze)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if *port != "" {
		cfg.Serial.Port = *port
	}
	topo, sc := cfg.Capture.Topology, cfg.Capture.Scenario
	if *topology != "" {
		if topo, err = powerprobe.ParseTopology(*topology); err != nil {
			return err
		}
	}
	if *scenario != "" {
		if sc, err = powerprobe.ParseScenario(*scenario); err != nil {
			return err
		}
	}

	flow, err := powerprobe.ConfFromConfig(cfg, powerprobe.WithSetup(topo, sc))
	if err != nil {
		return err
	}
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			return err
		}
		defer f.Close()
		flow.StreamIN(powerprobe.StreamInReader(f))
	}

	fmt.Printf("Topology: %s (%s)\n", cfg.Capture.Topology, cfg.Capture.Topology.Description())
	fmt.Printf("Scenario: %s (%s)\n", cfg.Capture.Scenario, cfg.Capture.Scenario.Description())
	fmt.Println("Logging... press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var out []powerprobe.StreamOutOption
	if *analyze || *plots {
		out = append(out, powerprobe.StreamOutAnalysis(*plots))
	}
	return flow.Run(ctx, out...)
}

func analyzeCommand(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Configuration file supplying the analysis section")
	outDir := fs.String("out", "", "Directory for the reports (defaults to the capture's directory)")
	plots := fs.Bool("plots", false, "Render plots into <out>/plots")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("usage: powerprobe analyze [flags] <capture.csv>...")
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}

	for _, path := range fs.Args() {
		dir := *outDir
		if dir == "" {
			dir = filepath.Dir(path)
		}
		plotDir := ""
		if *plots {
			plotDir = filepath.Join(dir, "plots")
		}

		rep, err := powerprobe.AnalyzeFile(path, cfg.Analysis, powerprobe.DefaultReportSinks(dir, plotDir)...)
		switch {
		case errors.Is(err, powerprobe.ErrEmptySeries):
			fmt.Fprintf(os.Stderr, "warning: %v; ratios reported as undefined\n", err)
		case err != nil:
			return err
		}
		if err := powerprobe.WriteTextReport(os.Stdout, rep); err != nil {
			return err
		}
		fmt.Printf("\nReports written to %s\n", dir)
	}
	return nil
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	capture := fs.Bool("capture", true, "Also require the settings a capture needs (serial port)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := powerprobe.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if *capture {
		if err := cfg.ValidateCapture(); err != nil {
			return err
		}
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

var statsMetrics = []string{
	"powerprobe_lines_read_total",
	"powerprobe_frames_emitted_total",
	"powerprobe_incomplete_frames_total",
	"powerprobe_field_parse_failures_total",
	"powerprobe_samples_ingested_total",
	"powerprobe_queue_length",
	"powerprobe_wal_size_bytes",
	"powerprobe_last_current_ma",
	"powerprobe_last_power_mw",
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	client := &http.Client{Timeout: *interval}
	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(client, *url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		return fmt.Errorf("parse metrics: %w", err)
	}

	fmt.Printf("[%s]", time.Now().Format(time.RFC3339))
	for _, name := range statsMetrics {
		mf, ok := families[name]
		if !ok || len(mf.GetMetric()) == 0 {
			continue
		}
		m := mf.GetMetric()[0]
		v := m.GetCounter().GetValue()
		if m.GetGauge() != nil {
			v = m.GetGauge().GetValue()
		}
		fmt.Printf(" %s=%g", name, v)
	}
	fmt.Println()
	return nil
}

func printUsage() {
	fmt.Printf(`PowerProbe CLI

Usage:
  powerprobe <command> [flags]

Commands:
  run        Capture power-monitor frames from the serial port into a CSV file
  analyze    Compute current, duty cycle and TX burst stats for capture files
  validate   Load and validate a config file without starting a capture
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  powerprobe run -config ./data/config.yaml -topology GATEWAY_AIR -scenario B -plots
  powerprobe run -port /dev/ttyACM0 -input ./recorded.log
  powerprobe analyze -plots ./data/GATEWAY_ONLY_A_2026-02-19_16-41-31_current.csv
  powerprobe validate -config ./data/config.yaml
  powerprobe stats -url http://localhost:9100/metrics -interval 1s
`)
}
