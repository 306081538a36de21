package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rovermx/groundstation/pkg/groundstation"
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
		log.Fatalf("groundstation %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "Path to station configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := groundstation.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := groundstation.New(ctx, cfg)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := groundstation.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good ✅\n", *cfgPath)
	return nil
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

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

// statsColumns maps the metrics worth watching to their display labels,
// in print order.
var statsColumns = []struct {
	metric string
	label  string
}{
	{"station_samples_ingested_total", "ingested"},
	{"station_feed_messages_total", "feed_msgs"},
	{"station_feed_reconnects_total", "reconnects"},
	{"station_live_sessions", "viewers"},
}

func printMetricsSnapshot(url string) error {
	values, err := scrapeMetrics(url)
	if err != nil {
		return err
	}

	parts := make([]string, 0, len(statsColumns)+1)
	parts = append(parts, time.Now().Format("15:04:05"))
	for _, col := range statsColumns {
		parts = append(parts, fmt.Sprintf("%s=%g", col.label, values[col.metric]))
	}
	fmt.Println(strings.Join(parts, "  "))
	return nil
}

// scrapeMetrics fetches the endpoint and picks out the watched gauges and
// counters from the text exposition format.
func scrapeMetrics(url string) (map[string]float64, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	values := make(map[string]float64, len(statsColumns))
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		name, rest, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		for _, col := range statsColumns {
			if name == col.metric {
				if v, err := strconv.ParseFloat(strings.TrimSpace(rest), 64); err == nil {
					values[col.metric] = v
				}
				break
			}
		}
	}
	return values, scanner.Err()
}

func printUsage() {
	fmt.Printf(`Groundstation CLI

Usage:
  groundstation <command> [flags]

Commands:
  run        Start the telemetry station using the provided config
  validate   Load and validate a config file without starting the station
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  groundstation run -config ./config.yaml
  groundstation validate -config ./config.yaml
  groundstation stats -url http://localhost:9100/metrics -interval 1s
`)
}
