package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/sumandas0/farmstore/internal/loadtest"
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8080", "Base URL of a running farmstore server")
		rate     = flag.Int("rate", 50, "Requests per second across all scenarios")
		duration = flag.Duration("duration", 30*time.Second, "Attack duration")
		timeout  = flag.Duration("timeout", 5*time.Second, "Per-request timeout")
		workers  = flag.Uint64("workers", 0, "Initial attacker workers (0 keeps the library default)")
		output   = flag.String("output", "", "Write the JSON report to this file")
	)
	flag.Parse()

	log.Printf("Attacking %s at %d req/s for %v", *baseURL, *rate, *duration)
	report, err := loadtest.Run(loadtest.Config{
		BaseURL:  *baseURL,
		Rate:     *rate,
		Duration: *duration,
		Timeout:  *timeout,
		Workers:  *workers,
	}, loadtest.DefaultScenarios)
	if err != nil {
		log.Fatalf("Load test failed: %v", err)
	}

	report.WriteSummary(os.Stdout)

	if *output != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal report: %v", err)
		}
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}
		log.Printf("Report saved to %s", *output)
	}
}
