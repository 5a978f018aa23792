// Package main provides a performance benchmarking tool for the pipeline CLI.
// It generates synthetic stop events, imports them into a scratch SQLite source and
// measures how long process and reprocess take across worker counts, running each test
// multiple times, treating the first successful run as cold and averaging the rest as warm,
// generating CSV output for performance analysis and documentation.
//
// Prerequisites:
// - pipeline binary installed and available in PATH
//
// Usage: go run benchmark/main.go [records-per-day]
//
//	records-per-day: Number of synthetic stop events generated for each service day
package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
)

// BenchmarkResult holds the result of a benchmark run (cold run and average of warm runs).
type BenchmarkResult struct {
	Command  string `csv:"cmd"`
	Workers  int    `csv:"workers"`
	Records  int    `csv:"records"`
	ColdTime string `csv:"cold_time"`
	WarmTime string `csv:"warm_avg"`
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir       string
	Timeout       time.Duration
	Days          int
	RecordsPerDay int
	Runs          int
	WorkerCounts  []int
	StartDay      time.Time
}

// stopEvent is one synthetic ctran_data row.
type stopEvent struct {
	RowID         int64   `csv:"row_id"`
	ServiceDate   string  `csv:"service_date"`
	VehicleNumber int64   `csv:"vehicle_number"`
	Train         int64   `csv:"train"`
	RouteNumber   int64   `csv:"route_number"`
	LocationID    int64   `csv:"location_id"`
	ArriveTime    int64   `csv:"arrive_time"`
	LeaveTime     int64   `csv:"leave_time"`
	Dwell         int64   `csv:"dwell"`
	Door          int64   `csv:"door"`
	EstimatedLoad int64   `csv:"estimated_load"`
	MaximumSpeed  float64 `csv:"maximum_speed"`
	GPSLongitude  float64 `csv:"gps_longitude"`
	GPSLatitude   float64 `csv:"gps_latitude"`
}

func main() {
	// Parse command line arguments
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [records-per-day]\n", os.Args[0])
		os.Exit(1)
	}
	perDay, err := strconv.Atoi(os.Args[1])
	if err != nil || perDay <= 0 {
		fmt.Printf("records-per-day must be a positive integer\n")
		os.Exit(1)
	}

	workDir, err := os.MkdirTemp("", "pipeline-benchmark-*")
	if err != nil {
		fmt.Printf("Failed to create work dir: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	config := BenchmarkConfig{
		WorkDir:       workDir,
		Timeout:       5 * time.Minute,
		Days:          7,
		RecordsPerDay: perDay,
		Runs:          4,
		WorkerCounts:  []int{1, 4, 14},
		StartDay:      time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := checkPrerequisites(); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generating %d stop events...\n", config.Days*config.RecordsPerDay)
	csvPath := filepath.Join(workDir, "stops.csv")
	if err := generateStops(config, csvPath); err != nil {
		fmt.Printf("Failed to generate stop events: %v\n", err)
		os.Exit(1)
	}
	if output, err := runPipeline(config, "source", "import", csvPath); err != nil {
		fmt.Printf("Failed to import stop events: %v\nOutput: %s\n", err, output)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the pipeline binary exists
func checkPrerequisites() error {
	if _, err := exec.LookPath("pipeline"); err != nil {
		return fmt.Errorf("pipeline binary not found in PATH")
	}
	return nil
}

// generateStops writes synthetic stop events; roughly one in ten trips a rule.
func generateStops(config BenchmarkConfig, path string) error {
	rng := rand.New(rand.NewPCG(1, 2))
	events := make([]stopEvent, 0, config.Days*config.RecordsPerDay)
	var rowID int64
	for d := 0; d < config.Days; d++ {
		day := config.StartDay.AddDate(0, 0, d).Format("2006-01-02")
		for i := 0; i < config.RecordsPerDay; i++ {
			rowID++
			arrive := int64(18000 + rng.IntN(64800))
			ev := stopEvent{
				RowID:         rowID,
				ServiceDate:   day,
				VehicleNumber: int64(2000 + rng.IntN(400)),
				Train:         int64(100 + rng.IntN(900)),
				RouteNumber:   int64(1 + rng.IntN(99)),
				LocationID:    int64(1 + rng.IntN(14000)),
				ArriveTime:    arrive,
				LeaveTime:     arrive + 10,
				Dwell:         10,
				Door:          1,
				EstimatedLoad: int64(rng.IntN(60)),
				MaximumSpeed:  float64(rng.IntN(70)),
				GPSLongitude:  -122.6,
				GPSLatitude:   45.5,
			}
			if rng.IntN(10) == 0 {
				ev.LeaveTime = arrive - 5
			}
			events = append(events, ev)
		}
	}

	data, err := csvutil.Marshal(events)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// runBenchmarks executes process and reprocess for every worker count
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d days, %d records/day, %v timeout, %d runs\n",
		config.Days, config.RecordsPerDay, config.Timeout, config.Runs)

	start := config.StartDay.Format("2006/01/02")
	end := config.StartDay.AddDate(0, 0, config.Days-1).Format("2006/01/02")
	for _, workers := range config.WorkerCounts {
		fmt.Printf("Benchmarking %d workers\n", workers)
		w := strconv.Itoa(workers)

		// The first process run fills the hive; later runs reprocess the same range
		result := runBenchmarkSuite(config, "reprocess", workers, "--start", start, "--end", end, "--workers", w)
		results = append(results, result)

		result = runBenchmarkSuite(config, "reprocess", workers, "--start", start, "--end", end, "--workers", w, "--skip-duplicates")
		result.Command = "reprocess-no-dup"
		results = append(results, result)
	}

	return results
}

// runBenchmarkSuite runs one command config.Runs times and summarizes the timings
func runBenchmarkSuite(config BenchmarkConfig, command string, workers int, args ...string) BenchmarkResult {
	fmt.Printf("Running %s %s\n", command, strings.Join(args, " "))
	cold, warm := runBenchmark(config, command, args...)

	coldTimeStr := "TIMEOUT"
	if cold > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", cold)
	}
	warmAvg := "TIMEOUT"
	if len(warm) > 0 {
		var sum float64
		for _, t := range warm {
			sum += t
		}
		warmAvg = fmt.Sprintf("%.3fs", sum/float64(len(warm)))
	}

	fmt.Printf("  Cold time: %s, Warm average: %s\n", coldTimeStr, warmAvg)

	return BenchmarkResult{
		Command:  command,
		Workers:  workers,
		Records:  config.Days * config.RecordsPerDay,
		ColdTime: coldTimeStr,
		WarmTime: warmAvg,
	}
}

// runBenchmark executes a pipeline command multiple times and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, command string, args ...string) (coldTime float64, warmTimes []float64) {
	var times []float64
	for run := 1; run <= config.Runs; run++ {
		start := time.Now()

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = runPipeline(config, append([]string{command}, args...)...)
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			// Timeout - don't add to times
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// runPipeline runs the pipeline binary against the scratch SQLite stores
func runPipeline(config BenchmarkConfig, args ...string) ([]byte, error) {
	cmd := exec.Command("pipeline", args...)
	cmd.Dir = config.WorkDir
	cmd.Env = append(os.Environ(),
		"PIPELINE_SOURCE_BACKEND=sqlite",
		"PIPELINE_SOURCE_DB_CONNECT="+filepath.Join(config.WorkDir, "source.db"),
		"PIPELINE_HIVE_BACKEND=sqlite",
		"PIPELINE_HIVE_DB_CONNECT="+filepath.Join(config.WorkDir, "hive.db"),
		"PIPELINE_COLOR=no",
	)
	return cmd.CombinedOutput()
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Run completed in") && strings.Contains(outputStr, "done")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/pipeline_benchmark_%s.csv", timestamp)

	data, err := csvutil.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return err
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %-18s workers=%-3d: Cold: %s, Warm: %s\n", result.Command, result.Workers, result.ColdTime, result.WarmTime)
	}
	fmt.Printf("Benchmark script completed successfully\n")
}
