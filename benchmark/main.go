// Package main provides a performance benchmarking tool for the gitmetrics CLI.
// It measures the dashboard of each repository and the portfolio health of all of them,
// once without a store, once with a fresh SQLite store (the first run is cold, the
// rest warm) and, for the portfolio, once more from the cached history alone.
//
// Prerequisites:
// - gitmetrics binary installed and available in PATH
// - Test repositories cloned to the specified base directory
// - Git repositories: csv-parser, fd, git, kubernetes
//
// Usage: go run benchmark/main.go [repo-base-dir]
//
//	repo-base-dir: Directory containing test repositories
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the timings of one command (no-store average, cold run and average of warm runs).
type BenchmarkResult struct {
	Target      string
	Command     string
	NoStoreTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	RepoBase    string
	WorkDir     string
	Timeout     time.Duration
	Workers     int
	Days        int
	NoStoreRuns int
	StoreRuns   int
	TestRepos   []string
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [repo-base-dir]\n", os.Args[0])
		os.Exit(1)
	}

	workDir, err := os.MkdirTemp("", "gitmetrics-benchmark-*")
	if err != nil {
		fmt.Printf("Failed to create work dir: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	config := BenchmarkConfig{
		RepoBase:    os.Args[1],
		WorkDir:     workDir,
		Timeout:     5 * time.Minute,
		Workers:     4,
		Days:        90,
		NoStoreRuns: 3,
		StoreRuns:   4,
		TestRepos:   []string{"csv-parser", "fd", "git", "kubernetes"},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the gitmetrics binary and test repositories exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("gitmetrics"); err != nil {
		return fmt.Errorf("gitmetrics binary not found in PATH")
	}

	for _, repo := range config.TestRepos {
		repoPath := filepath.Join(config.RepoBase, repo)
		if _, err := os.Stat(filepath.Join(repoPath, ".git")); os.IsNotExist(err) {
			return fmt.Errorf("repository %s not found at %s", repo, repoPath)
		}
	}

	return nil
}

// runBenchmarks executes the dashboard per repository, then the portfolio over all of them
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d repos, %v timeout, %d workers, %d days, no-store: %d runs, store: %d runs\n",
		len(config.TestRepos), config.Timeout, config.Workers, config.Days, config.NoStoreRuns, config.StoreRuns)

	repoPaths := make([]string, 0, len(config.TestRepos))
	for _, repo := range config.TestRepos {
		repoPath := filepath.Join(config.RepoBase, repo)
		repoPaths = append(repoPaths, repoPath)

		fmt.Printf("Benchmarking %s\n", repo)
		clearStore(filepath.Join(repoPath, ".git", "git_metrics.db"))
		args := []string{"dashboard", "--days", fmt.Sprint(config.Days)}
		results = append(results, runBenchmarkSuite(config, repo, repoPath, args))
	}

	fmt.Printf("Benchmarking portfolio\n")
	clearStore(filepath.Join(config.WorkDir, ".gitmetrics", "git_metrics.db"))
	args := append([]string{"portfolio", "health", "--days", fmt.Sprint(config.Days), "--workers", fmt.Sprint(config.Workers)}, repoPaths...)
	results = append(results, runBenchmarkSuite(config, "portfolio", config.WorkDir, args))

	// The store is warm now, so every cached run counts as warm
	fmt.Printf("Running portfolio health from cache\n")
	_, warm := runBenchmark(config, config.WorkDir, append(args, "--from-cache"), "sqlite", config.StoreRuns)
	results = append(results, BenchmarkResult{
		Target:      "portfolio",
		Command:     "portfolio --from-cache",
		NoStoreTime: "N/A",
		ColdTime:    "N/A",
		WarmTime:    average(warm),
	})

	return results
}

// clearStore removes a SQLite store left behind by an earlier run.
func clearStore(path string) {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: failed to remove %s: %v\n", path+suffix, err)
		}
	}
}

// runBenchmarkSuite runs both no-store and store benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, target, dir string, args []string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", args[0], target)

	fmt.Printf("  No-store phase (%d runs)\n", config.NoStoreRuns)
	noStoreCold, noStoreWarm := runBenchmark(config, dir, args, "none", config.NoStoreRuns)
	noStoreAvg := average(append(noStoreWarm, noStoreCold...))

	fmt.Printf("  Store phase (%d runs)\n", config.StoreRuns)
	cold, warm := runBenchmark(config, dir, args, "sqlite", config.StoreRuns)

	coldTimeStr := "TIMEOUT"
	if len(cold) > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", cold[0])
	}
	warmAvg := average(warm)

	fmt.Printf("  No-store average: %s, Cold time: %s, Warm average: %s\n", noStoreAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Target:      target,
		Command:     args[0],
		NoStoreTime: noStoreAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a gitmetrics command multiple times with the given store backend.
// The first successful run is returned separately from the rest.
func runBenchmark(config BenchmarkConfig, dir string, args []string, storeBackend string, numRuns int) (cold, warm []float64) {
	args = append(append([]string{}, args...), "--store-backend", storeBackend)

	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("gitmetrics", args...)
		cmd.Dir = dir

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
			<-done
		}
	}

	if len(times) > 0 {
		return times[:1], times[1:]
	}
	return nil, nil
}

func average(times []float64) string {
	if len(times) == 0 {
		return "TIMEOUT"
	}
	var sum float64
	for _, t := range times {
		sum += t
	}
	return fmt.Sprintf("%.3fs", sum/float64(len(times)))
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Analysis completed in") &&
		strings.Contains(outputStr, "Store backend:")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("gitmetrics_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"target", "cmd", "no_store_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		if err := writer.Write([]string{result.Target, result.Command, result.NoStoreTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %-12s %-24s: No-store: %s, Cold: %s, Warm: %s\n",
			result.Target, result.Command, result.NoStoreTime, result.ColdTime, result.WarmTime)
	}
}
