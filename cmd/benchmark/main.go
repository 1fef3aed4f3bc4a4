package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
	books       int
	students    int
)

// Metrics
var (
	totalRequests uint64
	issued201     uint64 // Loans created
	exhausted409  uint64 // No copies left
	notFound404   uint64
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot")
	flag.IntVar(&books, "books", 4, "Number of seeded books (IDs 1..N)")
	flag.IntVar(&students, "students", 4, "Number of seeded students (IDs 1..N)")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

func worker(wg *sync.WaitGroup, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		payload := map[string]interface{}{
			"book_id":    pickBook(),
			"student_id": int64(rand.Intn(students) + 1),
			"days_due":   7,
		}
		body, _ := json.Marshal(payload)

		req, _ := http.NewRequest("POST", targetURL+"/api/v1/loans", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch resp.StatusCode {
		case 201:
			atomic.AddUint64(&issued201, 1)
		case 409:
			atomic.AddUint64(&exhausted409, 1)
		case 404:
			atomic.AddUint64(&notFound404, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func pickBook() int64 {
	if workload == "hotspot" {
		// Hotspot: 90% of issuances target book 1, contending on one row lock
		if rand.Float32() < 0.90 {
			return 1
		}
	}
	return int64(rand.Intn(books) + 1)
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	s201 := atomic.LoadUint64(&issued201)
	f409 := atomic.LoadUint64(&exhausted409)
	f404 := atomic.LoadUint64(&notFound404)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()
	exhaustedRate := float64(f409) / float64(total) * 100

	results := map[string]interface{}{
		"workload":           workload,
		"duration_sec":       d.Seconds(),
		"total_requests":     total,
		"throughput_tps":     tps,
		"issued":             s201,
		"exhausted":          f409,
		"not_found":          f404,
		"exhausted_rate_pct": exhaustedRate,
		"errors":             fErr,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	// Also save to file
	filename := fmt.Sprintf("results_%s.json", workload)
	file, _ := os.Create(filename)
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
