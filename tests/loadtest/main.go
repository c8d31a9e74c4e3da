package main

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sourcegraph/conc"
)

const (
	baseURL      = "http://127.0.0.1:18090"
	playerOrigin = "https://player.example"
	numWorkers   = 50
	testDuration = 10 * time.Second
	numMovies    = 300
	numShows     = 100
	numSeasons   = 5
	numEpisodes  = 12
)

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

func main() {
	fmt.Println("=== watchsync Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s\n", numWorkers, testDuration)
	fmt.Printf("Movies: %d | Shows: %d (%dx%d episodes)\n\n", numMovies, numShows, numSeasons, numEpisodes)

	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	fmt.Println("\n--- Phase 1: Playback ticks (POST /progress) ---")
	runPhase(testDuration, doTick)

	fmt.Println("\n--- Phase 2: Mixed load (50% ticks, 20% player relays, 30% reads) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.50:
			return doTick(rng)
		case r < 0.70:
			return doPlayerMessage(rng)
		case r < 0.80:
			return doResume(rng)
		case r < 0.90:
			return doGet("/continue", http.StatusOK, http.StatusNoContent)
		default:
			return doGet("/history", http.StatusOK)
		}
	})

	fmt.Println("\n--- Phase 3: Read-heavy load (10% ticks, 90% reads) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.10:
			return doTick(rng)
		case r < 0.50:
			return doResume(rng)
		case r < 0.70:
			return doGetProgress(rng)
		case r < 0.85:
			return doGet("/continue", http.StatusOK, http.StatusNoContent)
		default:
			return doGet("/history", http.StatusOK)
		}
	})
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg conc.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		seed := rand.Int63() + int64(i)
		wg.Go(func() {
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		})
	}

	allResults := make(map[string]*stats)
	var mu sync.Mutex
	done := make(chan struct{})
	go func() {
		for r := range results {
			mu.Lock()
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
			mu.Unlock()
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + strings.Repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors,
			fmtDur(avgDuration(s.latencies)),
			fmtDur(percentile(s.latencies, 0.50)),
			fmtDur(percentile(s.latencies, 0.95)),
			fmtDur(percentile(s.latencies, 0.99)))
	}

	if totalOps == 0 {
		return
	}
	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + strings.Repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

// randomTitle returns a content id with its media type; shows live above the movie range.
func randomTitle(rng *rand.Rand) (int64, string) {
	if rng.Intn(numMovies+numShows) < numMovies {
		return int64(rng.Intn(numMovies) + 1), "movie"
	}
	return int64(numMovies + rng.Intn(numShows) + 1), "tv"
}

func doTick(rng *rand.Rand) result {
	id, mediaType := randomTitle(rng)
	duration := float64(1200 + rng.Intn(6000))
	body := map[string]interface{}{
		"id":       id,
		"type":     mediaType,
		"watched":  rng.Float64() * duration,
		"duration": duration,
	}
	if mediaType == "tv" {
		body["season"] = rng.Intn(numSeasons) + 1
		body["episode"] = rng.Intn(numEpisodes) + 1
	}
	return post("POST /progress", "/progress", "", body, http.StatusOK)
}

func doPlayerMessage(rng *rand.Rand) result {
	id, mediaType := randomTitle(rng)
	duration := float64(1200 + rng.Intn(6000))
	entry := map[string]interface{}{
		"type": mediaType,
		"progress": map[string]float64{
			"watched":  rng.Float64() * duration,
			"duration": duration,
		},
		"last_updated": time.Now().UnixMilli(),
	}
	if mediaType == "tv" {
		// Numeric strings exercise the validator's lenient episode parsing.
		entry["last_season_watched"] = fmt.Sprint(rng.Intn(numSeasons) + 1)
		entry["last_episode_watched"] = fmt.Sprint(rng.Intn(numEpisodes) + 1)
	}
	msg := map[string]interface{}{
		"type": "MEDIA_DATA",
		"data": map[string]interface{}{fmt.Sprint(id): entry},
	}
	return post("POST /player/message", "/player/message", playerOrigin, msg, http.StatusAccepted)
}

func doResume(rng *rand.Rand) result {
	id, mediaType := randomTitle(rng)
	return doGetAs("GET /resume", fmt.Sprintf("/resume?id=%d&type=%s", id, mediaType), http.StatusOK)
}

func doGetProgress(rng *rand.Rand) result {
	id, _ := randomTitle(rng)
	return doGetAs("GET /progress", fmt.Sprintf("/progress?id=%d", id), http.StatusOK, http.StatusNotFound)
}

func doGet(path string, ok ...int) result {
	return doGetAs("GET "+path, path, ok...)
}

func doGetAs(endpoint, path string, ok ...int) result {
	start := time.Now()
	resp, err := httpClient.Get(baseURL + path)
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return result{endpoint, resp.StatusCode, lat, !expected(resp.StatusCode, ok)}
}

func post(endpoint, path, origin string, body interface{}, ok int) result {
	data, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(data))
	if err != nil {
		return result{endpoint, 0, 0, true}
	}
	req.Header.Set("Content-Type", "application/json")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	start := time.Now()
	resp, err := httpClient.Do(req)
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return result{endpoint, resp.StatusCode, lat, resp.StatusCode != ok}
}

func expected(status int, ok []int) bool {
	for _, code := range ok {
		if status == code {
			return true
		}
	}
	return false
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
