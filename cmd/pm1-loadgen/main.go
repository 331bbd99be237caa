// Package main - pm1-loadgen
// Load generator for the PM1 server. Opens many concurrent WebSocket
// spectators, has each of them poll the simulation over the command
// channel, and measures broadcast fan-out and command round-trips.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Config for the load generator.
type Config struct {
	ServerURL       string
	NumClients      int
	CommandInterval time.Duration
	TestDuration    time.Duration
}

// Stats tracks performance counters across all clients.
type Stats struct {
	CommandsSent  int64
	RepliesGot    int64
	BroadcastsGot int64
	Errors        int64
	RoundTrips    []time.Duration
	mu            sync.Mutex
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type command struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 50, "Number of concurrent clients")
	interval := flag.Duration("interval", time.Second, "Command interval per client")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	flag.Parse()

	config := Config{
		ServerURL:       *serverURL,
		NumClients:      *numClients,
		CommandInterval: *interval,
		TestDuration:    *duration,
	}

	fmt.Println("=========================================")
	fmt.Println("PM1 LOAD GENERATOR")
	fmt.Println("=========================================")
	fmt.Printf("Server:   %s\n", config.ServerURL)
	fmt.Printf("Clients:  %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.CommandInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupt received, stopping...")
		cancel()
	}()

	stats := runLoadTest(ctx, config)
	printResults(stats, config)
}

func runLoadTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		RoundTrips: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup

	fmt.Println("\nStarting clients...")

	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("All %d clients started\n\n", config.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sent := atomic.LoadInt64(&stats.CommandsSent)
				replies := atomic.LoadInt64(&stats.RepliesGot)
				bcast := atomic.LoadInt64(&stats.BroadcastsGot)
				errs := atomic.LoadInt64(&stats.Errors)
				fmt.Printf("Progress: Sent=%d Replies=%d Broadcasts=%d Errors=%d\n",
					sent, replies, bcast, errs)
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Printf("Client %d: connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	// lastSent holds the UnixNano of the most recent command so the
	// reader can estimate the command round-trip.
	var lastSent atomic.Int64

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env envelope
			if json.Unmarshal(data, &env) != nil {
				continue
			}
			if env.Type == "command_result" {
				atomic.AddInt64(&stats.RepliesGot, 1)
				if sent := lastSent.Load(); sent > 0 {
					rtt := time.Since(time.Unix(0, sent))
					stats.mu.Lock()
					stats.RoundTrips = append(stats.RoundTrips, rtt)
					stats.mu.Unlock()
				}
			} else {
				atomic.AddInt64(&stats.BroadcastsGot, 1)
			}
		}
	}()

	ticker := time.NewTicker(config.CommandInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lastSent.Store(time.Now().UnixNano())
			if err := conn.WriteJSON(nextCommand()); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.CommandsSent, 1)
		}
	}
}

// nextCommand is read-mostly: status polls dominate, with an occasional
// force_resolve to exercise the resolution path under load.
func nextCommand() command {
	if rand.Intn(20) == 0 {
		return command{Type: "force_resolve"}
	}
	return command{Type: "status"}
}

func printResults(stats *Stats, config Config) {
	fmt.Println("\n=========================================")
	fmt.Println("LOAD TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.CommandsSent)
	replies := atomic.LoadInt64(&stats.RepliesGot)
	bcast := atomic.LoadInt64(&stats.BroadcastsGot)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Commands Sent:      %d\n", sent)
	fmt.Printf("Replies Received:   %d\n", replies)
	fmt.Printf("Broadcasts Received: %d\n", bcast)
	fmt.Printf("Errors:             %d\n", errs)
	fmt.Printf("Error Rate:         %.2f%%\n", float64(errs)/float64(sent+1)*100)

	throughput := float64(sent) / config.TestDuration.Seconds()
	fmt.Printf("Throughput:         %.2f cmd/sec\n", throughput)

	if len(stats.RoundTrips) > 0 {
		var total time.Duration
		min, max := stats.RoundTrips[0], stats.RoundTrips[0]
		for _, l := range stats.RoundTrips {
			total += l
			if l < min {
				min = l
			}
			if l > max {
				max = l
			}
		}
		avg := total / time.Duration(len(stats.RoundTrips))

		fmt.Printf("\nCommand round-trip:\n")
		fmt.Printf("  Min: %v\n", min)
		fmt.Printf("  Avg: %v\n", avg)
		fmt.Printf("  Max: %v\n", max)
	}

	fmt.Println("\n-----------------------------------------")
	switch {
	case errs == 0 && replies > 0:
		fmt.Println("PASS: server handled the load")
	case float64(errs)/float64(sent+1) < 0.05:
		fmt.Println("WARN: some errors detected")
	default:
		fmt.Println("FAIL: high error rate")
	}
	fmt.Println("=========================================")

	results := map[string]interface{}{
		"commands_sent":       sent,
		"replies_received":    replies,
		"broadcasts_received": bcast,
		"errors":              errs,
		"throughput_per_sec":  throughput,
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.CommandInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}

	jsonData, _ := json.MarshalIndent(results, "", "  ")
	os.WriteFile("loadgen_results.json", jsonData, 0644)
	fmt.Println("\nResults saved to loadgen_results.json")
}
