package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rzpsarthak13/txn-batcher/pkg/txnbatcher"
)

var (
	queue *txnbatcher.Queue
	cache *txnbatcher.Cache
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	dbPath := flag.String("db", "txn-batcher.db", "SQLite database path (ignored when -config is set)")
	flag.Parse()

	// 1. Configure the batching queue
	config := txnbatcher.DefaultConfig()
	if *configPath != "" {
		var err error
		config, err = txnbatcher.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	} else {
		config.Store.Path = *dbPath
	}

	// 2. Create the queue and the typed cache facade
	var err error
	queue, err = txnbatcher.NewQueue(config)
	if err != nil {
		log.Fatalf("Failed to create batching queue: %v", err)
	}
	defer queue.Close()

	cache = txnbatcher.NewCache(queue, config.Batch.DefaultTTL)

	// 3. Start the background worker
	ctx := context.Background()
	lifecycle, err := queue.Start(ctx)
	if err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}
	defer func() {
		log.Println("Stopping worker...")
		lifecycle.Stop()
		log.Println("✓ Worker stopped")
	}()

	// 4. Setup HTTP routes
	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/entry", entryHandler)
	http.HandleFunc("/entry/", entryByKeyHandler)
	http.HandleFunc("/keys", keysHandler)
	http.HandleFunc("/flush", flushHandler)

	log.Println("")
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║              TXN BATCHER TEST SERVER                       ║")
	log.Println("╠════════════════════════════════════════════════════════════╣")
	log.Println("║  API Endpoints:                                            ║")
	log.Println("║    POST   /entry       - Store a cache entry               ║")
	log.Println("║    GET    /entry/{key} - Fetch a cache entry               ║")
	log.Println("║    DELETE /entry/{key} - Invalidate a cache entry          ║")
	log.Println("║    GET    /keys        - List all cached keys              ║")
	log.Println("║    POST   /flush       - Force a synchronous drain         ║")
	log.Println("║    GET    /health      - Health check                      ║")
	log.Println("╠════════════════════════════════════════════════════════════╣")
	log.Printf("║  Store Driver: %-43s ║\n", config.Store.Driver)
	log.Printf("║  Chunk Size:   %-3d records/tx                              ║\n", config.Batch.ChunkSize)
	log.Printf("║  Drain Rate:   %-3d tx/sec                                  ║\n", config.Batch.DrainRate)
	log.Println("╚════════════════════════════════════════════════════════════╝")
	log.Println("")

	// 5. Start HTTP server with graceful shutdown
	port := ":8080"
	log.Printf("Starting HTTP server on port %s", port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := http.ListenAndServe(port, nil); err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-sigChan
	log.Println("\nReceived shutdown signal...")
}

// ============================================================================
// HTTP Handlers
// ============================================================================

type entryRequest struct {
	Key   string      `json:"key"`
	Type  string      `json:"type,omitempty"`
	Value interface{} `json:"value"`
	TTL   string      `json:"ttl,omitempty"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"worker": map[string]interface{}{
			"running":    queue.IsRunning(),
			"queue_size": queue.Len(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

func entryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestStart := time.Now()

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if req.Key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}

	var ttl time.Duration
	if req.TTL != "" {
		var err error
		ttl, err = time.ParseDuration(req.TTL)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid ttl: %v", err), http.StatusBadRequest)
			return
		}
	}

	log.Printf("[%s] ▶ SET | key=%s (queue size: %d)",
		requestStart.Format("15:04:05.000"), req.Key, queue.Len())

	if err := cache.Set(r.Context(), req.Key, req.Type, req.Value, ttl); err != nil {
		log.Printf("[%s] ✗ SET FAILED | key=%s | error=%v | duration=%v",
			time.Now().Format("15:04:05.000"), req.Key, err, time.Since(requestStart))
		http.Error(w, fmt.Sprintf("Failed to store entry: %v", err), http.StatusInternalServerError)
		return
	}

	log.Printf("[%s] ◀ SET OK | key=%s | duration=%v",
		time.Now().Format("15:04:05.000"), req.Key, time.Since(requestStart))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Entry committed",
		"key":     req.Key,
	})
}

func entryByKeyHandler(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Path[len("/entry/"):]
	if key == "" {
		http.Error(w, "Key required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		var value interface{}
		found, err := cache.Get(r.Context(), key, &value)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to fetch entry: %v", err), http.StatusInternalServerError)
			return
		}
		if !found {
			http.Error(w, "Entry not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"key":   key,
			"value": value,
		})

	case http.MethodDelete:
		if err := cache.Delete(r.Context(), key); err != nil {
			http.Error(w, fmt.Sprintf("Failed to invalidate entry: %v", err), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func keysHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	keys, err := cache.Keys(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list keys: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"count": len(keys),
		"keys":  keys,
	})
}

func flushHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flushStart := time.Now()
	if err := queue.Flush(r.Context()); err != nil {
		http.Error(w, fmt.Sprintf("Flush failed: %v", err), http.StatusInternalServerError)
		return
	}

	log.Printf("✓ Flush completed in %v", time.Since(flushStart))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":  "Flush completed",
		"duration": time.Since(flushStart).String(),
	})
}
