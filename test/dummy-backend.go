package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
)

// Standalone backend for exercising the gateway locally: answers the
// health probe and echoes whatever the proxy forwarded.
func main() {
	addr := flag.String("addr", ":3001", "listen address")
	flag.Parse()

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("Received %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message":        "hello from backend " + *addr,
			"path":           r.URL.Path,
			"forwarded_for":  r.Header.Get("X-Forwarded-For"),
			"forwarded_host": r.Header.Get("X-Forwarded-Host"),
		})
	})

	log.Printf("Backend listening on %s", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		log.Fatal(err)
	}
}
