package main

import (
	"log"
	"net/http"
	"os"

	"devblog/internal/fakeapi"
)

// Serves the in-memory blog API for trying the client locally. Set
// FAKEAPI_ADDR to change the listen address and FAKEAPI_SEED=false to
// start empty.
func main() {
	addr := os.Getenv("FAKEAPI_ADDR")
	if addr == "" {
		addr = ":4000"
	}

	srv := fakeapi.New(fakeapi.WithLogging())

	if os.Getenv("FAKEAPI_SEED") != "false" {
		email, password, err := srv.Seed()
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		log.Printf("Seeded demo author %s / %s", email, password)
	}

	log.Printf("Fake blog API listening on %s", addr)
	if err := srv.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
