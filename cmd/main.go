// Package main is the entry point for tunestream, a terminal music
// streaming client.
//
// Build:
//
//	go build -o build/tunestream ./cmd
//
// Run:
//
//	./build/tunestream play https://example.com/song.mp3
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
