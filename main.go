// Command chessplay is the headless UCI engine binary built at module root;
// see cmd/chessplay-uci for the same binary under a conventional cmd path.
package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/hailam/chessplay/internal/engine"
	"github.com/hailam/chessplay/internal/storage"
	"github.com/hailam/chessplay/internal/uci"
)

const defaultWeightsFile = "chessplay.nnue"

func main() {
	store, err := storage.Open()
	if err != nil {
		log.Printf("analysis cache unavailable: %v", err)
		store = nil
	} else {
		defer store.Close()
	}

	cfg := storage.DefaultConfig()
	if store != nil {
		if loaded, err := store.LoadConfig(); err == nil {
			cfg = loaded
		}
	}

	eng := engine.NewEngine(cfg.HashMB)
	if store != nil {
		eng.SetCache(store)
	}

	weightsPath := cfg.EvalFile
	if weightsPath == "" {
		weightsPath = defaultWeightsPath()
	}
	if weightsPath != "" {
		if err := eng.LoadNNUE(weightsPath); err != nil {
			log.Printf("Warning: NNUE not loaded: %v (using classical evaluation)", err)
		} else {
			eng.SetUseNNUE(cfg.UseNNUE)
		}
	}

	protocol := uci.New(eng)
	protocol.Run()
}

func defaultWeightsPath() string {
	dir, err := storage.GetNNUEDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, defaultWeightsFile)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
