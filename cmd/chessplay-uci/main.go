// Command chessplay-uci runs the engine as a UCI protocol process.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/hailam/chessplay/internal/engine"
	"github.com/hailam/chessplay/internal/storage"
	"github.com/hailam/chessplay/internal/uci"
)

// defaultWeightsFile is the NNUE weights file name looked up under the
// platform data directory when no evalfile option has been set yet.
const defaultWeightsFile = "chessplay.nnue"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")

func main() {
	flag.Parse()

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		log.Printf("CPU profiling enabled, writing to %s", profilePath)
	}

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
			log.Printf("NNUE loaded from %s", weightsPath)
		}
	}

	protocol := uci.New(eng)
	protocol.Run()
}

// defaultWeightsPath returns the conventional NNUE weights path if a file
// actually exists there, or "" otherwise.
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
