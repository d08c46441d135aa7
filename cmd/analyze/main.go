// Command analyze prints quick, human-readable heuristics about the connection
// profiles in the project's configs directory. It summarizes the server, the
// reconnect schedule a client following the profile would use after repeated
// drops, and keepalive timing.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jpillora/backoff"
	"github.com/wricardo/scribble-client/game/config"
)

// scheduleAttempts is how many reconnect delays are printed per profile
const scheduleAttempts = 6

// Attempt is one step of a reconnect schedule
type Attempt struct {
	N       int
	Delay   time.Duration
	Elapsed time.Duration
}

// reconnectSchedule returns the delays a client waits before each of the
// first n reconnect attempts after consecutive failures
func reconnectSchedule(cfg *config.Config, n int) []Attempt {
	b := &backoff.Backoff{
		Min:    cfg.ReconnectDelay.Std(),
		Max:    cfg.MaxReconnectDelay.Std(),
		Factor: cfg.ReconnectFactor,
	}

	attempts := make([]Attempt, 0, n)
	var elapsed time.Duration
	for i := 1; i <= n; i++ {
		d := b.Duration()
		elapsed += d
		attempts = append(attempts, Attempt{N: i, Delay: d, Elapsed: elapsed})
	}
	return attempts
}

func main() {
	dir := "configs"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding profiles: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No profiles in %s\n", dir)
		return
	}

	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		analyzeProfile(os.Stdout, file)
	}
}

func analyzeProfile(w io.Writer, path string) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		fmt.Fprintf(w, "Error loading profile: %v\n", err)
		return
	}

	fmt.Fprintf(w, "Name: %s\n", cfg.Name)
	fmt.Fprintf(w, "Server: %s\n", cfg.URL)
	fmt.Fprintf(w, "Handshake Timeout: %s\n", cfg.HandshakeTimeout.Std())
	fmt.Fprintf(w, "Ping Period: %s (pong wait %s)\n", cfg.PingPeriod(), cfg.PongWait.Std())
	fmt.Fprintf(w, "Send Buffer: %d frames, Max Inbound Frame: %d bytes\n", cfg.SendBuffer, cfg.MaxMessageSize)

	fmt.Fprintf(w, "Reconnect Schedule:\n")
	for _, a := range reconnectSchedule(cfg, scheduleAttempts) {
		fmt.Fprintf(w, "   Attempt %d after %s (%s since drop)\n", a.N, a.Delay, a.Elapsed)
	}

	if cfg.MaxReconnectDelay == cfg.ReconnectDelay || cfg.ReconnectFactor == 1 {
		fmt.Fprintf(w, "✅ Fixed delay: a restarted server is picked up within %s\n", cfg.ReconnectDelay.Std())
	} else {
		fmt.Fprintf(w, "⚠️  Growing delay: after a long outage the client may wait up to %s\n", cfg.MaxReconnectDelay.Std())
	}

	// A dead peer is noticed within one pong wait
	if cfg.PongWait.Std() > time.Minute {
		fmt.Fprintf(w, "⚠️  Dead connections take over %s to detect\n", cfg.PongWait.Std())
	}
}
