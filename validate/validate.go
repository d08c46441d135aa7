// Command validate provides a small CLI that validates connection profile JSON
// files in the ../configs directory. It checks:
//   - JSON structure and unknown keys
//   - Presence of the server url
//   - URL scheme and host (ws or wss)
//   - Reconnect policy (positive delay, max >= delay, factor >= 1)
//   - Keepalive timing (pong_wait leaves room for a ping after write_wait)
package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/scribble-client/game/config"
)

// knownFields lists the keys a profile may carry
var knownFields = map[string]bool{
	"name":                true,
	"url":                 true,
	"reconnect_delay":     true,
	"max_reconnect_delay": true,
	"reconnect_factor":    true,
	"write_wait":          true,
	"pong_wait":           true,
	"max_message_size":    true,
	"handshake_timeout":   true,
	"send_buffer":         true,
}

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateProfile loads and validates a single profile file
func validateProfile(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	var unknown []string
	for key := range raw {
		if !knownFields[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		result.fail("Unknown field %q", key)
	}

	if _, ok := raw["url"]; !ok {
		result.fail("Missing required field \"url\"")
		return result
	}

	cfg, err := config.Parse(data)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	if cfg.PongWait <= cfg.WriteWait {
		result.fail("pong_wait (%s) must be longer than write_wait (%s)", cfg.PongWait.Std(), cfg.WriteWait.Std())
	}

	if !result.Valid {
		return result
	}

	u, _ := url.Parse(cfg.URL)
	result.info("Server: %s", cfg.URL)
	if u.Scheme == "ws" && !isLocal(u.Hostname()) {
		result.info("Plain ws:// to a remote host; consider wss://")
	}

	if cfg.ReconnectFactor == 1 || cfg.MaxReconnectDelay == cfg.ReconnectDelay {
		result.info("Reconnect: fixed %s", cfg.ReconnectDelay.Std())
	} else {
		result.info("Reconnect: %s growing x%g up to %s", cfg.ReconnectDelay.Std(), cfg.ReconnectFactor, cfg.MaxReconnectDelay.Std())
	}
	result.info("Keepalive: ping every %s", cfg.PingPeriod())

	return result
}

func isLocal(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// main scans ../configs for *.json files and validates each one, printing a
// concise report and exiting with non-zero status if any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding profile files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateProfile(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All profiles are valid!")
	} else {
		fmt.Println("❌ Some profiles have errors")
		os.Exit(1)
	}
}
