// Package config provides connection configuration for the scribble client.
//
// The config package handles:
//   - The endpoint URL of the game server
//   - Reconnection delay policy
//   - Websocket keepalive and size limits
//   - Named configuration profiles stored as JSON files
//
// Configuration Format:
//
// Profiles are JSON files in a profiles directory. Durations are written as
// Go duration strings or as a number of milliseconds:
//
//	{
//	  "url": "ws://localhost:3000/ws",
//	  "reconnect_delay": "3s",
//	  "max_reconnect_delay": "3s",
//	  "reconnect_factor": 1,
//	  "write_wait": "10s",
//	  "pong_wait": 60000,
//	  "max_message_size": 65536
//	}
//
// Missing fields keep their defaults, so a profile may contain only "url".
//
// Usage:
//
//	manager, err := config.NewManager("profiles")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cfg, err := manager.Load("staging")
//
//	// Default profile ("default.json" if present, built-in defaults otherwise)
//	cfg = manager.Default()
//
// Reconnection:
//
// The default policy is a fixed 3 second delay between attempts with no
// retry limit. Setting reconnect_factor above 1 and max_reconnect_delay above
// reconnect_delay turns it into a capped exponential backoff.
package config
