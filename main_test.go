package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/scribble-client/game/config"
	"github.com/wricardo/scribble-client/transport/websocket"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SCRIBBLE_URL", "")
	t.Setenv("SCRIBBLE_RECONNECT_DELAY", "")
}

func writeProfile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".json"), []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write profile: %v", err)
	}
}

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Scribble Client" {
		t.Errorf("Unexpected app name %s", AppName)
	}
}

func TestLoadConfig_NoDirectory(t *testing.T) {
	clearEnv(t)

	cfg, profiles, err := loadConfig("/non/existent/path", "", "")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if profiles != nil {
		t.Error("Expected no profile manager without a directory")
	}
	if cfg.URL != config.DefaultURL {
		t.Errorf("Expected default url, got %s", cfg.URL)
	}
	if cfg.ReconnectDelay.Std() != 3*time.Second {
		t.Errorf("Expected 3s reconnect delay, got %v", cfg.ReconnectDelay.Std())
	}
}

func TestLoadConfig_ProfileRequiresDirectory(t *testing.T) {
	clearEnv(t)

	if _, _, err := loadConfig("/non/existent/path", "local", ""); err == nil {
		t.Error("Expected error for a profile without a config directory")
	}
}

func TestLoadConfig_Profiles(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeProfile(t, dir, "default", `{"url": "ws://default.test/ws"}`)
	writeProfile(t, dir, "staging", `{"url": "wss://staging.test/ws", "reconnect_delay": "5s"}`)

	tests := []struct {
		name     string
		profile  string
		override string
		wantURL  string
		wantErr  bool
	}{
		{name: "directory default", wantURL: "ws://default.test/ws"},
		{name: "named profile", profile: "staging", wantURL: "wss://staging.test/ws"},
		{name: "url override", profile: "staging", override: "ws://override.test/ws", wantURL: "ws://override.test/ws"},
		{name: "invalid override", override: "http://override.test", wantErr: true},
		{name: "missing profile", profile: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, profiles, err := loadConfig(dir, tt.profile, tt.override)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("loadConfig failed: %v", err)
			}
			if profiles == nil {
				t.Fatal("Expected a profile manager")
			}
			if cfg.URL != tt.wantURL {
				t.Errorf("Expected url %s, got %s", tt.wantURL, cfg.URL)
			}
		})
	}
}

func TestLoadConfig_OverrideDoesNotLeakIntoProfiles(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeProfile(t, dir, "default", `{"url": "ws://default.test/ws"}`)

	_, profiles, err := loadConfig(dir, "", "ws://override.test/ws")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if got := profiles.Default().URL; got != "ws://default.test/ws" {
		t.Errorf("Cached profile was modified: %s", got)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCRIBBLE_URL", "ws://env.test/ws")
	t.Setenv("SCRIBBLE_RECONNECT_DELAY", "250")

	cfg, _, err := loadConfig(t.TempDir(), "", "")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.URL != "ws://env.test/ws" {
		t.Errorf("Expected env url, got %s", cfg.URL)
	}
	if cfg.ReconnectDelay.Std() != 250*time.Millisecond {
		t.Errorf("Expected 250ms delay, got %v", cfg.ReconnectDelay.Std())
	}
}

func TestNewApp(t *testing.T) {
	a := newApp(config.Default(), nil)
	defer a.service.Close()

	if a.store == nil || a.router == nil || a.manager == nil || a.service == nil {
		t.Fatalf("Expected every component to be built: %#v", a)
	}
	if a.manager.State() != websocket.StateIdle {
		t.Errorf("Expected idle manager, got %s", a.manager.State())
	}

	status, err := a.service.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.URL != config.DefaultURL || status.Connected {
		t.Errorf("Unexpected status %#v", status)
	}
}

func TestHandler(t *testing.T) {
	a := newApp(config.Default(), nil)
	defer a.service.Close()

	srv := httptest.NewServer(a.handler(nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from /health, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/mcp")
	if err != nil {
		t.Fatalf("GET /mcp failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 from GET /mcp, got %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(`{"text":"hi"}`))
	if err != nil {
		t.Fatalf("POST /api/chat failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 while disconnected, got %d", resp.StatusCode)
	}
}

func TestHandler_MCP(t *testing.T) {
	a := newApp(config.Default(), nil)
	defer a.service.Close()

	srv := httptest.NewServer(a.handler(nil))
	defer srv.Close()

	call := func(body string) map[string]interface{} {
		t.Helper()
		resp, err := http.Post(srv.URL+"/mcp", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST /mcp failed: %v", err)
		}
		defer resp.Body.Close()

		var out map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("Failed to decode MCP response: %v", err)
		}
		return out
	}

	initResp := call(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0.0"}}}`)
	result, ok := initResp["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected initialize result, got %v", initResp)
	}
	info, _ := result["serverInfo"].(map[string]interface{})
	if info["name"] != "Scribble Client" {
		t.Errorf("Unexpected server info %v", info)
	}

	listResp := call(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	raw, _ := json.Marshal(listResp)
	for _, tool := range []string{"connection_status", "join_room", "send_chat", "draw_stroke", "game_state", "recent_events"} {
		if !strings.Contains(string(raw), `"`+tool+`"`) {
			t.Errorf("Expected tool %s in tools/list, got %s", tool, raw)
		}
	}
}

func TestOpenSink(t *testing.T) {
	sink, err := openSink(context.Background(), clientOptions{})
	if err != nil || sink != nil {
		t.Errorf("Expected no sink without options, got %v, %v", sink, err)
	}

	dir := filepath.Join(t.TempDir(), "mirror")
	sink, err = openSink(context.Background(), clientOptions{mirrorDir: dir})
	if err != nil {
		t.Fatalf("openSink failed: %v", err)
	}
	defer sink.Close()
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Expected mirror directory to be created: %v", err)
	}

	if _, err := openSink(context.Background(), clientOptions{redisURL: "http://not-redis"}); err == nil {
		t.Error("Expected error for an invalid redis url")
	}
}

func TestRunClient_Shutdown(t *testing.T) {
	a := newApp(config.Default(), nil)
	defer a.service.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runClient(ctx, a, clientOptions{httpAddr: "127.0.0.1:0"})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("runClient returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runClient did not stop after cancel")
	}
}

func TestCommand_UnknownMode(t *testing.T) {
	clearEnv(t)

	cmd := newCommand()
	err := cmd.Run(context.Background(), []string{"scribble", "--config-dir", t.TempDir(), "--connect=false", "bogus"})
	if err == nil || !strings.Contains(err.Error(), "unknown mode") {
		t.Errorf("Expected unknown mode error, got %v", err)
	}
}

func TestCommand_FlagDefaults(t *testing.T) {
	cmd := newCommand()

	want := map[string]bool{
		"url": true, "profile": true, "config-dir": true, "http-addr": true, "connect": true,
		"debug": true, "redis-url": true, "redis-prefix": true, "mirror-dir": true,
		"ngrok": true, "ngrok-auth": true, "ngrok-domain": true,
	}
	for _, f := range cmd.Flags {
		for _, name := range f.Names() {
			delete(want, name)
		}
	}
	for name := range want {
		t.Errorf("Missing flag --%s", name)
	}
}
