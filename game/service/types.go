package service

import (
	"time"
)

// Event types recorded in the recent events log
const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
	EventPlayerJoined = "player_joined"
	EventChat         = "chat"
	EventStroke       = "stroke"
	EventServerError  = "server_error"
	EventRound        = "round"
)

// maxEvents bounds the recent events log
const maxEvents = 100

// StatusInfo describes the connection and the last room request
type StatusInfo struct {
	Connected  bool   `json:"connected"`
	State      string `json:"state"`
	ClientID   string `json:"client_id"`
	URL        string `json:"url"`
	RoomID     string `json:"room_id,omitempty"`
	PlayerName string `json:"player_name,omitempty"`
}

// GameEvent is one entry of the recent events log
type GameEvent struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	PlayerID  string    `json:"player_id,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// EventsOptions configures recent event retrieval
type EventsOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
	Type  string `json:"type"`  // optional event type filter
}

// EventsResponse contains a page of recent events
type EventsResponse struct {
	Events      []GameEvent `json:"events"`
	TotalEvents int         `json:"total_events"`
	Page        int         `json:"page"`
	PageSize    int         `json:"page_size"`
	TotalPages  int         `json:"total_pages"`
	HasNext     bool        `json:"has_next"`
	HasPrevious bool        `json:"has_previous"`
}
