package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	ErrInvalidUTF8       = errors.New("frame is not valid UTF-8")
	ErrMalformedFrame    = errors.New("frame is not a JSON object")
	ErrMissingType       = errors.New("frame has no type")
	ErrSchemaMismatch    = errors.New("payload does not match message type")
	ErrUnknownClientType = errors.New("unknown client message type")
	ErrInconsistentState = errors.New("inconsistent game state")
)

// envelope is the two-field wire shape shared by every message
type envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ClientMessage is an action sent to the server. Build it with Draw, Chat or
// JoinRoom.
type ClientMessage struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

// Draw wraps a finished stroke
func Draw(stroke DrawStroke) ClientMessage {
	return ClientMessage{Type: TypeDraw, Data: stroke}
}

// Chat wraps a chat line
func Chat(text string) ClientMessage {
	return ClientMessage{Type: TypeChat, Data: ChatData{Text: text}}
}

// JoinRoom asks to join roomID as playerName
func JoinRoom(roomID, playerName string) ClientMessage {
	return ClientMessage{Type: TypeJoinRoom, Data: JoinRoomData{RoomID: roomID, PlayerName: playerName}}
}

// Encode serializes the message into its wire form.
func (m ClientMessage) Encode() ([]byte, error) {
	switch m.Type {
	case TypeDraw, TypeChat, TypeJoinRoom:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownClientType, m.Type)
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", m.Type, err)
	}
	return data, nil
}

// DecodeClientMessage parses a client action frame, for example one coming
// from a local UI that relays through this client.
func DecodeClientMessage(frame []byte) (ClientMessage, error) {
	if !utf8.Valid(frame) {
		return ClientMessage{}, ErrInvalidUTF8
	}

	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return ClientMessage{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	var err error
	msg := ClientMessage{Type: env.Type}
	switch env.Type {
	case "":
		return ClientMessage{}, ErrMissingType
	case TypeDraw:
		msg.Data, err = decodePayload[DrawStroke](env.Data)
	case TypeChat:
		msg.Data, err = decodePayload[ChatData](env.Data)
	case TypeJoinRoom:
		msg.Data, err = decodePayload[JoinRoomData](env.Data)
	default:
		return ClientMessage{}, fmt.Errorf("%w: %q", ErrUnknownClientType, env.Type)
	}
	if err != nil {
		return ClientMessage{}, err
	}
	return msg, nil
}

// ServerMessage is a decoded inbound frame. Data holds DrawStroke,
// GameStateData, PlayerJoinedData, ErrorData or ChatData for the known types
// and json.RawMessage for anything else. Raw is the undecoded payload.
type ServerMessage struct {
	Type MessageType
	Data any
	Raw  json.RawMessage
}

// DecodeServerMessage parses one inbound frame.
func DecodeServerMessage(frame []byte) (ServerMessage, error) {
	if !utf8.Valid(frame) {
		return ServerMessage{}, ErrInvalidUTF8
	}

	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ServerMessage{}, ErrMalformedFrame
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return ServerMessage{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Type == "" {
		return ServerMessage{}, ErrMissingType
	}

	msg := ServerMessage{Type: env.Type, Raw: env.Data}

	var err error
	switch env.Type {
	case TypeDrawStroke:
		msg.Data, err = decodePayload[DrawStroke](env.Data)
	case TypeGameState:
		var state GameStateData
		state, err = decodePayload[GameStateData](env.Data)
		if err == nil {
			if state.Players == nil {
				state.Players = []Player{}
			}
			if state.Scores == nil {
				state.Scores = map[string]float64{}
			}
			msg.Data = state
		}
	case TypePlayerJoined:
		msg.Data, err = decodePayload[PlayerJoinedData](env.Data)
	case TypeError:
		msg.Data, err = decodePayload[ErrorData](env.Data)
	case TypeChat:
		msg.Data, err = decodePayload[ChatData](env.Data)
	default:
		msg.Data = env.Data
	}
	if err != nil {
		return ServerMessage{}, err
	}

	return msg, nil
}

func decodePayload[T any](raw json.RawMessage) (T, error) {
	var payload T
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return payload, fmt.Errorf("%w: data must be an object", ErrSchemaMismatch)
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return payload, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return payload, nil
}

// Encode serializes a server message. It is what a server, or a test
// standing in for one, puts on the wire.
func (m ServerMessage) Encode() ([]byte, error) {
	if m.Type == "" {
		return nil, ErrMissingType
	}
	data, err := json.Marshal(struct {
		Type MessageType `json:"type"`
		Data any         `json:"data"`
	}{m.Type, m.Data})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", m.Type, err)
	}
	return data, nil
}
