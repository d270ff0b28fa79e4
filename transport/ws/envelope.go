// Package ws is the WebSocket transport of the relay. It upgrades
// connections, decodes inbound envelopes into commands, and delivers
// outbound events through per-connection bounded queues.
package ws

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
)

// Envelope is the wire frame in both directions: a named event and its
// JSON payload.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

var validate = validator.New()

type joinPayload struct {
	Username string `json:"username"`
}

type startPrivateChatPayload struct {
	OtherUserID string `json:"otherUserId"`
}

type createRoomPayload struct {
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
}

type messagePayload struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

type typingPayload struct {
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

type updateUserPayload struct {
	Username    string `json:"username"`
	Description string `json:"description"`
}

type historyPayload struct {
	RoomID string  `json:"roomId"`
	Cursor *string `json:"cursor"`
}

type searchPayload struct {
	RoomID string `json:"roomId"`
	Query  string `json:"query"`
}

// DecodeCommand turns one inbound frame into a validated command for the
// given connection. Unknown event names and malformed payloads come back
// as errors; the caller drops them without answering the sender.
func DecodeCommand(connID string, data []byte) (domain.Command, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}

	var cmd domain.Command
	switch envelope.Event {
	case "join":
		var p joinPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return nil, fmt.Errorf("decoding join payload: %w", err)
		}
		cmd = domain.JoinCommand{Conn: connID, Username: strings.TrimSpace(p.Username)}
	case "startPrivateChat":
		var p startPrivateChatPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return nil, fmt.Errorf("decoding startPrivateChat payload: %w", err)
		}
		cmd = domain.StartPrivateChatCommand{Conn: connID, OtherID: p.OtherUserID}
	case "createRoom":
		var p createRoomPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return nil, fmt.Errorf("decoding createRoom payload: %w", err)
		}
		cmd = domain.CreateRoomCommand{Conn: connID, Name: p.Name, Participants: p.Participants}
	case "message":
		var p messagePayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return nil, fmt.Errorf("decoding message payload: %w", err)
		}
		cmd = domain.PostMessageCommand{Conn: connID, Room: domain.RoomID(p.RoomID), Text: p.Text}
	case "typing":
		var p typingPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return nil, fmt.Errorf("decoding typing payload: %w", err)
		}
		cmd = domain.TypingCommand{Conn: connID, Room: domain.RoomID(p.RoomID), IsTyping: p.IsTyping}
	case "updateUser":
		var p updateUserPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return nil, fmt.Errorf("decoding updateUser payload: %w", err)
		}
		cmd = domain.UpdateProfileCommand{
			Conn:        connID,
			Username:    strings.TrimSpace(p.Username),
			Description: p.Description,
		}
	case "history":
		var p historyPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return nil, fmt.Errorf("decoding history payload: %w", err)
		}
		cmd = domain.HistoryCommand{Conn: connID, Room: domain.RoomID(p.RoomID), Cursor: p.Cursor}
	case "search":
		var p searchPayload
		if err := json.Unmarshal(envelope.Payload, &p); err != nil {
			return nil, fmt.Errorf("decoding search payload: %w", err)
		}
		cmd = domain.SearchCommand{Conn: connID, Room: domain.RoomID(p.RoomID), Query: p.Query}
	default:
		return nil, fmt.Errorf("%w : %s", errors.ErrUnknownEvent, envelope.Event)
	}

	if err := validate.Struct(cmd); err != nil {
		return nil, fmt.Errorf("validating %s payload: %w", envelope.Event, err)
	}
	return cmd, nil
}

// EncodeEvent wraps an outbound event in its named envelope.
func EncodeEvent(e event.Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", e.EventName(), err)
	}
	return json.Marshal(Envelope{Event: e.EventName(), Payload: payload})
}
