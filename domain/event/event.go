// Package event defines the outbound events the relay emits to connections.
// Each event knows its wire name; the transport wraps it in a named envelope.
package event

import (
	"chat-relay/domain"
)

// Event is anything deliverable to a connection sink.
type Event interface {
	EventName() string
}

// UserInfo is the public view of a connected profile.
type UserInfo struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Description string `json:"description"`
}

// RoomView is the room as delivered to clients: metadata plus the full
// message log held server-side, so either side can restore history.
// Name is personalized per recipient for private rooms.
type RoomView struct {
	ID           domain.RoomID    `json:"id"`
	Name         string           `json:"name"`
	Participants []string         `json:"participants"`
	IsGroup      bool             `json:"isGroup"`
	Messages     []domain.Message `json:"messages"`
}

// UserJoined is broadcast to every connection, the new arrival included.
type UserJoined UserInfo

func (UserJoined) EventName() string { return "userJoined" }

// UsersList is sent to the joining connection only.
type UsersList []UserInfo

func (UsersList) EventName() string { return "usersList" }

// ChatRooms restores the joiner's existing rooms, logs included.
type ChatRooms []RoomView

func (ChatRooms) EventName() string { return "chatRooms" }

type RoomCreated RoomView

func (RoomCreated) EventName() string { return "roomCreated" }

type MessageReceived struct {
	RoomID  domain.RoomID  `json:"roomId"`
	Message domain.Message `json:"message"`
}

func (MessageReceived) EventName() string { return "message" }

type UserTyping struct {
	UserID   string        `json:"userId"`
	Username string        `json:"username"`
	IsTyping bool          `json:"isTyping"`
	RoomID   domain.RoomID `json:"roomId"`
}

func (UserTyping) EventName() string { return "userTyping" }

type UserUpdated UserInfo

func (UserUpdated) EventName() string { return "userUpdated" }

type UserLeft struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (UserLeft) EventName() string { return "userLeft" }

// History is a reverse-chronological page of a room's log.
// Cursor resumes the next page when non-nil.
type History struct {
	RoomID   domain.RoomID    `json:"roomId"`
	Messages []domain.Message `json:"messages"`
	Cursor   *string          `json:"cursor,omitempty"`
}

func (History) EventName() string { return "history" }

// SearchResults answers a search command, requester only.
type SearchResults struct {
	RoomID   domain.RoomID    `json:"roomId"`
	Query    string           `json:"query"`
	Messages []domain.Message `json:"messages"`
}

func (SearchResults) EventName() string { return "searchResults" }
