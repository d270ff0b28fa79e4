package domain

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

type RoomID string

const (
	privateRoomPrefix = "private_"
	groupRoomPrefix   = "group_"
)

// PrivateRoomID derives the id of a two-party room from the unordered pair.
// Sorting makes the id symmetric, so both sides always resolve the same room.
func PrivateRoomID(a, b string) RoomID {
	pair := []string{a, b}
	sort.Strings(pair)
	return RoomID(privateRoomPrefix + strings.Join(pair, "_"))
}

// NewGroupRoomID generates a fresh group id.
// The distinct prefix guarantees group ids never collide with private ones.
func NewGroupRoomID() RoomID {
	return RoomID(groupRoomPrefix + uuid.NewString())
}

// Room is process-lifetime state. Membership is fixed at creation;
// the message log lives in the message repository, keyed by room id.
type Room struct {
	ID           RoomID   `json:"id"`
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
	IsGroup      bool     `json:"isGroup"`
}

// NewPrivateRoom builds the two-party room for the given pair.
// Participants are stored sorted, matching the id derivation.
func NewPrivateRoom(a, b string) *Room {
	pair := []string{a, b}
	sort.Strings(pair)
	return &Room{
		ID:           PrivateRoomID(a, b),
		Name:         "Private Chat",
		Participants: pair,
		IsGroup:      false,
	}
}

func NewGroupRoom(name string, participants []string) *Room {
	return &Room{
		ID:           NewGroupRoomID(),
		Name:         name,
		Participants: participants,
		IsGroup:      true,
	}
}

// Has reports whether the connection id belongs to the room.
func (r *Room) Has(connID string) bool {
	for _, p := range r.Participants {
		if p == connID {
			return true
		}
	}
	return false
}
