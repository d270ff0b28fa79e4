package runtime

import (
	"sync"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
)

// RoomStore maps room ids to room state. Rooms are never deleted and
// membership never changes after creation, so reads dominate; the store
// only locks around the room map, message appends go straight to the
// repository once the room is known to exist.
type RoomStore struct {
	mu       sync.RWMutex
	rooms    map[domain.RoomID]*domain.Room
	messages repositories.IMessageRepository
}

func NewRoomStore(messages repositories.IMessageRepository) *RoomStore {
	return &RoomStore{
		rooms:    make(map[domain.RoomID]*domain.Room),
		messages: messages,
	}
}

// ResolvePrivate returns the room for the unordered pair, creating it on
// first use. Idempotent: the derived id makes repeated calls, in either
// order, land on the same room.
func (s *RoomStore) ResolvePrivate(a, b string) *domain.Room {
	id := domain.PrivateRoomID(a, b)
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[id]; ok {
		return room
	}
	room := domain.NewPrivateRoom(a, b)
	s.rooms[room.ID] = room
	return room
}

// CreateGroup stores a fresh group room. Participant existence is not
// checked here; that is caller policy.
func (s *RoomStore) CreateGroup(name string, participants []string) *domain.Room {
	room := domain.NewGroupRoom(name, participants)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = room
	return room
}

func (s *RoomStore) Get(roomID domain.RoomID) (*domain.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	return room, ok
}

// RoomsFor returns every room whose participant set contains the id,
// departed connections included (membership is never pruned).
func (s *RoomStore) RoomsFor(connID string) []*domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rooms []*domain.Room
	for _, room := range s.rooms {
		if room.Has(connID) {
			rooms = append(rooms, room)
		}
	}
	return rooms
}

// Append adds a message to an existing room's log. Unknown rooms are a
// no-op error; the coordinator never calls this without checking first.
func (s *RoomStore) Append(roomID domain.RoomID, message domain.Message) error {
	if _, ok := s.Get(roomID); !ok {
		return errors.ErrRoomNotFound
	}
	return s.messages.Store(roomID, message)
}

// Log reads a room's full message log, oldest first.
func (s *RoomStore) Log(roomID domain.RoomID) ([]domain.Message, error) {
	return s.messages.All(roomID)
}

// LogPage reads one page of the log, newest first, resuming at cursor.
func (s *RoomStore) LogPage(roomID domain.RoomID, cursor *string) ([]domain.Message, *string, error) {
	return s.messages.Page(roomID, cursor)
}
