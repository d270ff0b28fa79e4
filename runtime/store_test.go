package runtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
)

func TestRoomStore_ResolvePrivate_Idempotent(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := NewRoomStore(mocks.NewMockIMessageRepository(ctrl))
	a := uuid.NewString()
	b := uuid.NewString()

	// When resolving the same unordered pair twice, in either order
	first := store.ResolvePrivate(a, b)
	second := store.ResolvePrivate(b, a)

	// Then both calls land on the same room
	req.Same(first, second)
	req.ElementsMatch([]string{a, b}, first.Participants)
	req.False(first.IsGroup)
}

func TestRoomStore_CreateGroup(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := NewRoomStore(mocks.NewMockIMessageRepository(ctrl))
	participants := []string{uuid.NewString(), uuid.NewString()}

	room := store.CreateGroup("Team", participants)

	// Then the room is retrievable and listed for each participant
	found, ok := store.Get(room.ID)
	req.True(ok)
	req.Same(room, found)
	req.Len(store.RoomsFor(participants[0]), 1)
	req.Len(store.RoomsFor(participants[1]), 1)
	req.Empty(store.RoomsFor(uuid.NewString()))
}

func TestRoomStore_RoomsFor_IncludesEveryMembership(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := NewRoomStore(mocks.NewMockIMessageRepository(ctrl))
	a := uuid.NewString()
	b := uuid.NewString()
	c := uuid.NewString()

	store.ResolvePrivate(a, b)
	store.CreateGroup("Team", []string{a, c})

	req.Len(store.RoomsFor(a), 2)
	req.Len(store.RoomsFor(b), 1)
	req.Len(store.RoomsFor(c), 1)
}

func TestRoomStore_Append(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	store := NewRoomStore(repository)
	a := uuid.NewString()
	b := uuid.NewString()
	room := store.ResolvePrivate(a, b)
	message := domain.Message{ID: uuid.New(), AuthorID: a, Author: "alice", Text: "hey"}

	// Given the repository accepts the write
	repository.EXPECT().Store(room.ID, message).Return(nil)

	// When appending to an existing room
	req.NoError(store.Append(room.ID, message))

	// When appending to a room that does not exist
	err := store.Append("private_ghost", message)

	// Then the repository is never touched
	req.ErrorIs(err, errors.ErrRoomNotFound)
}
