package runtime

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/moderation"
	"chat-relay/search"
)

// recordingSink captures every event delivered to one connection.
type recordingSink struct {
	mu     sync.Mutex
	events []event.Event
}

func (s *recordingSink) Consume(_ context.Context, e event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) byName(name string) []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []event.Event
	for _, e := range s.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

// memRepository is a slice-backed message log, enough to drive the
// coordinator without a database.
type memRepository struct {
	mu   sync.Mutex
	logs map[domain.RoomID][]domain.Message
}

func newMemRepository() *memRepository {
	return &memRepository{logs: make(map[domain.RoomID][]domain.Message)}
}

func (r *memRepository) Store(roomID domain.RoomID, message domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[roomID] = append(r.logs[roomID], message)
	return nil
}

func (r *memRepository) All(roomID domain.RoomID) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Message(nil), r.logs[roomID]...), nil
}

func (r *memRepository) Page(roomID domain.RoomID, _ *string) ([]domain.Message, *string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := r.logs[roomID]
	reversed := make([]domain.Message, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		reversed = append(reversed, stored[i])
	}
	return reversed, nil, nil
}

// fakeIndex records indexed messages and answers with a canned result.
type fakeIndex struct {
	added []domain.Message
	hits  []domain.Message
}

func (f *fakeIndex) Add(_ domain.RoomID, message domain.Message) error {
	f.added = append(f.added, message)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ domain.RoomID, _ search.Query) ([]domain.Message, error) {
	return f.hits, nil
}

type fixture struct {
	registry    *Registry
	store       *RoomStore
	repository  *memRepository
	index       *fakeIndex
	coordinator *Coordinator
	sinks       map[string]*recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	moderator, err := moderation.NewModerator([]string{"badger"}, '*', log)
	require.NoError(t, err)

	registry := NewRegistry()
	repository := newMemRepository()
	store := NewRoomStore(repository)
	index := &fakeIndex{}
	delivery := NewDelivery(log, registry, time.Second)
	coordinator := NewCoordinator(log, registry, store, delivery, &moderator, index, 16)

	return &fixture{
		registry:    registry,
		store:       store,
		repository:  repository,
		index:       index,
		coordinator: coordinator,
		sinks:       make(map[string]*recordingSink),
	}
}

// connect attaches a sink for a fresh connection, without joining.
func (f *fixture) connect(connID string) *recordingSink {
	sink := &recordingSink{}
	f.sinks[connID] = sink
	f.registry.Attach(connID, sink)
	return sink
}

func (f *fixture) join(ctx context.Context, connID, username string) {
	f.coordinator.Join(ctx, domain.JoinCommand{Conn: connID, Username: username})
}

func TestCoordinator_Join(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	c1 := f.connect("c1")
	c2 := f.connect("c2")

	// When two connections join in turn
	f.join(ctx, "c1", "alice")
	f.join(ctx, "c2", "bob")

	// Then every live connection hears about both arrivals,
	// the joiners themselves included
	req.Len(c1.byName("userJoined"), 2)
	req.Len(c2.byName("userJoined"), 2)

	// And the user list goes to the joiner only
	req.Len(c1.byName("usersList"), 1)
	lists := c2.byName("usersList")
	req.Len(lists, 1)
	req.Len(lists[0].(event.UsersList), 2)

	// And the joiner gets its room restore, empty here
	req.Len(c2.byName("chatRooms"), 1)
}

func TestCoordinator_StartPrivateChat(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	c1 := f.connect("c1")
	c2 := f.connect("c2")
	f.join(ctx, "c1", "alice")
	f.join(ctx, "c2", "bob")

	// When alice opens a private chat with bob
	f.coordinator.StartPrivateChat(ctx, domain.StartPrivateChatCommand{Conn: "c1", OtherID: "c2"})

	// Then both sides receive the same room, each named after the peer
	aliceSide := c1.byName("roomCreated")
	bobSide := c2.byName("roomCreated")
	req.Len(aliceSide, 1)
	req.Len(bobSide, 1)

	aliceRoom := aliceSide[0].(event.RoomCreated)
	bobRoom := bobSide[0].(event.RoomCreated)
	req.Equal(aliceRoom.ID, bobRoom.ID)
	req.Equal("Chat with bob", aliceRoom.Name)
	req.Equal("Chat with alice", bobRoom.Name)

	// And repeating the request lands on the same room
	f.coordinator.StartPrivateChat(ctx, domain.StartPrivateChatCommand{Conn: "c2", OtherID: "c1"})
	again := c1.byName("roomCreated")
	req.Len(again, 2)
	req.Equal(aliceRoom.ID, again[1].(event.RoomCreated).ID)
}

func TestCoordinator_StartPrivateChat_UnknownUser(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	c1 := f.connect("c1")
	f.join(ctx, "c1", "alice")

	// When targeting a connection that never joined
	f.coordinator.StartPrivateChat(ctx, domain.StartPrivateChatCommand{Conn: "c1", OtherID: "ghost"})

	// Then nothing happens
	req.Empty(c1.byName("roomCreated"))
}

func TestCoordinator_PostMessage_EchoesToSender(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	c1 := f.connect("c1")
	c2 := f.connect("c2")
	f.join(ctx, "c1", "alice")
	f.join(ctx, "c2", "bob")
	room := f.store.ResolvePrivate("c1", "c2")

	// When bob sends a message
	f.coordinator.PostMessage(ctx, domain.PostMessageCommand{Conn: "c2", Room: room.ID, Text: "hey"})

	// Then both sides receive exactly one identical copy
	aliceEvents := c1.byName("message")
	bobEvents := c2.byName("message")
	req.Len(aliceEvents, 1)
	req.Len(bobEvents, 1)

	received := bobEvents[0].(event.MessageReceived)
	req.Equal(received, aliceEvents[0].(event.MessageReceived))
	req.Equal("hey", received.Message.Text)
	req.Equal("bob", received.Message.Author)
	req.Equal("c2", received.Message.AuthorID)
	req.Equal(room.ID, received.RoomID)

	// And the log grew by exactly one
	stored, err := f.store.Log(room.ID)
	req.NoError(err)
	req.Len(stored, 1)
	req.Equal(received.Message.ID, stored[0].ID)
}

func TestCoordinator_PostMessage_Censors(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	f.connect("c1")
	c2 := f.connect("c2")
	f.join(ctx, "c1", "alice")
	f.join(ctx, "c2", "bob")
	room := f.store.ResolvePrivate("c1", "c2")

	// When the text contains a dictionary word
	f.coordinator.PostMessage(ctx, domain.PostMessageCommand{Conn: "c1", Room: room.ID, Text: "you badger"})

	// Then the fan-out and the log agree on the masked text
	received := c2.byName("message")[0].(event.MessageReceived)
	req.Equal("you ******", received.Message.Text)

	stored, err := f.store.Log(room.ID)
	req.NoError(err)
	req.Equal("you ******", stored[0].Text)
}

func TestCoordinator_PostMessage_NonParticipant(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	c1 := f.connect("c1")
	f.connect("c2")
	c3 := f.connect("c3")
	f.join(ctx, "c1", "alice")
	f.join(ctx, "c2", "bob")
	f.join(ctx, "c3", "carol")
	room := f.store.ResolvePrivate("c1", "c2")

	// When an outsider posts to the room
	f.coordinator.PostMessage(ctx, domain.PostMessageCommand{Conn: "c3", Room: room.ID, Text: "let me in"})

	// Then zero observable effect : no delivery, no log growth
	req.Empty(c1.byName("message"))
	req.Empty(c3.byName("message"))
	stored, err := f.store.Log(room.ID)
	req.NoError(err)
	req.Empty(stored)
}

func TestCoordinator_PostMessage_UnknownRoom(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	c1 := f.connect("c1")
	f.join(ctx, "c1", "alice")

	f.coordinator.PostMessage(ctx, domain.PostMessageCommand{Conn: "c1", Room: "private_ghost", Text: "anyone?"})

	req.Empty(c1.byName("message"))
}

func TestCoordinator_Typing_ExcludesSender(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	c1 := f.connect("c1")
	c2 := f.connect("c2")
	c3 := f.connect("c3")
	f.join(ctx, "c1", "alice")
	f.join(ctx, "c2", "bob")
	f.join(ctx, "c3", "carol")
	room := f.store.CreateGroup("Team", []string{"c1", "c2", "c3"})

	// When alice starts typing
	f.coordinator.Typing(ctx, domain.TypingCommand{Conn: "c1", Room: room.ID, IsTyping: true})

	// Then the indicator reaches everyone but the sender
	req.Empty(c1.byName("userTyping"))
	req.Len(c2.byName("userTyping"), 1)
	req.Len(c3.byName("userTyping"), 1)

	typing := c2.byName("userTyping")[0].(event.UserTyping)
	req.True(typing.IsTyping)
	req.Equal("alice", typing.Username)
	req.Equal("c1", typing.UserID)
}

func TestCoordinator_CreateRoom_NeverJoinedParticipant(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	c1 := f.connect("c1")
	c2 := f.connect("c2")
	f.join(ctx, "c1", "alice")
	f.join(ctx, "c2", "bob")

	// When the participant list contains an id nobody owns
	f.coordinator.CreateRoom(ctx, domain.CreateRoomCommand{
		Conn:         "c1",
		Name:         "Team",
		Participants: []string{"c1", "c2", "never-connected"},
	})

	// Then the live participants get the room and nothing crashes
	req.Len(c1.byName("roomCreated"), 1)
	req.Len(c2.byName("roomCreated"), 1)

	created := c1.byName("roomCreated")[0].(event.RoomCreated)
	req.True(created.IsGroup)
	req.Equal("Team", created.Name)
	req.Len(created.Participants, 3)
}

func TestCoordinator_UpdateProfile(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	c1 := f.connect("c1")
	c2 := f.connect("c2")
	f.join(ctx, "c1", "alice")

	// When a connection that never joined updates its profile
	f.coordinator.UpdateProfile(ctx, domain.UpdateProfileCommand{Conn: "c2", Username: "ghost"})

	// Then zero observable effect
	req.Empty(c1.byName("userUpdated"))
	req.Empty(c2.byName("userUpdated"))

	// When an identified connection updates its profile
	f.coordinator.UpdateProfile(ctx, domain.UpdateProfileCommand{
		Conn: "c1", Username: "alicia", Description: "hello",
	})

	// Then everyone is told, anonymous connections included
	req.Len(c1.byName("userUpdated"), 1)
	req.Len(c2.byName("userUpdated"), 1)
	updated := c2.byName("userUpdated")[0].(event.UserUpdated)
	req.Equal("alicia", updated.Username)
	req.Equal("hello", updated.Description)
}

func TestCoordinator_Disconnect_StaleMembership(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	c1 := f.connect("c1")
	c2 := f.connect("c2")
	f.join(ctx, "c1", "alice")
	f.join(ctx, "c2", "bob")
	room := f.store.ResolvePrivate("c1", "c2")

	// When bob disconnects
	f.coordinator.Disconnect(ctx, domain.DisconnectCommand{Conn: "c2"})

	// Then the remaining connections are told
	left := c1.byName("userLeft")
	req.Len(left, 1)
	req.Equal("bob", left[0].(event.UserLeft).Username)
	req.Empty(c2.byName("userLeft"))

	// And bob stays listed in the room
	req.True(room.Has("c2"))

	// And delivery to the stale membership does not block live peers
	f.coordinator.PostMessage(ctx, domain.PostMessageCommand{Conn: "c1", Room: room.ID, Text: "still there?"})
	req.Len(c1.byName("message"), 1)
	req.Empty(c2.byName("message"))
}

func TestCoordinator_Disconnect_Anonymous(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	c1 := f.connect("c1")
	f.connect("c2")
	f.join(ctx, "c1", "alice")

	// When an anonymous connection goes away
	f.coordinator.Disconnect(ctx, domain.DisconnectCommand{Conn: "c2"})

	// Then nobody is told
	req.Empty(c1.byName("userLeft"))
}

func TestCoordinator_History(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	c1 := f.connect("c1")
	c2 := f.connect("c2")
	f.join(ctx, "c1", "alice")
	f.join(ctx, "c2", "bob")
	room := f.store.ResolvePrivate("c1", "c2")

	f.coordinator.PostMessage(ctx, domain.PostMessageCommand{Conn: "c1", Room: room.ID, Text: "first"})
	f.coordinator.PostMessage(ctx, domain.PostMessageCommand{Conn: "c2", Room: room.ID, Text: "second"})

	// When alice asks for history
	f.coordinator.History(ctx, domain.HistoryCommand{Conn: "c1", Room: room.ID})

	// Then she alone gets the page, newest first
	req.Empty(c2.byName("history"))
	pages := c1.byName("history")
	req.Len(pages, 1)
	page := pages[0].(event.History)
	req.Len(page.Messages, 2)
	req.Equal("second", page.Messages[0].Text)
	req.Equal("first", page.Messages[1].Text)
}

func TestCoordinator_Search(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	c1 := f.connect("c1")
	c2 := f.connect("c2")
	f.join(ctx, "c1", "alice")
	f.join(ctx, "c2", "bob")
	room := f.store.ResolvePrivate("c1", "c2")
	f.index.hits = []domain.Message{{Text: "the invoice is ready", Author: "bob"}}

	// When alice searches the room
	f.coordinator.Search(ctx, domain.SearchCommand{Conn: "c1", Room: room.ID, Query: "invoice"})

	// Then the hits go to the requester only
	req.Empty(c2.byName("searchResults"))
	results := c1.byName("searchResults")
	req.Len(results, 1)
	hit := results[0].(event.SearchResults)
	req.Equal("invoice", hit.Query)
	req.Len(hit.Messages, 1)
}

func TestCoordinator_RunConsumesDispatchedCommands(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	c1 := f.connect("c1")
	c2 := f.connect("c2")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.coordinator.Run(ctx)
	}()

	// When commands arrive through the queue
	f.coordinator.Dispatch(domain.JoinCommand{Conn: "c1", Username: "alice"})
	f.coordinator.Dispatch(domain.JoinCommand{Conn: "c2", Username: "bob"})

	// Then both joins are processed, in order
	req.Eventually(func() bool {
		return len(c1.byName("userJoined")) == 2 && len(c2.byName("userJoined")) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	req.ErrorIs(<-done, context.Canceled)
}
