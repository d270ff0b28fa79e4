// Package runtime wires the relay together: connection registry, room
// store, the event coordinator, and fan-out delivery. It orchestrates the
// system without containing presentation or transport logic.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/moderation"
	"chat-relay/search"
)

// Ensure *Coordinator implements the contract.Worker interface at compile
// time, so it runs under the supervisor like any other worker.
var _ contract.Worker = (*Coordinator)(nil)

// Coordinator is the state machine of the relay. All inbound commands are
// funneled through a single channel and handled one at a time, which keeps
// the read-then-write sequences of each handler atomic and preserves the
// per-connection ordering the transport guarantees.
//
// Error policy is silent drop: an event referencing an unknown room or
// user, or sent by a non-participant, is logged at debug level and
// discarded. Nothing a single connection does may affect the others.
type Coordinator struct {
	log       *slog.Logger
	registry  *Registry
	store     *RoomStore
	delivery  contract.IDelivery
	moderator *moderation.Moderator
	index     search.IIndex
	commands  chan domain.Command
}

func NewCoordinator(log *slog.Logger, registry *Registry, store *RoomStore,
	delivery contract.IDelivery, moderator *moderation.Moderator,
	index search.IIndex, bufferSize int) *Coordinator {
	return &Coordinator{
		log:       log,
		registry:  registry,
		store:     store,
		delivery:  delivery,
		moderator: moderator,
		index:     index,
		commands:  make(chan domain.Command, bufferSize),
	}
}

// Dispatch queues a command for handling. The channel is bounded; when it
// is full the command is dropped with a warning rather than blocking the
// transport's read loop.
func (c *Coordinator) Dispatch(cmd domain.Command) {
	select {
	case c.commands <- cmd:
	default:
		c.log.Warn(fmt.Sprintf("Command channel full, dropping %T from %s", cmd, cmd.ConnID()))
	}
}

// Commands exposes the queue for depth sampling by the telemetry worker.
func (c *Coordinator) Commands() chan domain.Command {
	return c.commands
}

func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.log.Debug("Stopping coordinator")
			return ctx.Err()
		case cmd, ok := <-c.commands:
			if !ok {
				c.log.Debug("Command channel is closed")
				return nil
			}
			c.handle(ctx, cmd)
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, cmd domain.Command) {
	switch cm := cmd.(type) {
	case domain.JoinCommand:
		c.Join(ctx, cm)
	case domain.StartPrivateChatCommand:
		c.StartPrivateChat(ctx, cm)
	case domain.CreateRoomCommand:
		c.CreateRoom(ctx, cm)
	case domain.PostMessageCommand:
		c.PostMessage(ctx, cm)
	case domain.TypingCommand:
		c.Typing(ctx, cm)
	case domain.UpdateProfileCommand:
		c.UpdateProfile(ctx, cm)
	case domain.HistoryCommand:
		c.History(ctx, cm)
	case domain.SearchCommand:
		c.Search(ctx, cm)
	case domain.DisconnectCommand:
		c.Disconnect(ctx, cm)
	default:
		c.log.Warn(fmt.Sprintf("Unhandled command type %T", cmd))
	}
}

// Join moves a connection from Anonymous to Identified. Everyone learns
// about the arrival, the joiner alone receives the current user list and
// the rooms it already belongs to (relevant when a transport hands out a
// previously seen id, otherwise empty).
func (c *Coordinator) Join(_ context.Context, cmd domain.JoinCommand) {
	c.registry.Register(cmd.Conn, cmd.Username)

	c.delivery.Broadcast(event.UserJoined{ID: cmd.Conn, Username: cmd.Username})

	users := lo.Map(c.registry.List(), func(id domain.Identity, _ int) event.UserInfo {
		return event.UserInfo{ID: id.ID, Username: id.Profile.Username, Description: id.Profile.Description}
	})
	c.delivery.SendTo(cmd.Conn, event.UsersList(users))

	views := lo.Map(c.store.RoomsFor(cmd.Conn), func(room *domain.Room, _ int) event.RoomView {
		return c.view(room)
	})
	c.delivery.SendTo(cmd.Conn, event.ChatRooms(views))

	c.log.Info(fmt.Sprintf("%s joined the chat", cmd.Username), "conn_id", cmd.Conn)
}

// StartPrivateChat resolves (or creates) the deterministic two-party room
// and announces it to both sides, each seeing the other's current username
// as the room name. The delivered view carries the full existing log so
// either side can restore history already held server-side.
func (c *Coordinator) StartPrivateChat(_ context.Context, cmd domain.StartPrivateChatCommand) {
	if _, ok := c.registry.Get(cmd.OtherID); !ok {
		c.log.Debug("Dropping startPrivateChat to unknown user", "other_id", cmd.OtherID)
		return
	}
	if _, ok := c.registry.Get(cmd.Conn); !ok {
		c.log.Debug("Dropping startPrivateChat from anonymous connection", "conn_id", cmd.Conn)
		return
	}

	room := c.store.ResolvePrivate(cmd.Conn, cmd.OtherID)
	view := c.view(room)

	for _, participant := range room.Participants {
		peerID := cmd.OtherID
		if participant != cmd.Conn {
			peerID = cmd.Conn
		}
		peer, _ := c.registry.Get(peerID)

		personalized := view
		personalized.Name = "Chat with " + peer.Username
		c.delivery.SendTo(participant, event.RoomCreated(personalized))
	}
}

// CreateRoom stores a group room unconditionally; listed ids are not
// checked against the registry, delivery to a dead id is a transport
// no-op.
func (c *Coordinator) CreateRoom(_ context.Context, cmd domain.CreateRoomCommand) {
	room := c.store.CreateGroup(cmd.Name, cmd.Participants)
	c.delivery.SendToRoom(room, event.RoomCreated(c.view(room)))
}

// PostMessage appends to the room log and fans the result out to every
// participant, the sender included: everyone renders the authoritative
// copy, not an optimistic local echo. The text is moderated and language
// tagged before the snapshot, so the log and the broadcast agree.
func (c *Coordinator) PostMessage(_ context.Context, cmd domain.PostMessageCommand) {
	room, profile, ok := c.senderInRoom(cmd.Room, cmd.Conn, "message")
	if !ok {
		return
	}

	text, censored := c.moderator.Censor(cmd.Text)
	if len(censored) > 0 {
		c.log.Debug(fmt.Sprintf("Censored %d words", len(censored)), "room_id", room.ID, "conn_id", cmd.Conn)
	}

	message := domain.Message{
		ID:        uuid.New(),
		AuthorID:  cmd.Conn,
		Author:    profile.Username,
		Text:      text,
		Lang:      whatlanggo.Detect(text).Lang.Iso6391(),
		CreatedAt: time.Now().UTC(),
	}

	if err := c.store.Append(room.ID, message); err != nil {
		c.log.Warn("Failed to append message", "room_id", room.ID, "error", err)
		return
	}

	c.delivery.SendToRoom(room, event.MessageReceived{RoomID: room.ID, Message: message})
}

// Typing relays the indicator to every other participant. Nothing is
// stored; a sender that never signals "stopped" leaves receivers with a
// stale indicator, and clearing it is the client's job.
func (c *Coordinator) Typing(_ context.Context, cmd domain.TypingCommand) {
	room, profile, ok := c.senderInRoom(cmd.Room, cmd.Conn, "typing")
	if !ok {
		return
	}
	c.delivery.SendToRoomExcept(room, cmd.Conn, event.UserTyping{
		UserID:   cmd.Conn,
		Username: profile.Username,
		IsTyping: cmd.IsTyping,
		RoomID:   room.ID,
	})
}

// UpdateProfile replaces the profile and tells everyone. A connection
// that never joined has no profile to update; zero observable effect.
func (c *Coordinator) UpdateProfile(_ context.Context, cmd domain.UpdateProfileCommand) {
	if !c.registry.Update(cmd.Conn, cmd.Username, cmd.Description) {
		c.log.Debug("Dropping updateUser from unregistered connection", "conn_id", cmd.Conn)
		return
	}
	c.delivery.Broadcast(event.UserUpdated{
		ID:          cmd.Conn,
		Username:    cmd.Username,
		Description: cmd.Description,
	})
}

// History answers with one newest-first page of the room log.
func (c *Coordinator) History(_ context.Context, cmd domain.HistoryCommand) {
	room, _, ok := c.senderInRoom(cmd.Room, cmd.Conn, "history")
	if !ok {
		return
	}
	messages, cursor, err := c.store.LogPage(room.ID, cmd.Cursor)
	if err != nil {
		c.log.Warn("Failed to page message log", "room_id", room.ID, "error", err)
		return
	}
	c.delivery.SendTo(cmd.Conn, event.History{RoomID: room.ID, Messages: messages, Cursor: cursor})
}

// Search runs a full-text query over the room's log, requester only.
func (c *Coordinator) Search(ctx context.Context, cmd domain.SearchCommand) {
	room, _, ok := c.senderInRoom(cmd.Room, cmd.Conn, "search")
	if !ok {
		return
	}
	query := search.ParseQuery(cmd.Query)
	if query.Terms == "" {
		c.log.Debug("Dropping search without terms", "conn_id", cmd.Conn)
		return
	}
	hits, err := c.index.Search(ctx, room.ID, query)
	if err != nil {
		c.log.Warn("Search failed", "room_id", room.ID, "error", err)
		return
	}
	c.delivery.SendTo(cmd.Conn, event.SearchResults{RoomID: room.ID, Query: cmd.Query, Messages: hits})
}

// Disconnect removes the session first, then tells the remaining
// connections. Room membership is deliberately left untouched: delivery
// to the departed id is a no-op once its sink is gone.
func (c *Coordinator) Disconnect(_ context.Context, cmd domain.DisconnectCommand) {
	profile, identified := c.registry.Remove(cmd.Conn)
	if !identified {
		return
	}
	c.log.Info(fmt.Sprintf("%s disconnected", profile.Username), "conn_id", cmd.Conn)
	c.delivery.Broadcast(event.UserLeft{ID: cmd.Conn, Username: profile.Username})
}

// senderInRoom applies the shared gate: the room must exist, the sender
// must be a participant and have a profile. Failures are silent drops.
func (c *Coordinator) senderInRoom(roomID domain.RoomID, connID, kind string) (*domain.Room, domain.Profile, bool) {
	room, ok := c.store.Get(roomID)
	if !ok {
		c.log.Debug(fmt.Sprintf("Dropping %s to unknown room", kind), "room_id", roomID, "conn_id", connID)
		return nil, domain.Profile{}, false
	}
	if !room.Has(connID) {
		c.log.Debug(fmt.Sprintf("Dropping %s from non-participant", kind), "room_id", roomID, "conn_id", connID)
		return nil, domain.Profile{}, false
	}
	profile, ok := c.registry.Get(connID)
	if !ok {
		c.log.Debug(fmt.Sprintf("Dropping %s from anonymous connection", kind), "room_id", roomID, "conn_id", connID)
		return nil, domain.Profile{}, false
	}
	return room, profile, true
}

// view assembles the client-facing room, full log included. A log read
// failure degrades to an empty history rather than blocking the event.
func (c *Coordinator) view(room *domain.Room) event.RoomView {
	messages, err := c.store.Log(room.ID)
	if err != nil {
		c.log.Warn("Failed to read message log", "room_id", room.ID, "error", err)
		messages = nil
	}
	return event.RoomView{
		ID:           room.ID,
		Name:         room.Name,
		Participants: room.Participants,
		IsGroup:      room.IsGroup,
		Messages:     messages,
	}
}
