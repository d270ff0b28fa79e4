package domain

// Command is the closed set of inbound intents a connection can issue.
// Payloads are validated at the transport boundary before dispatch;
// the coordinator only ever sees well-formed commands.
type Command interface {
	ConnID() string
}

type JoinCommand struct {
	Conn     string
	Username string `validate:"required,min=3"`
}

func (c JoinCommand) ConnID() string { return c.Conn }

type StartPrivateChatCommand struct {
	Conn    string
	OtherID string `validate:"required"`
}

func (c StartPrivateChatCommand) ConnID() string { return c.Conn }

type CreateRoomCommand struct {
	Conn         string
	Name         string   `validate:"required"`
	Participants []string `validate:"required,min=1,dive,required"`
}

func (c CreateRoomCommand) ConnID() string { return c.Conn }

type PostMessageCommand struct {
	Conn string
	Room RoomID `validate:"required"`
	Text string `validate:"required"`
}

func (c PostMessageCommand) ConnID() string { return c.Conn }

type TypingCommand struct {
	Conn     string
	Room     RoomID `validate:"required"`
	IsTyping bool
}

func (c TypingCommand) ConnID() string { return c.Conn }

type UpdateProfileCommand struct {
	Conn        string
	Username    string `validate:"required,min=3"`
	Description string
}

func (c UpdateProfileCommand) ConnID() string { return c.Conn }

// HistoryCommand requests a page of a room's log, newest first.
// A nil cursor starts from the most recent message.
type HistoryCommand struct {
	Conn   string
	Room   RoomID `validate:"required"`
	Cursor *string
}

func (c HistoryCommand) ConnID() string { return c.Conn }

// SearchCommand runs a full-text query over one room's log.
type SearchCommand struct {
	Conn  string
	Room  RoomID `validate:"required"`
	Query string `validate:"required"`
}

func (c SearchCommand) ConnID() string { return c.Conn }

// DisconnectCommand is synthesized by the transport, never parsed from a payload.
type DisconnectCommand struct {
	Conn string
}

func (c DisconnectCommand) ConnID() string { return c.Conn }
