package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/transport/ws"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=ws://localhost:8080/ws"`
	Username  string `env:"CHAT_USERNAME"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v", err)
	}
	os.Exit(code)
}

// run connects, joins, then splits into a receive loop and a stdin REPL.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the WebSocket connection.
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerURL, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	log.Info(fmt.Sprintf(">>> Connected to %s (Ctrl+C to quit)", config.ServerURL))

	if config.Username != "" {
		if err := send(conn, "join", map[string]string{"username": config.Username}); err != nil {
			return exitRuntime, err
		}
	}

	// 4. Receive loop in the background; the REPL owns the foreground.
	recvErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				recvErr <- err
				return
			}
			render(data)
		}
	}()

	inputDone := make(chan struct{})
	state := &replState{conn: conn}
	go func() {
		defer close(inputDone)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if err := state.handleLine(scanner.Text()); err != nil {
				color.Red.Println(err)
			}
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Stopping client...")
		return exitOK, nil
	case <-inputDone:
		return exitOK, nil
	case err := <-recvErr:
		if ctx.Err() != nil {
			return exitOK, nil
		}
		return exitRuntime, fmt.Errorf("connection error: %w", err)
	}
}

type replState struct {
	conn        *websocket.Conn
	currentRoom string
}

// handleLine parses one REPL line. Slash commands drive the protocol;
// anything else is a message to the current room.
func (s *replState) handleLine(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if !strings.HasPrefix(line, "/") {
		if s.currentRoom == "" {
			return fmt.Errorf("no room selected, use /use <roomId>")
		}
		return send(s.conn, "message", map[string]string{"roomId": s.currentRoom, "text": line})
	}

	parts := strings.Fields(line)
	switch parts[0] {
	case "/join":
		if len(parts) < 2 {
			return fmt.Errorf("usage: /join <username>")
		}
		return send(s.conn, "join", map[string]string{"username": parts[1]})
	case "/pm":
		if len(parts) < 2 {
			return fmt.Errorf("usage: /pm <userId>")
		}
		return send(s.conn, "startPrivateChat", map[string]string{"otherUserId": parts[1]})
	case "/room":
		if len(parts) < 3 {
			return fmt.Errorf("usage: /room <name> <userId> [userId...]")
		}
		return send(s.conn, "createRoom", map[string]any{"name": parts[1], "participants": parts[2:]})
	case "/use":
		if len(parts) < 2 {
			return fmt.Errorf("usage: /use <roomId>")
		}
		s.currentRoom = parts[1]
		color.Green.Printf("Current room: %s\n", s.currentRoom)
		return nil
	case "/typing":
		if s.currentRoom == "" {
			return fmt.Errorf("no room selected, use /use <roomId>")
		}
		isTyping := len(parts) < 2 || parts[1] != "off"
		return send(s.conn, "typing", map[string]any{"roomId": s.currentRoom, "isTyping": isTyping})
	case "/me":
		if len(parts) < 2 {
			return fmt.Errorf("usage: /me <username> [description...]")
		}
		return send(s.conn, "updateUser", map[string]string{
			"username":    parts[1],
			"description": strings.Join(parts[2:], " "),
		})
	case "/history":
		if s.currentRoom == "" {
			return fmt.Errorf("no room selected, use /use <roomId>")
		}
		return send(s.conn, "history", map[string]any{"roomId": s.currentRoom})
	case "/find":
		if s.currentRoom == "" {
			return fmt.Errorf("no room selected, use /use <roomId>")
		}
		if len(parts) < 2 {
			return fmt.Errorf("usage: /find <terms> [--limit N]")
		}
		return send(s.conn, "search", map[string]string{
			"roomId": s.currentRoom,
			"query":  strings.Join(parts[1:], " "),
		})
	default:
		return fmt.Errorf("unknown command %s", parts[0])
	}
}

func send(conn *websocket.Conn, eventName string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteJSON(ws.Envelope{Event: eventName, Payload: raw})
}

// render pretty-prints one inbound envelope.
func render(data []byte) {
	var envelope ws.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		color.Red.Printf("Unreadable frame: %v\n", err)
		return
	}

	switch envelope.Event {
	case "message":
		var e event.MessageReceived
		if json.Unmarshal(envelope.Payload, &e) == nil {
			printMessage(e.Message)
		}
	case "usersList":
		var users []event.UserInfo
		if json.Unmarshal(envelope.Payload, &users) == nil {
			printUsers(users)
		}
	case "chatRooms":
		var rooms []event.RoomView
		if json.Unmarshal(envelope.Payload, &rooms) == nil {
			for _, room := range rooms {
				printRoom(room)
			}
		}
	case "roomCreated":
		var room event.RoomView
		if json.Unmarshal(envelope.Payload, &room) == nil {
			printRoom(room)
		}
	case "userJoined":
		var e event.UserJoined
		if json.Unmarshal(envelope.Payload, &e) == nil {
			color.Green.Printf("* %s joined (%s)\n", e.Username, e.ID)
		}
	case "userLeft":
		var e event.UserLeft
		if json.Unmarshal(envelope.Payload, &e) == nil {
			color.Yellow.Printf("* %s left\n", e.Username)
		}
	case "userUpdated":
		var e event.UserUpdated
		if json.Unmarshal(envelope.Payload, &e) == nil {
			color.Cyan.Printf("* %s updated their profile: %s\n", e.Username, e.Description)
		}
	case "userTyping":
		var e event.UserTyping
		if json.Unmarshal(envelope.Payload, &e) == nil {
			if e.IsTyping {
				color.Gray.Printf("* %s is typing...\n", e.Username)
			}
		}
	case "history":
		var e event.History
		if json.Unmarshal(envelope.Payload, &e) == nil {
			color.Cyan.Printf("--- history of %s ---\n", e.RoomID)
			for _, message := range e.Messages {
				printMessage(message)
			}
		}
	case "searchResults":
		var e event.SearchResults
		if json.Unmarshal(envelope.Payload, &e) == nil {
			color.Cyan.Printf("--- %d hits for %q ---\n", len(e.Messages), e.Query)
			for _, message := range e.Messages {
				printMessage(message)
			}
		}
	default:
		color.Gray.Printf("<%s> %s\n", envelope.Event, string(envelope.Payload))
	}
}

func printMessage(message domain.Message) {
	fmt.Printf("[%s] %s: %s\n",
		message.CreatedAt.Local().Format(time.TimeOnly),
		color.Bold.Render(message.Author),
		message.Text,
	)
}

func printUsers(users []event.UserInfo) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Username", "Description"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, user := range users {
		table.Append([]string{user.ID, user.Username, user.Description})
	}
	table.Render()
}

func printRoom(room event.RoomView) {
	header := fmt.Sprintf(" Room %s (%s) ", room.Name, room.ID)
	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render(header))
	for _, message := range room.Messages {
		printMessage(message)
	}
}
