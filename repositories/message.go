//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chat-relay/domain"
)

type IMessageRepository interface {
	Store(roomID domain.RoomID, message domain.Message) error
	All(roomID domain.RoomID) ([]domain.Message, error)
	Page(roomID domain.RoomID, cursor *string) ([]domain.Message, *string, error)
}

// MessageRepository keeps each room's ordered log in Badger. The server
// opens the database in memory, so the log lives exactly as long as the
// process: there is no persistence across restarts.
type MessageRepository struct {
	db        *badger.DB
	log       *slog.Logger
	pageLimit *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, pageLimit *int) MessageRepository {
	return MessageRepository{db: db, log: log, pageLimit: pageLimit}
}

// storedMessage is the value layout; the room lives in the key only.
type storedMessage struct {
	ID     string    `json:"id"`
	Author string    `json:"author"`
	UserID string    `json:"userId"`
	Text   string    `json:"text"`
	Lang   string    `json:"lang,omitempty"`
	At     time.Time `json:"at"`
}

// Store appends a message under "msg:{room}:{timestamp_padded}:{uuid}".
// The 19-digit zero padding keeps keys lexicographically chronological;
// the uuid disambiguates two messages landing on the same nanosecond.
func (m MessageRepository) Store(roomID domain.RoomID, message domain.Message) error {
	key := fmt.Sprintf("msg:%s:%019d:%s",
		roomID,
		message.CreatedAt.UnixNano(),
		message.ID,
	)
	bytes, err := json.Marshal(toStored(message))
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// All reads a room's full log in chronological order. Forward iteration
// over the padded keys needs no sort step.
func (m MessageRepository) All(roomID domain.RoomID) ([]domain.Message, error) {
	var raw [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", roomID))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(value []byte) error {
				cp := make([]byte, len(value))
				copy(cp, value)
				raw = append(raw, cp)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decodeAll(raw)
}

// Page reads newest-first with cursor resumption. The cursor is the
// key suffix (timestamp + uuid) of the last message of the previous page.
func (m MessageRepository) Page(roomID domain.RoomID, cursor *string) ([]domain.Message, *string, error) {
	var raw [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", roomID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past any possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.pageLimit != nil && len(raw) == *m.pageLimit {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.pageLimit))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			if err := item.Value(func(value []byte) error {
				cp := make([]byte, len(value))
				copy(cp, value)
				raw = append(raw, cp)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	messages, err := decodeAll(raw)
	if err != nil {
		return nil, nil, err
	}
	if len(messages) == 0 {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

func decodeAll(raw [][]byte) ([]domain.Message, error) {
	var messages []domain.Message
	for _, b := range raw {
		var stored storedMessage
		if err := json.Unmarshal(b, &stored); err != nil {
			return nil, err
		}
		message, err := fromStored(stored)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func toStored(message domain.Message) storedMessage {
	return storedMessage{
		ID:     message.ID.String(),
		Author: message.Author,
		UserID: message.AuthorID,
		Text:   message.Text,
		Lang:   message.Lang,
		At:     message.CreatedAt.UTC(),
	}
}

func fromStored(stored storedMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(stored.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:        parsedID,
		Author:    stored.Author,
		AuthorID:  stored.UserID,
		Text:      stored.Text,
		Lang:      stored.Lang,
		CreatedAt: stored.At.UTC(),
	}, nil
}
