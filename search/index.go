package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/blugelabs/bluge"
	segment "github.com/blugelabs/bluge_segment_api"
	"github.com/google/uuid"

	"chat-relay/domain"
)

type IIndex interface {
	Add(roomID domain.RoomID, message domain.Message) error
	Search(ctx context.Context, roomID domain.RoomID, query Query) ([]domain.Message, error)
}

// Index is a full-text view over the relayed messages. Like the message
// log it is process-lifetime only; the server opens it in memory.
type Index struct {
	mu     sync.Mutex
	writer *bluge.Writer
	log    *slog.Logger
}

func NewIndex(writer *bluge.Writer, log *slog.Logger) *Index {
	return &Index{writer: writer, log: log}
}

// Add indexes one message. Every field needed to rebuild the message for
// a result list is stored alongside the index.
func (i *Index) Add(roomID domain.RoomID, message domain.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("text", message.Text).StoreValue()).
		AddField(bluge.NewKeywordField("room", string(roomID))).
		AddField(bluge.NewKeywordField("author", message.Author).StoreValue()).
		AddField(bluge.NewKeywordField("authorId", message.AuthorID).StoreValue()).
		AddField(bluge.NewKeywordField("lang", message.Lang).StoreValue()).
		AddField(bluge.NewKeywordField("at", message.CreatedAt.UTC().Format(time.RFC3339Nano)).StoreValue())

	i.mu.Lock()
	defer i.mu.Unlock()
	return i.writer.Update(doc.ID(), doc)
}

// Search runs the parsed query against one room's messages, best match
// first. Hits from other rooms never leak into the result.
func (i *Index) Search(ctx context.Context, roomID domain.RoomID, query Query) ([]domain.Message, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Debug("Failed to close index reader", "error", err)
		}
	}()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query.Terms).SetField("text")).
		AddMust(bluge.NewTermQuery(string(roomID)).SetField("room"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(query.Limit, q))
	if err != nil {
		return nil, err
	}

	var hits []domain.Message
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		message, err := toMessage(match.VisitStoredFields)
		if err != nil {
			i.log.Debug(fmt.Sprintf("Skipping unreadable hit: %v", err))
			continue
		}
		hits = append(hits, message)
	}
	return hits, nil
}

func toMessage(visit func(segment.StoredFieldVisitor) error) (domain.Message, error) {
	var message domain.Message
	var visitErr error
	err := visit(func(field string, value []byte) bool {
		switch field {
		case "_id":
			id, err := uuid.Parse(string(value))
			if err != nil {
				visitErr = err
				return false
			}
			message.ID = id
		case "text":
			message.Text = string(value)
		case "author":
			message.Author = string(value)
		case "authorId":
			message.AuthorID = string(value)
		case "lang":
			message.Lang = string(value)
		case "at":
			at, err := time.Parse(time.RFC3339Nano, string(value))
			if err != nil {
				visitErr = err
				return false
			}
			message.CreatedAt = at
		}
		return true
	})
	if err != nil {
		return domain.Message{}, err
	}
	if visitErr != nil {
		return domain.Message{}, visitErr
	}
	return message, nil
}
