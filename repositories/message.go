//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	GetGlobalMessages() ([]DiskMessage, error)
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
}

// DiskMessage is the storage-level representation of a chat message.
type DiskMessage struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Recipient *string   `json:"recipient,omitempty"`
	Scope     string    `json:"scope"`
	Lang      string    `json:"lang,omitempty"`
	At        time.Time `json:"at"`
}

// SearchHit is one full-text search result over the message index.
type SearchHit struct {
	ID      string
	Content string
	Sender  string
	At      time.Time
}

type MessageRepository struct {
	db            *badger.DB
	index         *bluge.Writer
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, index *bluge.Writer, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{db: db, index: index, log: log, limitMessages: limitMessages}
}

// StoreMessage persists a message in BadgerDB and feeds the search index.
// The key is formatted as "msg:{scope}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
//
// The Badger write is the durability point; an indexing failure is logged
// but does not fail the append, since search is a secondary view.
func (m *MessageRepository) StoreMessage(message DiskMessage) error {
	key := fmt.Sprintf("msg:%s:%019d:%s",
		message.Scope,
		message.At.UnixNano(),
		message.ID,
	)
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return err
	}

	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("content", message.Content).StoreValue()).
		AddField(bluge.NewKeywordField("sender", message.Sender).StoreValue()).
		AddField(bluge.NewKeywordField("scope", message.Scope)).
		AddField(bluge.NewKeywordField("at", message.At.UTC().Format(time.RFC3339Nano)).StoreValue().Sortable())
	if err := m.index.Update(doc.ID(), doc); err != nil {
		m.log.Warn("message indexing failed", "message_id", message.ID, "error", err)
	}
	return nil
}

// GetGlobalMessages retrieves recent global messages using a reverse prefix
// scan, then returns them in chronological order. Collection stops once the
// configured limitMessages is reached.
func (m *MessageRepository) GetGlobalMessages() ([]DiskMessage, error) {
	var raw [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:global:")
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible key for this prefix, then walk back.
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(raw) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				raw = append(raw, append([]byte{}, value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reverse scan yields newest first; flip to chronological.
	messages := make([]DiskMessage, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var message DiskMessage
		if err = json.Unmarshal(raw[i], &message); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

// Search runs a full-text match query on message content, newest first.
func (m *MessageRepository) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	reader, err := m.index.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()

	match := bluge.NewMatchQuery(query).SetField("content")
	request := bluge.NewTopNSearch(limit, match).SortBy([]string{"-at"})

	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var hits []SearchHit
	next, err := iterator.Next()
	for err == nil && next != nil {
		var hit SearchHit
		visitErr := next.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID = string(value)
			case "content":
				hit.Content = string(value)
			case "sender":
				hit.Sender = string(value)
			case "at":
				if at, parseErr := time.Parse(time.RFC3339Nano, string(value)); parseErr == nil {
					hit.At = at
				}
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		hits = append(hits, hit)
		next, err = iterator.Next()
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}
