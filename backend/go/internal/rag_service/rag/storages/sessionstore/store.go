// Package sessionstore maps opaque session ids to ingested documents.
package sessionstore

import (
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/ragerr"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"context"
	"fmt"
	"time"

	"DocQA/backend/go/internal/database/kafka"
	"DocQA/backend/go/pkg/logger"
	"DocQA/backend/go/pkg/util"

	"github.com/google/uuid"
)

// publishTimeout bounds how long a lifecycle event may take to publish.
const publishTimeout = 5 * time.Second

// Session is one published document and its similarity index.
type Session struct {
	Document *schema.Document
	Index    interfaces.VectorStore
}

// Options bounds the store. Zero values mean unbounded and never expiring.
type Options struct {
	Capacity  int
	MaxChunks int
	TTL       time.Duration
}

// Store is safe for concurrent use. It holds no lock while a document is being built;
// only Create, Get and Delete touch the shared map.
type Store struct {
	cache     *util.LRUCache[string, *Session]
	maxChunks int
	events    kafka.Publisher
	log       *logger.Logger
	newID     func() string
}

// New creates a Store. events may be nil.
func New(opts Options, events kafka.Publisher, log *logger.Logger) *Store {
	if events == nil {
		events = kafka.NoopPublisher{}
	}
	s := &Store{
		maxChunks: opts.MaxChunks,
		events:    events,
		log:       log,
		newID:     func() string { return uuid.NewString() },
	}
	s.cache = util.NewWithConfig(util.CacheConfig[string, *Session]{
		Capacity:  opts.Capacity,
		MaxWeight: opts.MaxChunks,
		TTL:       opts.TTL,
		OnEvict:   s.onEvict,
	})
	return s
}

// Create publishes doc under a fresh id and returns it. doc.ID is set to that id.
func (s *Store) Create(ctx context.Context, doc *schema.Document, index interfaces.VectorStore) (string, error) {
	if doc == nil || index == nil {
		return "", ragerr.New(ragerr.InvalidArgument, "a session needs a document and an index")
	}
	weight := max(len(doc.Chunks), 1)
	if s.maxChunks > 0 && weight > s.maxChunks {
		return "", ragerr.New(ragerr.InvalidArgument,
			"the document has %d chunks, more than this server keeps in memory (%d)", weight, s.maxChunks).
			With("chunk_count", weight)
	}

	sess := &Session{Document: doc, Index: index}
	var (
		id   string
		gone []util.Eviction[string, *Session]
	)
	for {
		id = s.newID()
		doc.ID = id
		ok, evicted := s.cache.TryInsert(id, sess, weight)
		gone = append(gone, evicted...)
		if ok {
			break
		}
		s.log.Warn(fmt.Sprintf("Session id collision on %s, drawing a new one", id))
	}

	s.log.WithFields(map[string]interface{}{
		"session_id": id,
		"file_name":  doc.FileName,
		"chunks":     len(doc.Chunks),
	}).Info("Session created")
	s.publish(ctx, kafka.SessionEvent{
		Type:       kafka.SessionCreated,
		SessionID:  id,
		FileName:   doc.FileName,
		Format:     doc.Format,
		ChunkCount: len(doc.Chunks),
		At:         time.Now().UTC(),
	})
	// 淘汰事件排在 created 之后发布
	for _, ev := range gone {
		s.onEvict(ev.Key, ev.Value, ev.Reason)
	}
	return id, nil
}

// Get returns the session for id, or a SessionNotFound error.
func (s *Store) Get(id string) (*Session, error) {
	sess, ok := s.cache.Get(id)
	if !ok {
		return nil, ragerr.New(ragerr.SessionNotFound,
			"session %q was not found; it may have expired. Upload the document again", id).
			With("session_id", id)
	}
	return sess, nil
}

// Delete removes id and reports whether it existed. Deleting an unknown id is not an error.
func (s *Store) Delete(ctx context.Context, id string) bool {
	sess, ok := s.cache.Delete(id)
	if !ok {
		return false
	}
	s.log.WithField("session_id", id).Info("Session deleted")
	s.publish(ctx, kafka.SessionEvent{
		Type:      kafka.SessionDeleted,
		SessionID: id,
		FileName:  sess.Document.FileName,
		Format:    sess.Document.Format,
		At:        time.Now().UTC(),
	})
	return true
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	return s.cache.Len()
}

func (s *Store) onEvict(id string, sess *Session, reason util.EvictReason) {
	s.log.WithFields(map[string]interface{}{
		"session_id": id,
		"reason":     string(reason),
	}).Info("Session evicted")
	s.publish(context.Background(), kafka.SessionEvent{
		Type:      kafka.SessionEvicted,
		SessionID: id,
		FileName:  sess.Document.FileName,
		Format:    sess.Document.Format,
		Reason:    string(reason),
		At:        time.Now().UTC(),
	})
}

// publish never fails the caller; errors are only logged.
func (s *Store) publish(ctx context.Context, ev kafka.SessionEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.WithErr(err).WithField("session_id", ev.SessionID).Warn("Failed to publish session event")
	}
}
