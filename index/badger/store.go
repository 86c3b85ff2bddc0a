// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/poiesic/docproc/core"
	"github.com/poiesic/docproc/index"
)

const defaultSearchLimit = 10

// Store is an embedded index backed by BadgerDB.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

var (
	_ index.Indexer  = (*Store)(nil)
	_ index.Searcher = (*Store)(nil)
)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used by the store and by BadgerDB.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens a store at dir, creating the directory if needed.
func Open(dir string, opts ...Option) (*Store, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		info, err = os.Stat(dir)
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return open(badger.DefaultOptions(dir), opts)
}

// OpenInMemory opens a store that keeps everything in memory.
func OpenInMemory(opts ...Option) (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), opts)
}

func open(bopts badger.Options, opts []Option) (*Store, error) {
	s := &Store{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "index")

	bopts.Logger = &badgerLoggerAdapter{logger: s.logger}
	bopts.Compression = options.None

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	s.db = db
	return s, nil
}

// Close closes the BadgerDB database.
func (s *Store) Close() error {
	return s.db.Close()
}

// IsClosed returns true if the database is closed.
func (s *Store) IsClosed() bool {
	return s.db.IsClosed()
}

// withTx executes fn within a BadgerDB transaction. Write transactions are
// committed when fn succeeds; the transaction is discarded otherwise.
func (s *Store) withTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := s.db.NewTransaction(isWrite)
	defer tx.Discard()
	if err := fn(tx); err != nil {
		return err
	}
	if isWrite {
		return tx.Commit()
	}
	return nil
}

// IndexDocument stores doc and replaces any chunks previously stored for it.
func (s *Store) IndexDocument(ctx context.Context, doc index.DocumentRecord, chunks []index.ChunkRecord) error {
	if doc.ID == "" {
		return ErrInvalidDocumentID
	}
	err := s.withTx(func(tx *badger.Txn) error {
		if err := deleteChunks(ctx, tx, doc.ID); err != nil {
			return err
		}
		if err := tx.Set(makeDocumentKey(doc.ID), MarshalDocument(&doc)); err != nil {
			return err
		}
		for i := range chunks {
			c := &chunks[i]
			if c.DocumentID == "" {
				c.DocumentID = doc.ID
			}
			if c.DocumentID != doc.ID {
				return fmt.Errorf("chunk %s belongs to %q, not %q", c.ID, c.DocumentID, doc.ID)
			}
			if err := tx.Set(makeChunkKey(doc.ID, c.ChunkIndex), MarshalChunk(c)); err != nil {
				return err
			}
		}
		return nil
	}, true)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", doc.ID, err)
	}
	s.logger.Debug("indexed document", "document_id", doc.ID, "chunks", len(chunks))
	return nil
}

// DeleteDocument removes a document and its chunks.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	return s.withTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", index.ErrNotFound, id)
			}
			return err
		}
		if err := deleteChunks(ctx, tx, id); err != nil {
			return err
		}
		return tx.Delete(key)
	}, true)
}

func deleteChunks(ctx context.Context, tx *badger.Txn, documentID string) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeChunkPrefix(documentID)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			iter.Close()
			return err
		}
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	iter.Close()

	for _, k := range keys {
		if err := tx.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// GetDocument returns the document record with id.
func (s *Store) GetDocument(ctx context.Context, id string) (*index.DocumentRecord, error) {
	var doc *index.DocumentRecord
	err := s.withTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDocumentKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", index.ErrNotFound, id)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			doc, err = UnmarshalDocument(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Documents returns every document record ordered by ID.
func (s *Store) Documents(ctx context.Context) ([]index.DocumentRecord, error) {
	var docs []index.DocumentRecord
	err := s.scan(ctx, []byte(documentPrefix), func(val []byte) error {
		doc, err := UnmarshalDocument(val)
		if err != nil {
			return err
		}
		docs = append(docs, *doc)
		return nil
	})
	return docs, err
}

// Chunks returns the chunks of a document in chunk order.
func (s *Store) Chunks(ctx context.Context, documentID string) ([]index.ChunkRecord, error) {
	var chunks []index.ChunkRecord
	err := s.scan(ctx, makeChunkPrefix(documentID), func(val []byte) error {
		c, err := UnmarshalChunk(val)
		if err != nil {
			return err
		}
		chunks = append(chunks, *c)
		return nil
	})
	return chunks, err
}

// Search scores every chunk against query and returns the best hits.
func (s *Store) Search(ctx context.Context, query string, opts index.SearchOptions) ([]index.Hit, error) {
	terms := core.Terms(query)
	if len(terms) == 0 {
		return nil, index.ErrEmptyQuery
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	prefix := []byte(chunkPrefix)
	if opts.DocumentID != "" {
		prefix = makeChunkPrefix(opts.DocumentID)
	}

	var hits []index.Hit
	err := s.scan(ctx, prefix, func(val []byte) error {
		c, err := UnmarshalChunk(val)
		if err != nil {
			return err
		}
		if score := index.Score(c.Text, terms, opts.MatchAll); score > 0 {
			hits = append(hits, index.Hit{Chunk: *c, Score: score})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(hits, func(a, b index.Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Store) scan(ctx context.Context, prefix []byte, fn func(val []byte) error) error {
	return s.withTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := iter.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	}, false)
}
