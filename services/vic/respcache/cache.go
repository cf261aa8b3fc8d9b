// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package respcache caches validated answers keyed by normalized query.
//
// A cache hit short-circuits the whole answer pipeline (no retrieval, no
// LLM call), so only answers that passed grounding validation are ever
// stored. Entries are keyed by the normalized query and may carry a set of
// known paraphrase variations that alias to the same entry. The core never
// deletes entries; curation is an operator concern.
package respcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	entryPrefix = "cache:entry:"
	aliasPrefix = "cache:alias:"

	// Concurrent hits on one entry conflict on the hit counter; a few
	// transaction retries absorb that without surfacing errors.
	maxTxnRetries = 5
)

// ErrNotFound is returned by Lookup when neither the normalized query nor
// any registered variation matches an entry.
var ErrNotFound = errors.New("respcache: no cached entry")

// Entry is the stored record for one normalized query.
type Entry struct {
	NormalizedQuery string   `json:"normalized_query"`
	ResponseText    string   `json:"response_text"`
	SourceTitles    []string `json:"source_titles"`
	Variations      []string `json:"variations"`
	HitCount        int64    `json:"hit_count"`
	CreatedAt       int64    `json:"created_at"`
	LastHitAt       int64    `json:"last_hit_at"`
}

// Hit is what Lookup returns to the pipeline.
type Hit struct {
	ResponseText string
	SourceTitles []string
	HitCount     int64
}

// NormalizeFunc canonicalizes raw queries into cache keys. The cache and
// the retrieval path must share the same function or keys drift apart.
type NormalizeFunc func(string) string

// Cache is a Badger-backed response cache. Safe for concurrent use.
type Cache struct {
	db        *badger.DB
	normalize NormalizeFunc
	now       func() time.Time
}

// New creates a Cache over an opened Badger instance.
func New(db *badger.DB, normalize NormalizeFunc) *Cache {
	return &Cache{db: db, normalize: normalize, now: time.Now}
}

// Lookup resolves a raw query to a cached answer.
//
// # Description
//
// The raw query is normalized, then matched against entry keys and
// variation aliases. On a hit the entry's HitCount and LastHitAt are
// updated in the same transaction that reads it, so concurrent hits
// are each counted exactly once.
//
// # Outputs
//
//   - *Hit: the cached answer, with the post-increment hit count.
//   - error: ErrNotFound on a miss; storage errors otherwise.
func (c *Cache) Lookup(ctx context.Context, rawQuery string) (*Hit, error) {
	nq := c.normalize(rawQuery)

	var hit *Hit
	err := c.retryTxn(ctx, func(txn *badger.Txn) error {
		entry, key, err := c.loadEntry(txn, nq)
		if err != nil {
			return err
		}
		entry.HitCount++
		entry.LastHitAt = c.now().UnixMilli()
		if err := c.saveEntry(txn, key, entry); err != nil {
			return err
		}
		hit = &Hit{
			ResponseText: entry.ResponseText,
			SourceTitles: entry.SourceTitles,
			HitCount:     entry.HitCount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hit, nil
}

// Store upserts a validated answer for the query.
//
// # Description
//
// If an entry already exists for the normalized query (directly or via a
// variation alias), its text and titles are overwritten and LastHitAt
// refreshed; hit count and variations are preserved. Otherwise a fresh
// entry is created whose variation set contains just the normalized query.
// Concurrent stores settle last-writer-wins; storing identical content
// twice is a no-op in effect.
//
// Callers must only pass answers that passed grounding validation.
func (c *Cache) Store(ctx context.Context, rawQuery, responseText string, sourceTitles []string) error {
	nq := c.normalize(rawQuery)

	return c.retryTxn(ctx, func(txn *badger.Txn) error {
		entry, key, err := c.loadEntry(txn, nq)
		switch {
		case err == nil:
			entry.ResponseText = responseText
			entry.SourceTitles = sourceTitles
			entry.LastHitAt = c.now().UnixMilli()
			return c.saveEntry(txn, key, entry)
		case errors.Is(err, ErrNotFound):
			now := c.now().UnixMilli()
			fresh := &Entry{
				NormalizedQuery: nq,
				ResponseText:    responseText,
				SourceTitles:    sourceTitles,
				Variations:      []string{nq},
				CreatedAt:       now,
				LastHitAt:       now,
			}
			return c.saveEntry(txn, entryPrefix+nq, fresh)
		default:
			return err
		}
	})
}

// AddVariation registers a paraphrase so future lookups of variantRaw hit
// the entry stored under primaryRaw. Returns ErrNotFound when no entry
// exists for the primary query.
func (c *Cache) AddVariation(ctx context.Context, primaryRaw, variantRaw string) error {
	np := c.normalize(primaryRaw)
	nv := c.normalize(variantRaw)
	if np == nv {
		return nil
	}

	return c.retryTxn(ctx, func(txn *badger.Txn) error {
		entry, key, err := c.loadEntry(txn, np)
		if err != nil {
			return err
		}
		found := false
		for _, v := range entry.Variations {
			if v == nv {
				found = true
				break
			}
		}
		if !found {
			entry.Variations = append(entry.Variations, nv)
			if err := c.saveEntry(txn, key, entry); err != nil {
				return err
			}
		}
		return txn.Set([]byte(aliasPrefix+nv), []byte(entry.NormalizedQuery))
	})
}

// retryTxn runs fn in an update transaction, retrying on conflicts.
func (c *Cache) retryTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = c.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("cache transaction conflicted %d times: %w", maxTxnRetries, err)
}

// loadEntry resolves nq to an entry, following one alias hop if needed.
// Returns the entry together with its storage key.
func (c *Cache) loadEntry(txn *badger.Txn, nq string) (*Entry, string, error) {
	key := entryPrefix + nq
	entry, err := c.getEntry(txn, key)
	if err == nil {
		return entry, key, nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, "", err
	}

	item, err := txn.Get([]byte(aliasPrefix + nq))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}

	var primary string
	if err := item.Value(func(val []byte) error {
		primary = string(val)
		return nil
	}); err != nil {
		return nil, "", err
	}

	key = entryPrefix + primary
	entry, err = c.getEntry(txn, key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		// Dangling alias; treat as a miss.
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return entry, key, nil
}

func (c *Cache) getEntry(txn *badger.Txn, key string) (*Entry, error) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entry)
	}); err != nil {
		return nil, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return &entry, nil
}

func (c *Cache) saveEntry(txn *badger.Txn, key string, entry *Entry) error {
	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	return txn.Set([]byte(key), encoded)
}
