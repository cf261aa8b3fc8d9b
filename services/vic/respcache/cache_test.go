// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package respcache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lostlondon/vic/services/vic/normalize"
	vicbadger "github.com/lostlondon/vic/services/vic/storage/badger"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	db, err := vicbadger.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	norm := normalize.MustNew(normalize.DefaultCorrections)
	return New(db, norm.Normalize)
}

func TestLookup_MissReturnsErrNotFound(t *testing.T) {
	c := newTestCache(t)

	hit, err := c.Lookup(context.Background(), "who built the royal aquarium?")

	assert.Nil(t, hit)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStoreThenLookup_ReturnsStoredAnswer(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	err := c.Store(ctx, "who built the Royal Aquarium?",
		"The Royal Aquarium was designed by Alfred Bedborough.",
		[]string{"The Royal Aquarium"})
	require.NoError(t, err)

	hit, err := c.Lookup(ctx, "Who built the Royal Aquarium?")
	require.NoError(t, err)
	assert.Equal(t, "The Royal Aquarium was designed by Alfred Bedborough.", hit.ResponseText)
	assert.Equal(t, []string{"The Royal Aquarium"}, hit.SourceTitles)
	assert.Equal(t, int64(1), hit.HitCount)
}

func TestLookup_NormalizesBeforeMatching(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "where was tyburn?", "At Marble Arch.", nil))

	// Phonetic miss and odd casing both resolve to the same key.
	hit, err := c.Lookup(ctx, "  Where was  Tie Burn? ")
	require.NoError(t, err)
	assert.Equal(t, "At Marble Arch.", hit.ResponseText)
}

func TestLookup_IncrementsHitCount(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "what is thorney island?", "An island in the Thames.", nil))

	for want := int64(1); want <= 3; want++ {
		hit, err := c.Lookup(ctx, "what is thorney island?")
		require.NoError(t, err)
		assert.Equal(t, want, hit.HitCount)
	}
}

func TestStore_UpsertPreservesHitCount(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "who was sancho?", "First answer.", nil))
	_, err := c.Lookup(ctx, "who was sancho?")
	require.NoError(t, err)

	require.NoError(t, c.Store(ctx, "who was sancho?", "Better answer.", []string{"Ignatius Sancho"}))

	hit, err := c.Lookup(ctx, "who was sancho?")
	require.NoError(t, err)
	assert.Equal(t, "Better answer.", hit.ResponseText)
	assert.Equal(t, []string{"Ignatius Sancho"}, hit.SourceTitles)
	assert.Equal(t, int64(2), hit.HitCount)
}

func TestAddVariation_AliasResolvesToPrimary(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "who designed the crystal palace?", "Joseph Paxton designed it.", nil))
	require.NoError(t, c.AddVariation(ctx,
		"who designed the crystal palace?",
		"who was the crystal palace architect?"))

	hit, err := c.Lookup(ctx, "Who was the Crystal Palace architect?")
	require.NoError(t, err)
	assert.Equal(t, "Joseph Paxton designed it.", hit.ResponseText)

	// Hits via the alias count against the primary entry.
	hit, err = c.Lookup(ctx, "who designed the crystal palace?")
	require.NoError(t, err)
	assert.Equal(t, int64(2), hit.HitCount)
}

func TestAddVariation_UnknownPrimary(t *testing.T) {
	c := newTestCache(t)

	err := c.AddVariation(context.Background(), "no such question?", "variant?")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAddVariation_SameNormalizedFormIsNoop(t *testing.T) {
	c := newTestCache(t)

	err := c.AddVariation(context.Background(), "What is Thorney Island?", "what is  thorney island?")
	assert.NoError(t, err)
}

func TestStore_AliasUpdatesPrimaryEntry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "who designed the crystal palace?", "Old answer.", nil))
	require.NoError(t, c.AddVariation(ctx,
		"who designed the crystal palace?",
		"crystal palace designer?"))

	// Storing via the variation rewrites the primary entry, not a new one.
	require.NoError(t, c.Store(ctx, "crystal palace designer?", "New answer.", nil))

	hit, err := c.Lookup(ctx, "who designed the crystal palace?")
	require.NoError(t, err)
	assert.Equal(t, "New answer.", hit.ResponseText)
}

func TestLookup_CancelledContext(t *testing.T) {
	c := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Lookup(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}
