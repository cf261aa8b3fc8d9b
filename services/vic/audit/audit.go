// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package audit writes the append-only trail the answer pipeline leaves
// behind: one ValidationLog per answered turn and one Amendment per user
// correction.
//
// The core only ever writes these records; offline evaluation and editorial
// review read them. Every write is best-effort: a failed audit write is
// logged by the caller and never fails a user turn.
package audit

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"github.com/lostlondon/vic/services/vic/datatypes"
)

// Sink receives audit records. Implementations must be safe for concurrent
// use; the background queue writes from multiple goroutines.
type Sink interface {
	WriteValidationLog(ctx context.Context, rec datatypes.ValidationLogProperties) error
	WriteAmendment(ctx context.Context, rec datatypes.AmendmentProperties) error
}

// NewNoopSink returns a Sink that drops every record. Used in lightweight
// mode when no Weaviate instance is configured.
func NewNoopSink() Sink {
	return &noopSink{}
}

type noopSink struct{}

func (s *noopSink) WriteValidationLog(ctx context.Context, rec datatypes.ValidationLogProperties) error {
	return nil
}

func (s *noopSink) WriteAmendment(ctx context.Context, rec datatypes.AmendmentProperties) error {
	return nil
}

// WeaviateSink persists audit records as ValidationLog and Amendment objects.
type WeaviateSink struct {
	client *weaviate.Client
}

// NewWeaviateSink creates a sink backed by the given client. The schema must
// already exist (see datatypes.EnsureSchema).
func NewWeaviateSink(client *weaviate.Client) *WeaviateSink {
	return &WeaviateSink{client: client}
}

func (s *WeaviateSink) WriteValidationLog(ctx context.Context, rec datatypes.ValidationLogProperties) error {
	_, err := s.client.Data().Creator().
		WithClassName("ValidationLog").
		WithProperties(rec.ToMap()).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to write validation log: %w", err)
	}
	return nil
}

func (s *WeaviateSink) WriteAmendment(ctx context.Context, rec datatypes.AmendmentProperties) error {
	_, err := s.client.Data().Creator().
		WithClassName("Amendment").
		WithProperties(rec.ToMap()).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to write amendment: %w", err)
	}
	return nil
}
