/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package repository

import (
	"context"
	"iter"

	"github.com/suparena/deliverystore/datastore"
	storeerrors "github.com/suparena/deliverystore/errors"
	"github.com/suparena/deliverystore/storagemodels"
)

// Stream is a lazy, forward-only sequence of segments. Each call to Next
// fetches one store segment, so callers hold at most one page in memory.
//
// A Stream is single-pass: it cannot be restarted, and it must not be used
// from several goroutines at once.
type Stream[T storagemodels.Entity] struct {
	repo      *Repository[T]
	partition string
	query     datastore.Query
	cursor    datastore.Cursor
	started   bool
	done      bool
}

// Next fetches the next segment. It returns ok == false once the store has
// reported the end of the query. Segments may be empty.
func (s *Stream[T]) Next(ctx context.Context) (page []T, ok bool, err error) {
	if s.done {
		return nil, false, nil
	}
	s.started = true

	seg, err := s.repo.table.QuerySegment(ctx, s.query, s.cursor)
	if err != nil {
		s.done = true
		return nil, false, s.repo.fail("GetStream", s.partition, err)
	}

	entities, err := s.repo.decode(seg.Items)
	if err != nil {
		s.done = true
		return nil, false, s.repo.fail("GetStream", s.partition, err)
	}

	s.cursor = seg.Next
	if seg.Next == nil {
		s.done = true
	}
	return entities, true, nil
}

// Pages adapts the stream to a range-over-func sequence. Ranging over a
// stream that has already been started yields errors.ErrStreamConsumed.
// Breaking out of the loop early is safe.
func (s *Stream[T]) Pages(ctx context.Context) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		if s.started {
			yield(nil, storeerrors.ErrStreamConsumed)
			return
		}
		for {
			page, ok, err := s.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok {
				return
			}
			if !yield(page, nil) {
				return
			}
		}
	}
}
