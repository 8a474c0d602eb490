package aitl

import (
	"context"
	"iter"

	"github.com/rs/zerolog"
)

// Walker turns a list operation into a lazy sequence of records, following
// nextLink cursors until the service reports no further page.
type Walker[T any] struct {
	transport *Transport
	builder   *Builder
	decode    func(op string, status int, data []byte) (T, error)
	maxPages  int
	logger    zerolog.Logger
}

func newWalker[T any](c *Client, decode func(op string, status int, data []byte) (T, error)) *Walker[T] {
	return &Walker[T]{
		transport: c.transport,
		builder:   c.builder,
		decode:    decode,
		maxPages:  c.maxPages,
		logger:    c.logger,
	}
}

// Paginate returns a sequence over every record of op in server order. A page is
// fetched only when the consumer has taken every record of the previous one.
// Each iteration re-issues the first request. The first error ends the sequence.
func (w *Walker[T]) Paginate(ctx context.Context, op Operation) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		d, err := w.builder.Build(op)
		if err != nil {
			yield(zero, err)
			return
		}

		var (
			link  string
			seen  = map[string]struct{}{}
			total int
		)
		for pageNum := 1; ; pageNum++ {
			if pageNum > w.maxPages {
				yield(zero, protocolError(d.Operation, 0, nil, "pagination exceeded %d pages", w.maxPages))
				return
			}

			var raw *Response
			if link == "" {
				raw, err = w.transport.Send(ctx, d)
			} else {
				raw, err = w.transport.follow(ctx, d, link)
			}
			if err != nil {
				yield(zero, err)
				return
			}

			p, err := interpretPage(d, raw, w.decode)
			if err != nil {
				yield(zero, err)
				return
			}

			total += len(p.items)
			w.logger.Debug().
				Str("operation", d.Operation).
				Int("page", pageNum).
				Int("count", len(p.items)).
				Int("total", total).
				Bool("more", p.nextLink != "").
				Msg("Retrieved page")

			for _, item := range p.items {
				if !yield(item, nil) {
					return
				}
			}

			if p.nextLink == "" {
				return
			}
			if _, ok := seen[p.nextLink]; ok {
				yield(zero, protocolError(d.Operation, raw.StatusCode, nil, "nextLink repeats an earlier cursor: %s", p.nextLink))
				return
			}
			seen[p.nextLink] = struct{}{}
			link = p.nextLink
		}
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var items []T
	for item, err := range seq {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}
