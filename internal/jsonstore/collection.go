// Package jsonstore persists a collection of records as one JSON array file.
//
// Each Collection owns a single writer goroutine. Every read and every
// read-modify-write goes through its queue, so concurrent callers never
// overwrite each other's changes and readers only observe committed state.
// Files are replaced atomically: written to a temp file in the same directory
// and renamed over the target.
package jsonstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrClosed is returned by operations on a closed collection.
var ErrClosed = errors.New("jsonstore: collection closed")

type request[T any] struct {
	ctx   context.Context
	fn    func([]T) ([]T, error) // nil for a snapshot
	reply chan response[T]
}

type response[T any] struct {
	items []T
	err   error
}

// Collection is a durable, ordered list of T backed by a JSON file.
type Collection[T any] struct {
	path string

	reqs chan request[T]
	quit chan struct{}
	done chan struct{}

	closeOnce sync.Once
}

// Open loads path (a missing file is an empty collection) and starts the
// writer goroutine. A malformed file is an error.
func Open[T any](path string) (*Collection[T], error) {
	items, err := load[T](path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("jsonstore: create directory: %w", err)
	}

	c := &Collection[T]{
		path: path,
		reqs: make(chan request[T]),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go c.run(items)
	return c, nil
}

// Path returns the backing file path.
func (c *Collection[T]) Path() string { return c.path }

func load[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("jsonstore: read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("jsonstore: parse %s: %w", path, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *Collection[T]) run(items []T) {
	defer close(c.done)
	for {
		select {
		case <-c.quit:
			return
		case req := <-c.reqs:
			if err := req.ctx.Err(); err != nil {
				req.reply <- response[T]{err: err}
				continue
			}
			if req.fn == nil {
				req.reply <- response[T]{items: clone(items)}
				continue
			}

			next, err := req.fn(clone(items))
			if err == nil {
				err = c.write(next)
			}
			if err != nil {
				req.reply <- response[T]{err: err}
				continue
			}
			items = next
			req.reply <- response[T]{items: clone(items)}
		}
	}
}

// Update applies fn to a copy of the current records and persists the
// returned slice. If fn or the write fails the previous state is kept.
// Updates are applied one at a time in arrival order.
func (c *Collection[T]) Update(ctx context.Context, fn func([]T) ([]T, error)) error {
	_, err := c.do(ctx, fn)
	return err
}

// Snapshot returns a copy of the committed records.
func (c *Collection[T]) Snapshot(ctx context.Context) ([]T, error) {
	return c.do(ctx, nil)
}

func (c *Collection[T]) do(ctx context.Context, fn func([]T) ([]T, error)) ([]T, error) {
	req := request[T]{ctx: ctx, fn: fn, reply: make(chan response[T], 1)}

	select {
	case c.reqs <- req:
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// Once accepted the request always completes, so the reply is awaited
	// unconditionally to report whether the write was committed.
	resp := <-req.reply
	return resp.items, resp.err
}

// Close stops the writer goroutine and waits for it to exit. Requests already
// accepted complete first. Close is idempotent.
func (c *Collection[T]) Close() error {
	c.closeOnce.Do(func() { close(c.quit) })
	<-c.done
	return nil
}

func (c *Collection[T]) write(items []T) error {
	if items == nil {
		items = []T{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("jsonstore: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), "."+filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("jsonstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("jsonstore: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("jsonstore: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("jsonstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		cleanup()
		return fmt.Errorf("jsonstore: replace %s: %w", c.path, err)
	}
	return nil
}

func clone[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
