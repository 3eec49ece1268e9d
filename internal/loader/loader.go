// Package loader fetches node documents for the tree.
//
// A source is either an http(s) URL or a local file path. The Loader
// decodes the fetched JSON array into tree.Records, consults and fills the
// SQLite document cache when one is configured, and records every fetch
// outcome in the cache's fetch log. Loads never touch a tree; callers hand
// the LoadResult back to tree.Attach on their own goroutine.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Mr-Dark-debug/arbor/internal/config"
	"github.com/Mr-Dark-debug/arbor/internal/database"
	"github.com/Mr-Dark-debug/arbor/internal/logx"
	"github.com/Mr-Dark-debug/arbor/internal/tree"
	"github.com/Mr-Dark-debug/arbor/pkg/timeutil"

	"github.com/charmbracelet/log"
)

// DocumentStore is the part of database.Store the loader uses.
type DocumentStore interface {
	GetDocument(source string) (*database.Document, error)
	PutDocument(doc *database.Document) error
	RecordFetch(ev *database.FetchEvent) error
}

// Options configures a Loader.
type Options struct {
	Timeout  time.Duration
	Attempts int
	Delay    time.Duration

	// Store enables the document cache; nil disables it.
	Store DocumentStore
	// CacheTTL is how long a cached document is served. Zero means the
	// cache is written but only read in offline mode.
	CacheTTL time.Duration
	// Offline serves from the cache only.
	Offline bool

	Logger *log.Logger

	// HTTP and File override the default fetchers.
	HTTP Fetcher
	File Fetcher
}

// OptionsFromConfig maps the fetch and cache settings onto Options.
func OptionsFromConfig(cfg config.Config, store DocumentStore, logger *log.Logger) Options {
	opts := Options{
		Timeout:  cfg.Fetch.Timeout.Duration,
		Attempts: cfg.Fetch.Attempts,
		Delay:    cfg.Fetch.Delay.Duration,
		CacheTTL: cfg.Cache.TTL.Duration,
		Offline:  cfg.Cache.Offline,
		Logger:   logger,
	}
	if cfg.Cache.Enabled && store != nil {
		opts.Store = store
	}
	return opts
}

// Loader fetches and decodes node documents.
type Loader struct {
	http    Fetcher
	file    Fetcher
	store   DocumentStore
	ttl     time.Duration
	offline bool
	logger  *log.Logger
}

// New creates a Loader.
func New(opts Options) *Loader {
	l := &Loader{
		http:    opts.HTTP,
		file:    opts.File,
		store:   opts.Store,
		ttl:     opts.CacheTTL,
		offline: opts.Offline,
		logger:  opts.Logger,
	}
	if l.http == nil {
		l.http = NewHTTPFetcher(opts.Timeout, opts.Attempts, opts.Delay)
	}
	if l.file == nil {
		l.file = FileFetcher{}
	}
	if l.logger == nil {
		l.logger = logx.Discard()
	}
	return l
}

// Decode parses a node document. A JSON null decodes to no records.
func Decode(data []byte) ([]tree.Record, error) {
	var records []tree.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return records, nil
}

// CountNodes counts records including every inline descendant.
func CountNodes(records []tree.Record) int {
	n := len(records)
	for _, r := range records {
		n += CountNodes(r.Nodes)
	}
	return n
}

// Load fetches and decodes source.
func (l *Loader) Load(ctx context.Context, source string) ([]tree.Record, error) {
	start := time.Now()

	if records, ok := l.fromCache(source); ok {
		l.logger.Debug("served from cache", "source", source)
		l.record(source, database.FetchCached, start, nil)
		return records, nil
	}
	if l.offline {
		return nil, fmt.Errorf("%s: %w", source, ErrOffline)
	}

	fetcher := l.file
	if IsRemote(source) {
		fetcher = l.http
	}

	body, err := fetcher.Fetch(ctx, source)
	var records []tree.Record
	if err == nil {
		if records, err = Decode(body); err != nil {
			err = fmt.Errorf("decoding %s: %w", source, err)
		}
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			l.logger.Warn("load failed", "source", source, "err", err)
			l.record(source, database.FetchError, start, err)
		}
		return nil, err
	}

	l.logger.Debug("loaded", "source", source, "nodes", CountNodes(records),
		"elapsed", timeutil.Elapsed(time.Since(start)))
	l.cache(source, body, records)
	l.record(source, database.FetchOK, start, nil)
	return records, nil
}

// LoadChildren resolves and loads a lazy subtree request.
func (l *Loader) LoadChildren(ctx context.Context, req tree.LoadRequest) tree.LoadResult {
	source := Resolve(req.Base, req.Ref)
	records, err := l.Load(ctx, source)
	return tree.LoadResult{
		Node:    req.Node,
		Ref:     req.Ref,
		Source:  source,
		Records: records,
		Err:     err,
	}
}

func (l *Loader) fromCache(source string) ([]tree.Record, bool) {
	if l.store == nil || (!l.offline && l.ttl <= 0) {
		return nil, false
	}

	doc, err := l.store.GetDocument(source)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			l.logger.Warn("cache read failed", "source", source, "err", err)
		}
		return nil, false
	}
	if !l.offline && !timeutil.Fresh(doc.FetchedAt, l.ttl) {
		return nil, false
	}

	records, err := Decode(doc.Body)
	if err != nil {
		l.logger.Warn("cached document unreadable", "source", source, "err", err)
		return nil, false
	}
	return records, true
}

func (l *Loader) cache(source string, body []byte, records []tree.Record) {
	if l.store == nil {
		return
	}
	doc := &database.Document{Source: source, Body: body, NodeCount: CountNodes(records)}
	if err := l.store.PutDocument(doc); err != nil {
		l.logger.Warn("cache write failed", "source", source, "err", err)
	}
}

func (l *Loader) record(source, status string, start time.Time, err error) {
	if l.store == nil {
		return
	}
	ev := &database.FetchEvent{
		Source:     source,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     status,
	}
	if err != nil {
		msg := err.Error()
		ev.ErrorMessage = &msg
	}
	if err := l.store.RecordFetch(ev); err != nil {
		l.logger.Warn("fetch log write failed", "source", source, "err", err)
	}
}
