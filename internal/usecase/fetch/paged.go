package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"content-mesh/internal/common/pagination"
	"content-mesh/internal/observability/metrics"
	"content-mesh/internal/observability/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// State is the lifecycle position of a fetch.
type State int

const (
	StateQueued State = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further page will be requested.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Task is the type-independent view of a fetch that the Scheduler drives.
// Every *PagedFetch[T] is a Task.
type Task interface {
	Name() string
	Advance(ctx context.Context) error
	State() State
	Err() error
}

// PageRequester issues a single page request to the content API.
type PageRequester[T any] func(ctx context.Context, params pagination.Params) (pagination.Response[T], error)

type options struct {
	timeout        time.Duration
	beforeNextPage func(pagination.PageInfo) bool
	replace        bool
	pageSize       int
	logger         *slog.Logger
}

// Option configures a PagedFetch.
type Option func(*options)

// WithTimeout bounds every page request. Zero disables the deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithBeforeNextPage installs a predicate consulted before each page request.
// Returning false completes the fetch successfully with what it has so far.
func WithBeforeNextPage(fn func(pagination.PageInfo) bool) Option {
	return func(o *options) { o.beforeNextPage = fn }
}

// WithReplace makes each page replace the accumulated results instead of
// appending to them. Singleton collections are fetched this way.
func WithReplace() Option {
	return func(o *options) { o.replace = true }
}

// WithPageSize sets the number of items requested per page.
func WithPageSize(n int) Option {
	return func(o *options) { o.pageSize = n }
}

// WithLogger sets the logger used for page and completion events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// completion is a one-shot latch. done is closed exactly once, after results
// and err were written; neither changes afterwards.
type completion[T any] struct {
	done    chan struct{}
	results []T
	err     error
}

func newCompletion[T any]() *completion[T] {
	return &completion[T]{done: make(chan struct{})}
}

func (c *completion[T]) fired() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// PagedFetch retrieves a paginated resource one page at a time.
//
// Advance requests exactly one page, so a scheduler can interleave many
// fetches. Pages of one fetch are strictly sequential: page N+1 is never
// requested before page N has been merged.
type PagedFetch[T any] struct {
	name    string
	request PageRequester[T]
	opts    options

	// advanceMu serialises Advance and Reset, keeping at most one request in flight.
	advanceMu sync.Mutex

	mu        sync.Mutex
	state     State
	results   []T
	info      pagination.PageInfo
	err       error
	earlyStop bool
	latch     *completion[T]
}

// NewPagedFetch creates a queued fetch named name that pages through request.
func NewPagedFetch[T any](name string, request PageRequester[T], opts ...Option) *PagedFetch[T] {
	o := options{pageSize: pagination.DefaultConfig().DefaultLimit}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pageSize < 1 {
		o.pageSize = 1
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	return &PagedFetch[T]{
		name:    name,
		request: request,
		opts:    o,
		state:   StateQueued,
		results: []T{},
		info:    pagination.InitialPageInfo(),
		latch:   newCompletion[T](),
	}
}

// Name returns the fetch name used in logs, metrics and errors.
func (f *PagedFetch[T]) Name() string { return f.name }

// State returns the current lifecycle state.
func (f *PagedFetch[T]) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err returns the terminal error, or nil.
func (f *PagedFetch[T]) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// PageInfo returns the current cursor.
func (f *PagedFetch[T]) PageInfo() pagination.PageInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.info
}

// EarlyStopped reports whether the before-next-page predicate ended the fetch.
func (f *PagedFetch[T]) EarlyStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.earlyStop
}

// Results returns a copy of the accumulated results. It is never nil.
func (f *PagedFetch[T]) Results() []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]T, len(f.results))
	copy(out, f.results)
	return out
}

// Advance fetches exactly one page.
//
// On a terminal fetch it returns the terminal error without side effects.
// If the parent context is cancelled mid-request the fetch stays queued and
// the context error is returned, so a later Advance can resume it.
func (f *PagedFetch[T]) Advance(ctx context.Context) error {
	f.advanceMu.Lock()
	defer f.advanceMu.Unlock()

	f.mu.Lock()
	if f.state.Terminal() {
		err := f.err
		f.mu.Unlock()
		return err
	}
	info := f.info
	f.state = StateRunning
	f.mu.Unlock()

	if f.opts.beforeNextPage != nil && !f.opts.beforeNextPage(info) {
		f.finish(nil, true)
		return nil
	}

	params := pagination.NextParams(info, f.opts.pageSize)

	ctx, span := tracing.StartSpan(ctx, "fetch.page",
		attribute.String("fetch.name", f.name),
		attribute.Int("fetch.page", params.Page),
		attribute.Int("fetch.limit", params.Limit),
	)
	start := time.Now()
	resp, err := f.requestPage(ctx, params)
	duration := time.Since(start)

	if err == nil {
		err = validate(resp)
	}
	if err != nil {
		tracing.EndSpan(span, err)
		if ctx.Err() != nil && !isTimeout(err) {
			f.mu.Lock()
			f.state = StateQueued
			f.mu.Unlock()
			return ctx.Err()
		}
		kind := errorKind(err)
		pagination.LogError(f.opts.logger, f.name, params, err, kind)
		metrics.RecordFetchError(kind)
		err = &FetchError{Name: f.name, Err: err}
		f.finish(err, false)
		return err
	}
	span.SetAttributes(attribute.Int("fetch.result_count", len(resp.Data)))
	tracing.EndSpan(span, nil)

	f.mu.Lock()
	if f.opts.replace {
		f.results = append(make([]T, 0, len(resp.Data)), resp.Data...)
	} else {
		f.results = append(f.results, resp.Data...)
	}
	f.info = f.info.Advance(params, resp.Meta)
	next := f.info
	if next.HasNextPage {
		f.state = StateQueued
	}
	f.mu.Unlock()

	metrics.RecordPageFetched(f.name, duration, len(resp.Data))
	pagination.LogPage(f.opts.logger, f.name, params, next, duration)

	if !next.HasNextPage {
		f.finish(nil, false)
	}
	return nil
}

// requestPage races the request against the timeout and the parent context.
func (f *PagedFetch[T]) requestPage(ctx context.Context, params pagination.Params) (pagination.Response[T], error) {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		resp pagination.Response[T]
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		resp, err := f.request(reqCtx, params)
		ch <- outcome{resp: resp, err: err}
	}()

	var deadline <-chan time.Time
	if f.opts.timeout > 0 {
		timer := time.NewTimer(f.opts.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case o := <-ch:
		return o.resp, o.err
	case <-deadline:
		return pagination.Response[T]{}, fmt.Errorf("%w after %s", ErrRequestTimeout, f.opts.timeout)
	case <-ctx.Done():
		return pagination.Response[T]{}, ctx.Err()
	}
}

func validate[T any](resp pagination.Response[T]) error {
	if resp.Err != nil {
		return &UpstreamError{Err: resp.Err}
	}
	if err := resp.Meta.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func isTimeout(err error) bool {
	return errorKind(err) == kindTimeout
}

// finish moves the fetch to its terminal state and fires the latch.
func (f *PagedFetch[T]) finish(err error, early bool) {
	f.mu.Lock()
	if err != nil {
		f.state = StateFailed
	} else {
		f.state = StateSucceeded
		f.info.HasNextPage = false
	}
	f.err = err
	f.earlyStop = early
	snapshot := make([]T, len(f.results))
	copy(snapshot, f.results)
	latch := f.latch
	f.mu.Unlock()

	latch.results = snapshot
	latch.err = err
	close(latch.done)

	outcome := "success"
	switch {
	case err != nil:
		outcome = "failure"
	case early:
		outcome = "early_stop"
	}
	metrics.RecordFetchCompleted(outcome)
	f.opts.logger.Debug("fetch completed",
		slog.String("fetch", f.name),
		slog.String("outcome", outcome),
		slog.Int("results", len(snapshot)))
}

// Wait blocks until the fetch completes and returns its final results, or the
// terminal error. It returns at once if the fetch already completed, and may
// be called any number of times from any goroutine. A Reset after completion
// does not change what earlier waiters observe.
func (f *PagedFetch[T]) Wait(ctx context.Context) ([]T, error) {
	f.mu.Lock()
	latch := f.latch
	f.mu.Unlock()

	select {
	case <-latch.done:
		if latch.err != nil {
			return nil, latch.err
		}
		out := make([]T, len(latch.results))
		copy(out, latch.results)
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reset returns the fetch to its initial queued state for reuse.
//
// A fresh completion latch is installed only when the current one has fired;
// goroutines already waiting on an unfinished fetch keep waiting for the next
// completion.
func (f *PagedFetch[T]) Reset() {
	f.advanceMu.Lock()
	defer f.advanceMu.Unlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateQueued
	f.results = []T{}
	f.info = pagination.InitialPageInfo()
	f.err = nil
	f.earlyStop = false
	if f.latch.fired() {
		f.latch = newCompletion[T]()
	}
}
