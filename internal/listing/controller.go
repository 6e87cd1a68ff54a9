// Package listing drives the all-posts listing: search text, sort order and
// page number, a debounced search box, and the address bar kept in step
// with whatever the user is looking at.
//
// Every state change happens on the Bubble Tea update goroutine. Fetches run
// as commands that only return messages; each carries a sequence number and
// only the newest one may touch visible state.
package listing

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/abelbrown/quill/internal/api"
	"github.com/abelbrown/quill/internal/blog"
	"github.com/abelbrown/quill/internal/logging"
	"github.com/abelbrown/quill/internal/otel"
	"github.com/abelbrown/quill/internal/query"
)

// DefaultDebounce is how long typing must pause before a search fires.
const DefaultDebounce = 300 * time.Millisecond

// Searcher fetches one page of posts.
type Searcher interface {
	SearchPosts(ctx context.Context, p api.SearchParams) (blog.PostPage, error)
}

// Locator is the address bar. Replace must not add a history entry.
type Locator interface {
	Replace(loc string)
}

// State is a read-only snapshot for rendering.
type State struct {
	SearchQuery string
	SortBy      query.Sort
	CurrentPage int
	TotalPages  int
	Total       int
	Posts       []blog.Post
	Loading     bool
}

// ScrollTopMsg asks the render surface to return to the top of the list.
type ScrollTopMsg struct{}

type debounceFiredMsg struct {
	tag uint64
}

type postsLoadedMsg struct {
	seq   uint64
	qid   string
	query query.Query
	page  blog.PostPage
	err   error
	dur   time.Duration
}

// Controller owns the listing state. Not safe for concurrent use; call it
// only from a model's Update.
type Controller struct {
	searcher Searcher
	location Locator
	events   otel.Scope
	debounce time.Duration
	schedule func(d time.Duration, msg tea.Msg) tea.Cmd

	ctx      context.Context
	cancel   context.CancelFunc
	inflight context.CancelFunc

	query      query.Query
	posts      []blog.Post
	total      int
	totalPages int
	loading    bool

	seq     uint64 // last issued fetch
	tag     uint64 // debounce generation
	pending bool   // a debounce tick is outstanding
	closed  bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

// WithEvents records fetch and debounce activity.
func WithEvents(l *otel.Logger) Option {
	return func(c *Controller) { c.events = l.For("listing") }
}

// WithScheduler replaces tea.Tick for the debounce timer.
func WithScheduler(fn func(d time.Duration, msg tea.Msg) tea.Cmd) Option {
	return func(c *Controller) { c.schedule = fn }
}

func tick(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}

// New creates a controller starting at start, typically the query read
// from the current location.
func New(s Searcher, loc Locator, start query.Query, opts ...Option) *Controller {
	if start.Page < 1 {
		start.Page = 1
	}
	start.Sort = query.ParseSort(string(start.Sort))
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		searcher:   s,
		location:   loc,
		debounce:   DefaultDebounce,
		schedule:   tick,
		ctx:        ctx,
		cancel:     cancel,
		query:      start,
		totalPages: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init issues the first fetch for the starting query.
func (c *Controller) Init() tea.Cmd {
	return c.fetch()
}

// State returns the current snapshot.
func (c *Controller) State() State {
	return State{
		SearchQuery: c.query.Text,
		SortBy:      c.query.Sort,
		CurrentPage: c.query.Page,
		TotalPages:  c.totalPages,
		Total:       c.total,
		Posts:       c.posts,
		Loading:     c.loading,
	}
}

// Query returns the query the next fetch will use.
func (c *Controller) Query() query.Query {
	return c.query
}

// SearchInput records text immediately and schedules a search for it once
// typing pauses. Each call replaces the previously scheduled search.
func (c *Controller) SearchInput(text string) tea.Cmd {
	if c.closed {
		return nil
	}
	c.query = c.query.WithText(text)
	c.tag++
	c.pending = true
	c.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindListingDebounce, Query: text, Dur: c.debounce})
	return c.schedule(c.debounce, debounceFiredMsg{tag: c.tag})
}

// SearchSubmit searches for the current text now, from page 1.
func (c *Controller) SearchSubmit() tea.Cmd {
	if c.closed {
		return nil
	}
	c.cancelDebounce()
	c.query = c.query.WithText(c.query.Text)
	return c.fetch()
}

// ClearSearch drops the search text and fetches page 1.
func (c *Controller) ClearSearch() tea.Cmd {
	if c.closed {
		return nil
	}
	c.cancelDebounce()
	c.query = c.query.WithText("")
	return c.fetch()
}

// SortChange reorders the listing and returns to page 1.
func (c *Controller) SortChange(s query.Sort) tea.Cmd {
	if c.closed {
		return nil
	}
	c.cancelDebounce()
	c.query = c.query.WithSort(query.ParseSort(string(s)))
	return c.fetch()
}

// PageChange moves to page p and asks the view to scroll to the top.
// Callers clamp p into [1, TotalPages].
func (c *Controller) PageChange(p int) tea.Cmd {
	if c.closed {
		return nil
	}
	c.cancelDebounce()
	c.query = c.query.WithPage(max(p, 1))
	return tea.Batch(c.fetch(), func() tea.Msg { return ScrollTopMsg{} })
}

// Close stops the debounce timer and aborts in-flight requests. Messages
// arriving afterwards are ignored.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.cancelDebounce()
	c.closed = true
	c.loading = false
	c.cancel()
}

func (c *Controller) cancelDebounce() {
	if !c.pending {
		return
	}
	c.tag++
	c.pending = false
	c.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindListingDebounceCancel, Query: c.query.Text})
}

// fetch issues a request for the current query. A newer fetch supersedes
// and aborts any request still running.
func (c *Controller) fetch() tea.Cmd {
	c.seq++
	c.loading = true
	if c.inflight != nil {
		c.inflight()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.inflight = cancel

	seq, q := c.seq, c.query
	qid := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	c.events.Emit(otel.Event{
		Level:   otel.LevelInfo,
		Kind:    otel.KindListingFetch,
		QueryID: qid,
		Seq:     seq,
		Page:    q.Page,
		Query:   q.Text,
		Msg:     string(q.Sort),
	})

	searcher := c.searcher
	return func() tea.Msg {
		defer cancel()
		start := time.Now()
		page, err := searcher.SearchPosts(ctx, api.SearchParams{
			Text:  q.Text,
			Page:  q.Page,
			Limit: query.PageSize,
			Sort:  string(q.Sort),
		})
		return postsLoadedMsg{seq: seq, qid: qid, query: q, page: page, err: err, dur: time.Since(start)}
	}
}

// Update consumes the controller's own messages and ignores the rest.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case debounceFiredMsg:
		if c.closed || !c.pending || msg.tag != c.tag {
			return nil
		}
		c.pending = false
		c.query = c.query.WithPage(1)
		return c.fetch()

	case postsLoadedMsg:
		if c.closed {
			return nil
		}
		if msg.seq != c.seq {
			c.events.Emit(otel.Event{
				Level: otel.LevelDebug, Kind: otel.KindListingStale,
				QueryID: msg.qid, Seq: msg.seq, Query: msg.query.Text, Dur: msg.dur,
			})
			return nil
		}
		c.loading = false
		c.inflight = nil

		if msg.err != nil {
			logging.Error("listing fetch failed", "seq", msg.seq, "q", msg.query.Text,
				"page", msg.query.Page, "sort", msg.query.Sort, "error", msg.err)
			c.events.Emit(otel.Event{
				Level: otel.LevelError, Kind: otel.KindListingError,
				QueryID: msg.qid, Seq: msg.seq, Query: msg.query.Text, Page: msg.query.Page,
				Err: msg.err.Error(), Dur: msg.dur,
			})
			return nil
		}

		c.posts = msg.page.Posts
		c.total = msg.page.Total
		c.totalPages = query.TotalPages(msg.page.Total)
		c.location.Replace(msg.query.Path())
		c.events.Emit(otel.Event{
			Level: otel.LevelInfo, Kind: otel.KindListingLoaded,
			QueryID: msg.qid, Seq: msg.seq, Query: msg.query.Text, Page: msg.query.Page,
			Count: len(msg.page.Posts), Dur: msg.dur, Extra: map[string]any{"total": msg.page.Total},
		})
	}
	return nil
}
