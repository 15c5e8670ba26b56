package sample

import (
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/stackgraph/pkg/errors"
	"github.com/matzehuels/stackgraph/pkg/stats"
)

// Sample is one published snapshot.
type Sample struct {
	ID       uuid.UUID
	Time     time.Time
	Kind     string // statistic name, e.g. "socket-io"
	Snapshot *Snapshot
	Label    string // "HH:MM:SS kind: summary"
}

// Publisher relays snapshots from a producer to consumers in live-follow
// mode: every accepted snapshot becomes the latest sample and is delivered to
// all subscribers. A Publisher is safe for concurrent use.
type Publisher struct {
	mu     sync.Mutex
	accept map[string]bool
	subs   map[int]func(*Sample)
	nextID int
	latest *Sample
	logger *log.Logger
}

// PublisherOption configures a [Publisher].
type PublisherOption func(*Publisher)

// WithAcceptedKinds restricts the statistic names the publisher accepts.
// Without it every known kind is accepted.
func WithAcceptedKinds(names ...string) PublisherOption {
	return func(p *Publisher) {
		p.accept = make(map[string]bool, len(names))
		for _, n := range names {
			p.accept[n] = true
		}
	}
}

// WithLogger sets the publisher's logger.
func WithLogger(l *log.Logger) PublisherOption {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPublisher returns a publisher with no subscribers.
func NewPublisher(opts ...PublisherOption) *Publisher {
	p := &Publisher{
		subs:   make(map[int]func(*Sample)),
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CanAccept reports whether snapshots of the named statistic kind are
// accepted.
func (p *Publisher) CanAccept(kind string) bool {
	if _, err := stats.ParseKind(kind); err != nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accept == nil || p.accept[kind]
}

// Publish wraps snap in a new [Sample] and delivers it to subscribers.
// Empty snapshots and kinds the publisher does not accept are ignored and
// yield a nil sample. A nil snapshot, or one whose descriptor does not match
// kind, is an error.
func (p *Publisher) Publish(kind string, ts time.Time, snap *Snapshot) (*Sample, error) {
	if snap == nil {
		return nil, errors.New(errors.ErrCodeInvalidSnapshot, "nil snapshot")
	}
	k, err := stats.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	if d := snap.Descriptor(); d == nil || d.Kind() != k {
		return nil, errors.New(errors.ErrCodeInvalidKind, "snapshot statistics do not match kind %q", kind)
	}
	if snap.Len() == 0 {
		p.logger.Debug("ignoring empty snapshot", "kind", kind)
		return nil, nil
	}
	if !p.CanAccept(kind) {
		p.logger.Debug("ignoring snapshot", "kind", kind, "reason", "kind not accepted")
		return nil, nil
	}

	s := &Sample{
		ID:       uuid.New(),
		Time:     ts,
		Kind:     kind,
		Snapshot: snap,
		Label:    Label(kind, ts, snap),
	}

	p.mu.Lock()
	p.latest = s
	subs := make([]func(*Sample), 0, len(p.subs))
	ids := make([]int, 0, len(p.subs))
	for id := range p.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		subs = append(subs, p.subs[id])
	}
	p.mu.Unlock()

	p.logger.Debug("published sample", "id", s.ID, "label", s.Label, "stacks", snap.Len())
	for _, fn := range subs {
		fn(s)
	}
	return s, nil
}

// Latest returns the most recently published sample, or nil.
func (p *Publisher) Latest() *Sample {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Subscribe registers fn for every future sample and returns a function that
// removes it. fn runs on the publishing goroutine, in subscription order.
func (p *Publisher) Subscribe(fn func(*Sample)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

// Label formats the display label of a sample.
func Label(kind string, ts time.Time, snap *Snapshot) string {
	return ts.Format("15:04:05") + " " + kind + ": " + snap.Summary()
}
