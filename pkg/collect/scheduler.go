package collect

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/agentic-research/descend/pkg/graph"
	"github.com/agentic-research/descend/pkg/resolve"
)

// FailurePolicy decides what a pass does when an attachment point's root
// cannot be located.
type FailurePolicy int

const (
	// AbortPass stops the tick at the first missing root and returns the
	// error. Attachment points after it stay pending for the next tick.
	AbortPass FailurePolicy = iota
	// IsolateFailures records the missing root against its attachment point
	// and moves on to the next one.
	IsolateFailures
)

func (p FailurePolicy) String() string {
	switch p {
	case AbortPass:
		return "abort"
	case IsolateFailures:
		return "isolate"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(p))
	}
}

// ParseFailurePolicy maps "abort" or "isolate" onto a FailurePolicy.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "abort":
		return AbortPass, nil
	case "isolate":
		return IsolateFailures, nil
	default:
		return AbortPass, fmt.Errorf("unknown failure policy %q (want abort or isolate)", s)
	}
}

// Attachment describes a record attached during a tick.
type Attachment struct {
	Kind       string
	Attachment string
	Root       string
}

// Failure describes an attachment point a tick could not collect.
type Failure struct {
	Kind       string
	Attachment string
	Err        error
}

// Report summarizes one tick.
type Report struct {
	Attached []Attachment
	Failures []Failure
}

// Err joins every failure in the report, or returns nil.
func (r Report) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}

// pass is one registered record kind with its type erased.
type pass struct {
	kind     string
	rootName string
	strategy resolve.Strategy
	resolve  func(g graph.Graph, root, attachment string) (any, error)
}

// Scheduler runs one collection pass per registered record kind on every
// tick. Ticks must not overlap; the world may be marked from other
// goroutines between and during ticks.
type Scheduler struct {
	world  *World
	policy FailurePolicy
	logger *log.Logger
	passes []*pass
	kinds  map[string]struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithFailurePolicy sets how missing roots are handled. The default is
// AbortPass.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(s *Scheduler) { s.policy = p }
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

func NewScheduler(w *World, opts ...Option) *Scheduler {
	s := &Scheduler{
		world:  w,
		policy: AbortPass,
		kinds:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	return s
}

// World returns the world the scheduler collects into.
func (s *Scheduler) World() *World {
	return s.world
}

// Kinds returns the registered record kinds in pass order.
func (s *Scheduler) Kinds() []string {
	out := make([]string, len(s.passes))
	for i, p := range s.passes {
		out[i] = p.kind
	}
	return out
}

type passConfig struct {
	strategy resolve.Strategy
}

// PassOption configures a single registration.
type PassOption func(*passConfig)

// WithStrategy sets how the pass locates its root. The default is
// resolve.SceneDiscovery.
func WithStrategy(st resolve.Strategy) PassOption {
	return func(c *passConfig) { c.strategy = st }
}

// Register adds a pass collecting kind records with c. Each kind may be
// registered once. Passes run in registration order.
func Register[T any](s *Scheduler, kind string, c Contract[T], opts ...PassOption) error {
	if kind == "" {
		return errors.New("register: empty record kind")
	}
	if _, dup := s.kinds[kind]; dup {
		return fmt.Errorf("register %s: kind already registered", kind)
	}
	var cfg passConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	s.kinds[kind] = struct{}{}
	s.passes = append(s.passes, &pass{
		kind:     kind,
		rootName: c.RootName(),
		strategy: cfg.strategy,
		resolve: func(g graph.Graph, root, attachment string) (any, error) {
			return c.ResolveFields(g, root, attachment)
		},
	})
	return nil
}

// Tick runs every pass once. It returns a non-nil error only when a pass
// aborts under AbortPass or ctx is done; the report then covers the work
// done before that point.
func (s *Scheduler) Tick(ctx context.Context) (Report, error) {
	var rep Report
	for _, p := range s.passes {
		if err := s.runPass(ctx, p, &rep); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (s *Scheduler) runPass(ctx context.Context, p *pass, rep *Report) error {
	g := graph.Snapshot(s.world.Graph())

	for _, attachment := range s.world.added(p.kind) {
		if err := ctx.Err(); err != nil {
			return err
		}

		if s.world.HasRecord(p.kind, attachment) {
			// The attached record supersedes a late marker.
			s.world.Unmark(p.kind, attachment)
			continue
		}
		s.world.consume(p.kind, attachment)

		root, err := resolve.Locate(g, p.strategy, attachment, p.rootName)
		if err != nil {
			s.logger.Error("root not found", "kind", p.kind, "attachment", attachment,
				"root", p.rootName, "strategy", p.strategy, "err", err)
			err = fmt.Errorf("collect %s for %s: %w", p.kind, attachment, err)
			s.world.fail(p.kind, attachment, err)
			if s.policy == AbortPass {
				return err
			}
			rep.Failures = append(rep.Failures, Failure{Kind: p.kind, Attachment: attachment, Err: err})
			continue
		}

		rec, err := p.resolve(g, root, attachment)
		if err != nil {
			s.logger.Warn("field resolution failed", "kind", p.kind, "attachment", attachment, "err", err)
			err = fmt.Errorf("collect %s for %s: %w", p.kind, attachment, err)
			s.world.fail(p.kind, attachment, err)
			rep.Failures = append(rep.Failures, Failure{Kind: p.kind, Attachment: attachment, Err: err})
			continue
		}

		s.world.attach(p.kind, attachment, rec)
		s.logger.Debug("record attached", "kind", p.kind, "attachment", attachment, "root", root)
		rep.Attached = append(rep.Attached, Attachment{Kind: p.kind, Attachment: attachment, Root: root})
	}
	return nil
}
