package resolve

import (
	"errors"
	"fmt"

	"github.com/agentic-research/descend/pkg/graph"
)

// ErrRootNotFound is matched by every *RootNotFoundError.
var ErrRootNotFound = errors.New("root of hierarchy not found")

// StrategyKind enumerates the ways a search root is found relative to an
// attachment point.
type StrategyKind int

const (
	// KindSceneDiscovery looks two levels below the attachment point, past
	// the unnamed wrapper a spawned scene is parented under.
	KindSceneDiscovery StrategyKind = iota
	// KindDirectChild looks among the attachment point's direct children.
	KindDirectChild
	// KindDirect uses the attachment point itself.
	KindDirect
	// KindFixed uses a node chosen when the strategy was built.
	KindFixed
)

func (k StrategyKind) String() string {
	switch k {
	case KindSceneDiscovery:
		return "scene"
	case KindDirectChild:
		return "child"
	case KindDirect:
		return "direct"
	case KindFixed:
		return "fixed"
	default:
		return "unknown"
	}
}

// Strategy locates the root that field paths are resolved from.
// The zero value is SceneDiscovery.
type Strategy struct {
	kind  StrategyKind
	fixed string
}

func SceneDiscovery() Strategy { return Strategy{kind: KindSceneDiscovery} }

func DirectChild() Strategy { return Strategy{kind: KindDirectChild} }

func Direct() Strategy { return Strategy{kind: KindDirect} }

// Fixed returns a strategy that always yields root, ignoring any declared
// root name.
func Fixed(root string) Strategy { return Strategy{kind: KindFixed, fixed: root} }

// Kind returns the strategy's variant.
func (s Strategy) Kind() StrategyKind { return s.kind }

// FixedRoot returns the node carried by a Fixed strategy.
func (s Strategy) FixedRoot() (string, bool) {
	return s.fixed, s.kind == KindFixed
}

func (s Strategy) String() string {
	if s.kind == KindFixed {
		return fmt.Sprintf("fixed(%s)", s.fixed)
	}
	return s.kind.String()
}

// ParseStrategy maps a configuration name onto a Strategy. fixed is the
// root node ID and is required for, and only accepted by, "fixed".
func ParseStrategy(name, fixed string) (Strategy, error) {
	var s Strategy
	switch name {
	case "", "scene", "scene-discovery":
		s = SceneDiscovery()
	case "child", "direct-child":
		s = DirectChild()
	case "direct":
		s = Direct()
	case "fixed":
		if fixed == "" {
			return Strategy{}, fmt.Errorf("strategy fixed requires a root node")
		}
		return Fixed(fixed), nil
	default:
		return Strategy{}, fmt.Errorf("unknown root strategy %q (want scene, child, direct or fixed)", name)
	}
	if fixed != "" {
		return Strategy{}, fmt.Errorf("strategy %s does not take a fixed root", s)
	}
	return s, nil
}

// RootNotFoundError reports that a strategy found no node carrying the
// declared root name. Candidates lists the name paths below the
// attachment point at the time of the failure.
type RootNotFoundError struct {
	Attachment string
	RootName   string
	Strategy   Strategy
	Candidates [][]string
}

func (e *RootNotFoundError) Error() string {
	return fmt.Sprintf("root of hierarchy %q not found for attachment %q (strategy %s); name paths from the attachment:\n%s",
		e.RootName, e.Attachment, e.Strategy, FormatPaths(e.Candidates))
}

func (e *RootNotFoundError) Unwrap() error {
	return ErrRootNotFound
}

// Locate returns the node field paths should be resolved from.
//
// Direct and Fixed cannot fail and ignore rootName. On failure the returned
// *RootNotFoundError carries the leaf paths below attachment, enumerated
// only then.
func Locate(g graph.Graph, s Strategy, attachment, rootName string) (string, error) {
	var (
		root string
		ok   bool
	)
	switch s.kind {
	case KindSceneDiscovery:
		root, ok = Grandchild(g, attachment, rootName)
	case KindDirectChild:
		root, ok = Path(g, attachment, []string{rootName})
	case KindDirect:
		return attachment, nil
	case KindFixed:
		return s.fixed, nil
	default:
		return "", fmt.Errorf("locate: unknown strategy kind %d", s.kind)
	}
	if ok {
		return root, nil
	}
	return "", &RootNotFoundError{
		Attachment: attachment,
		RootName:   rootName,
		Strategy:   s,
		Candidates: CollectLeafPaths(g, attachment),
	}
}
