// pkg/physics/registry.go
package physics

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/opd-ai/go-arena/pkg/logging"
)

var (
	// ErrNotInitialized is returned by operations called before Initialize.
	ErrNotInitialized = errors.New("collision registry not initialized")
	// ErrAlreadyInitialized is returned by a second call to Initialize.
	ErrAlreadyInitialized = errors.New("collision registry already initialized")
	// ErrAlreadyRegistered is returned when adding a collider twice.
	ErrAlreadyRegistered = errors.New("collider already registered")
	// ErrNilCollider is returned when adding a nil collider.
	ErrNilCollider = errors.New("nil collider")
)

// PassStats describes the most recent detection pass.
type PassStats struct {
	Tick        uint64
	Colliders   int
	Candidates  int
	Pairs       int
	Collisions  int
	Overflows   int
	Unsupported int
	// Unrefreshed counts colliders indexed without ever having been
	// recomputed; their boxes are zero and their results meaningless.
	Unrefreshed int
	// StaleRemovals is cumulative over the registry's lifetime.
	StaleRemovals uint64
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithLogger sets the logger used for diagnostics
func WithLogger(logger *logging.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

type candidatePair struct {
	a, b Collider
	key  PairKey
}

// Registry owns the set of active colliders and runs one broad and narrow
// phase pass per tick, publishing a CollisionEvent for every overlapping
// pair exactly once.
//
// A Registry must be driven from a single goroutine; it never mutates
// collider geometry.
type Registry struct {
	sink   Publisher
	logger *logging.Logger
	index  *QuadTree

	colliders map[ColliderID]Collider
	order     []ColliderID
	nextID    ColliderID

	tick          uint64
	stats         PassStats
	staleRemovals uint64

	seen    map[PairKey]struct{}
	pairs   []candidatePair
	scratch []Collider
}

// NewRegistry creates a registry that publishes to sink. A nil sink
// discards events; counts are still kept. Initialize must be called before
// any other method.
func NewRegistry(sink Publisher, opts ...RegistryOption) *Registry {
	r := &Registry{
		sink:      sink,
		colliders: make(map[ColliderID]Collider),
		seen:      make(map[PairKey]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.NewLogger()
	}
	return r
}

// Initialize builds the spatial index rooted at world.
func (r *Registry) Initialize(world Rect) error {
	if r.index != nil {
		return ErrAlreadyInitialized
	}
	r.index = NewQuadTree(world)
	return nil
}

// Initialized reports whether Initialize has succeeded
func (r *Registry) Initialized() bool {
	return r.index != nil
}

// AddCollider registers c and returns its identity. Identities increase
// monotonically and are never reused, even after removal.
func (r *Registry) AddCollider(c Collider) (ColliderID, error) {
	if r.index == nil {
		return 0, ErrNotInitialized
	}
	if c == nil {
		return 0, ErrNilCollider
	}
	b := c.base()
	if b.registered {
		return 0, fmt.Errorf("%w: id %d", ErrAlreadyRegistered, b.id)
	}

	id := r.nextID
	r.nextID++
	b.id = id
	b.registered = true
	r.colliders[id] = c
	r.order = append(r.order, id)
	return id, nil
}

// RemoveCollider unregisters id. Removing an unknown or already removed
// identity is a no-op that logs a warning, since despawn races make it
// expected. It reports whether a collider was removed.
func (r *Registry) RemoveCollider(id ColliderID) bool {
	c, ok := r.colliders[id]
	if !ok {
		r.staleRemovals++
		r.logger.Warn(context.Background(), "remove of unregistered collider",
			"collider_id", uint64(id),
			"stale_removals", r.staleRemovals,
		)
		return false
	}

	delete(r.colliders, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	c.base().registered = false
	return true
}

// Lookup returns the collider registered under id
func (r *Registry) Lookup(id ColliderID) (Collider, bool) {
	c, ok := r.colliders[id]
	return c, ok
}

// Len returns the number of registered colliders
func (r *Registry) Len() int {
	return len(r.order)
}

// Stats returns the statistics of the last detection pass
func (r *Registry) Stats() PassStats {
	return r.stats
}

// RunDetectionPass rebuilds the spatial index from the registered colliders,
// collects each unordered candidate pair once, runs the exact overlap test
// per pair and publishes one CollisionEvent per overlap.
//
// Bounding boxes are used as they are; callers recompute them beforehand.
// ctx only carries logging correlation: the pass always runs to completion.
// Pairs without an exact test are skipped and reported in the returned
// error, which wraps ErrUnsupportedPair.
func (r *Registry) RunDetectionPass(ctx context.Context) error {
	if r.index == nil {
		return ErrNotInitialized
	}

	r.tick++
	stats := PassStats{
		Tick:          r.tick,
		Colliders:     len(r.order),
		StaleRemovals: r.staleRemovals,
	}

	r.rebuildIndex(&stats)
	r.collectPairs(&stats)
	err := r.evaluatePairs(ctx, &stats)

	if stats.Overflows > 0 {
		r.logger.Warn(ctx, "spatial index overflowed at max depth",
			"tick", stats.Tick,
			"overflows", stats.Overflows,
			"max_depth", MaxDepth,
			"max_objects_per_node", MaxObjectsPerNode,
		)
	}
	if stats.Unrefreshed > 0 {
		r.logger.Warn(ctx, "colliders indexed before first recompute",
			"tick", stats.Tick,
			"count", stats.Unrefreshed,
		)
	}
	r.logger.Debug(ctx, "detection pass complete",
		"tick", stats.Tick,
		"colliders", stats.Colliders,
		"candidates", stats.Candidates,
		"pairs", stats.Pairs,
		"collisions", stats.Collisions,
	)

	r.stats = stats
	return err
}

// rebuildIndex clears the index and inserts every collider in
// registration order.
func (r *Registry) rebuildIndex(stats *PassStats) {
	r.index.Clear()
	for _, id := range r.order {
		c := r.colliders[id]
		if !c.BoundsValid() {
			stats.Unrefreshed++
		}
		r.index.Insert(c)
	}
	stats.Overflows = r.index.Overflows()
}

// collectPairs queries the index for every collider and keeps the first
// discovery of each unordered pair.
func (r *Registry) collectPairs(stats *PassStats) {
	clear(r.seen)
	for i := range r.pairs {
		r.pairs[i] = candidatePair{}
	}
	r.pairs = r.pairs[:0]

	for _, id := range r.order {
		a := r.colliders[id]
		r.scratch = r.index.retrieve(a, a.Bounds(), r.scratch[:0])
		stats.Candidates += len(r.scratch)
		for _, b := range r.scratch {
			key := NewPairKey(a, b)
			if _, dup := r.seen[key]; dup {
				continue
			}
			r.seen[key] = struct{}{}
			r.pairs = append(r.pairs, candidatePair{a: a, b: b, key: key})
		}
	}
	clear(r.scratch)
	stats.Pairs = len(r.pairs)
}

func (r *Registry) evaluatePairs(ctx context.Context, stats *PassStats) error {
	var errs []error
	for _, p := range r.pairs {
		hit, err := Overlaps(p.a, p.b)
		if err != nil {
			stats.Unsupported++
			err = fmt.Errorf("pair %s: %w", p.key, err)
			r.logger.Error(ctx, "narrow phase test missing", err,
				"tick", stats.Tick,
				"pair_key", p.key.String(),
				"shape_a", p.a.Shape().String(),
				"shape_b", p.b.Shape().String(),
			)
			errs = append(errs, err)
			continue
		}
		if !hit {
			continue
		}
		stats.Collisions++
		if r.sink != nil {
			r.sink.Publish(NewCollisionEvent(r, p.a, p.b))
		}
	}
	return errors.Join(errs...)
}
