package registry

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/theGeekist/edgepress-sub001/canonical"
	"github.com/theGeekist/edgepress-sub001/common"
	"github.com/theGeekist/edgepress-sub001/source"
)

type entry[T any] interface {
	entryID() string
	entryPriority() int
	validate() (T, error)
	clone() T
}

// store keeps entries sorted by priority descending, then id ascending.
// Registration is expected to happen before resolution, lock only protects
// late registrations from corrupting concurrent readers.
type store[T entry[T]] struct {
	mu      sync.RWMutex
	entries []T
	log     *zap.Logger
}

func (s *store[T]) register(e T) (T, error) {
	e, err := e.validate()
	if err != nil {
		return e, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.entries {
		if existing.entryID() == e.entryID() {
			return e, fmt.Errorf("%q: %w", e.entryID(), ErrDuplicateID)
		}
	}
	s.entries = append(s.entries, e.clone())
	slices.SortStableFunc(s.entries, func(a, b T) int {
		if c := cmp.Compare(b.entryPriority(), a.entryPriority()); c != 0 {
			return c
		}
		return cmp.Compare(a.entryID(), b.entryID())
	})

	s.log.Debug("Registered", zap.String("id", e.entryID()), zap.Int("priority", e.entryPriority()))
	return e.clone(), nil
}

func (s *store[T]) registerPack(pack []T) (err error) {
	for _, e := range pack {
		if _, rerr := s.register(e); rerr != nil {
			err = multierr.Append(err, rerr)
		}
	}
	return err
}

func (s *store[T]) all() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]T, len(s.entries))
	for i, e := range s.entries {
		res[i] = e.clone()
	}
	return res
}

func (s *store[T]) byID(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.entryID() == id {
			return e.clone(), true
		}
	}
	var zero T
	return zero, false
}

func (s *store[T]) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// ImportRegistry is ordered collection of import transforms.
type ImportRegistry struct {
	store[ImportTransform]
}

func NewImportRegistry(log *zap.Logger) *ImportRegistry {
	if log == nil {
		log = zap.NewNop()
	}
	return &ImportRegistry{store: store[ImportTransform]{log: log.Named("imports")}}
}

// Register validates and adds transform returning registered copy.
func (r *ImportRegistry) Register(t ImportTransform) (ImportTransform, error) {
	return r.register(t)
}

// RegisterPack registers all valid transforms of the pack, errors of invalid
// ones are combined.
func (r *ImportRegistry) RegisterPack(pack []ImportTransform) error {
	return r.registerPack(pack)
}

// All returns transforms in resolution order.
func (r *ImportRegistry) All() []ImportTransform {
	return r.all()
}

func (r *ImportRegistry) ByID(id string) (ImportTransform, bool) {
	return r.byID(id)
}

func (r *ImportRegistry) Len() int {
	return r.len()
}

// Resolve returns first transform in resolution order matching block name
// and accepting the block.
func (r *ImportRegistry) Resolve(name string, block *source.Block, ctx *Context) (ImportTransform, bool) {
	for _, t := range r.All() {
		if !t.matches(name) {
			continue
		}
		if t.CanHandle == nil || r.safeCanHandle(t.ID, func() bool { return t.CanHandle(name, block, ctx) }) {
			return t, true
		}
	}
	return ImportTransform{}, false
}

// RendererRegistry is ordered collection of renderers.
type RendererRegistry struct {
	store[Renderer]
}

func NewRendererRegistry(log *zap.Logger) *RendererRegistry {
	if log == nil {
		log = zap.NewNop()
	}
	return &RendererRegistry{store: store[Renderer]{log: log.Named("renderers")}}
}

// Register validates and adds renderer returning registered copy.
func (r *RendererRegistry) Register(rn Renderer) (Renderer, error) {
	return r.register(rn)
}

// RegisterPack registers all valid renderers of the pack, errors of invalid
// ones are combined.
func (r *RendererRegistry) RegisterPack(pack []Renderer) error {
	return r.registerPack(pack)
}

// All returns renderers in resolution order.
func (r *RendererRegistry) All() []Renderer {
	return r.all()
}

func (r *RendererRegistry) ByID(id string) (Renderer, bool) {
	return r.byID(id)
}

func (r *RendererRegistry) Len() int {
	return r.len()
}

// Resolve walks target degradation chain and returns first renderer
// accepting the node together with target it was found for.
func (r *RendererRegistry) Resolve(node *canonical.Node, target common.Target, ctx *Context) (Renderer, common.Target, bool) {
	all := r.All()
	for _, t := range target.Degradation() {
		for _, rn := range all {
			if !rn.matches(node.BlockKind, t) {
				continue
			}
			if rn.CanHandle == nil || r.safeCanHandle(rn.ID, func() bool { return rn.CanHandle(node, t, ctx) }) {
				return rn, t, true
			}
		}
	}
	return Renderer{}, "", false
}

// safeCanHandle runs predicate, panic means no match.
func (s *store[T]) safeCanHandle(id string, fn func() bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("Predicate failed, entry skipped", zap.String("id", id), zap.Any("panic", r))
			ok = false
		}
	}()
	return fn()
}
