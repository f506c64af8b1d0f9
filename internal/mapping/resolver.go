package mapping

import (
	"fmt"

	"github.com/trackshift/trackshift/internal/config"
)

// strategy attempts one layer of resolution for a key. The bool reports
// whether this layer produced a decision; false defers to the next layer.
type strategy func(key Key) (Decision, bool, error)

// Resolver resolves (resource type, source value, project) triples to
// destination values through an ordered chain of strategies: per-project
// static, global static, cached dynamic, interactive. Every decision
// reached by any path is written to the cache before return.
type Resolver struct {
	cfg      *config.Config
	cache    *Cache
	prompter Prompter
	store    *Store
}

// NewResolver builds a Resolver over the static configuration. prompter may
// be nil when interactive resolution is not wanted (lookups then fail as
// unmapped); store may be nil to keep decisions in memory only.
func NewResolver(cfg *config.Config, prompter Prompter, store *Store) *Resolver {
	return &Resolver{
		cfg:      cfg,
		cache:    NewCache(),
		prompter: prompter,
		store:    store,
	}
}

// LoadStore seeds the cache with decisions persisted by earlier runs.
func (r *Resolver) LoadStore() error {
	if r.store == nil {
		return nil
	}
	entries, err := r.store.Load()
	if err != nil {
		return fmt.Errorf("loading decision store: %w", err)
	}
	for key, d := range entries {
		r.cache.Put(key, d)
	}
	return nil
}

// Resolve maps sourceValue of the given resource type to a destination
// decision. projectKey scopes per-project lookups and is empty for global
// resources. Resolution order: per-project static, global static, cached
// dynamic, interactive. Returns ErrUnmapped when no layer produces a value;
// ErrNoDestType when the resource type has no configured destination.
func (r *Resolver) Resolve(resource, sourceValue, projectKey string) (Decision, error) {
	dests := r.cfg.DestTypes(resource)
	if len(dests) == 0 {
		return Decision{}, fmt.Errorf("resource type %q: %w", resource, ErrNoDestType)
	}

	// Static layers are tried per configured dest type, in configuration
	// order, matching how a category may resolve to a component in one
	// project and a label in another.
	for _, dest := range dests {
		key := Key{Resource: resource, Dest: dest, ProjectKey: projectKey, SourceValue: sourceValue}
		for _, s := range []strategy{r.projectStatic, r.globalStatic, r.cached} {
			d, ok, err := s(key)
			if err != nil {
				return Decision{}, err
			}
			if !ok {
				continue
			}
			r.cache.Put(key, d)
			if d.Unmapped {
				return d, fmt.Errorf("%s: %w", key, ErrUnmapped)
			}
			return d, nil
		}
	}

	return r.interactive(resource, sourceValue, projectKey, dests)
}

func (r *Resolver) projectStatic(key Key) (Decision, bool, error) {
	v, ok := r.cfg.ProjectValue(key.Resource, key.Dest, key.ProjectKey, key.SourceValue)
	if !ok {
		return Decision{}, false, nil
	}
	return Decision{Dest: key.Dest, Value: v}, true, nil
}

func (r *Resolver) globalStatic(key Key) (Decision, bool, error) {
	v, ok := r.cfg.StaticValue(key.Resource, key.Dest, key.SourceValue)
	if !ok {
		return Decision{}, false, nil
	}
	return Decision{Dest: key.Dest, Value: v}, true, nil
}

func (r *Resolver) cached(key Key) (Decision, bool, error) {
	d, ok := r.cache.Get(key)
	return d, ok, nil
}

// interactive blocks the run on an operator decision, unless dynamic
// resolution is disabled for the resource type, in which case the value
// fails immediately as unmapped. The decision, including a decline, is
// cached under every configured dest type so the key never prompts again.
func (r *Resolver) interactive(resource, sourceValue, projectKey string, dests []string) (Decision, error) {
	unmappedKey := Key{Resource: resource, Dest: dests[0], ProjectKey: projectKey, SourceValue: sourceValue}

	if !r.cfg.DynamicEnabled(resource) || r.prompter == nil {
		d := Decision{Dest: dests[0], Unmapped: true}
		r.remember(resource, projectKey, sourceValue, dests, d)
		return d, fmt.Errorf("%s: dynamic resolution disabled: %w", unmappedKey, ErrUnmapped)
	}

	resp, err := r.prompter.ResolveValue(Request{
		Resource:    resource,
		SourceValue: sourceValue,
		ProjectKey:  projectKey,
		DestTypes:   dests,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("interactive resolution for %s: %w", unmappedKey, err)
	}

	if resp.Skip {
		d := Decision{Dest: dests[0], Unmapped: true}
		r.remember(resource, projectKey, sourceValue, dests, d)
		return d, fmt.Errorf("%s: declined by operator: %w", unmappedKey, ErrUnmapped)
	}

	dest := resp.Dest
	if dest == "" {
		dest = dests[0]
	}
	d := Decision{Dest: dest, Value: resp.Value}
	r.remember(resource, projectKey, sourceValue, dests, d)
	return d, nil
}

// remember writes a dynamic decision to the cache and, when configured, the
// persistent store. Unmapped decisions are cached under every dest type so
// no later dest-type pass re-prompts; mapped ones under the chosen dest.
func (r *Resolver) remember(resource, projectKey, sourceValue string, dests []string, d Decision) {
	keys := []Key{{Resource: resource, Dest: d.Dest, ProjectKey: projectKey, SourceValue: sourceValue}}
	if d.Unmapped {
		keys = keys[:0]
		for _, dest := range dests {
			keys = append(keys, Key{Resource: resource, Dest: dest, ProjectKey: projectKey, SourceValue: sourceValue})
		}
	}

	for _, key := range keys {
		r.cache.Put(key, d)
		if r.store != nil {
			// Persisting is best-effort; a failed write only costs a
			// repeated prompt on the next run.
			_ = r.store.Save(key, d)
		}
	}
}
