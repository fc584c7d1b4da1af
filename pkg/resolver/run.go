package resolver

import (
	"sort"
	"sync"

	"github.com/agentpkg/assetgraph/pkg/catalog"
	"github.com/agentpkg/assetgraph/pkg/store"
)

// visitedSet records every key a run has scanned or given up on, in
// insertion order.
type visitedSet struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
}

func newVisitedSet() *visitedSet {
	return &visitedSet{seen: make(map[string]struct{})}
}

// Add inserts key and reports whether it was new.
func (v *visitedSet) Add(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.seen[key]; ok {
		return false
	}
	v.seen[key] = struct{}{}
	v.order = append(v.order, key)
	return true
}

func (v *visitedSet) Has(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.seen[key]
	return ok
}

func (v *visitedSet) Keys() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.order...)
}

// run is the mutable state of one Analyze invocation.
type run struct {
	root     catalog.Asset
	rootFile catalog.AssetFile

	visited    *visitedSet
	results    []catalog.AssetFile
	cross      map[int64]catalog.Asset
	unresolved []string

	variant     *variant
	variantUsed bool

	state catalog.DependencyState
	err   error

	ws *store.Workspace
}

func newRun(root catalog.Asset, workspaceRoot string) *run {
	return &run{
		root:    root,
		visited: newVisitedSet(),
		cross:   make(map[int64]catalog.Asset),
		state:   catalog.Calculating,
		ws:      store.NewWorkspace(workspaceRoot),
	}
}

// settle moves the run to s unless it already reached a terminal state.
func (r *run) settle(s catalog.DependencyState) {
	if r.state == catalog.Calculating {
		r.state = s
	}
}

func (r *run) fail(err error) {
	if r.state == catalog.Calculating {
		r.state = catalog.Failed
		r.err = err
	}
}

func (r *run) add(f catalog.AssetFile) {
	r.results = append(r.results, f)
}

func (r *run) addCross(a catalog.Asset) {
	if a.ID == r.root.ID {
		return
	}
	if r.variant != nil && a.ID == r.variant.pkg.ID {
		return
	}
	r.cross[a.ID] = a
}

// finish aggregates the run into the asset's dependency fields.
func (r *run) finish() catalog.Dependencies {
	r.settle(catalog.Done)

	deps := catalog.Dependencies{
		State:       r.state,
		Unresolved:  append([]string(nil), r.unresolved...),
		VariantUsed: r.variantUsed,
		Err:         r.err,
	}
	if r.variant != nil {
		v := r.variant.pkg
		deps.Variant = &v
	}

	seen := make(map[string]bool, len(r.results))
	for _, f := range r.results {
		if seen[f.Key()] {
			continue
		}
		seen[f.Key()] = true
		deps.Files = append(deps.Files, f)
	}
	sort.SliceStable(deps.Files, func(i, j int) bool {
		a, b := deps.Files[i], deps.Files[j]
		if a.AssetID != b.AssetID {
			return a.AssetID < b.AssetID
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Type < b.Type
	})

	for _, f := range deps.Files {
		deps.Size += f.Size
		if f.Type.IsCode() {
			deps.Scripts = append(deps.Scripts, f)
		} else {
			deps.Media = append(deps.Media, f)
		}
	}

	for _, a := range r.cross {
		deps.CrossPackage = append(deps.CrossPackage, a)
	}
	sort.Slice(deps.CrossPackage, func(i, j int) bool {
		return deps.CrossPackage[i].ID < deps.CrossPackage[j].ID
	})

	return deps
}
