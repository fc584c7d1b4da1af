package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/agentpkg/assetgraph/pkg/catalog"
	"github.com/agentpkg/assetgraph/pkg/extract"
	"github.com/agentpkg/assetgraph/pkg/filetype"
	"github.com/agentpkg/assetgraph/pkg/normalize"
)

const sidecarKeyPrefix = "sidecar:"

// visit scans one file and recurses into everything it references. The
// caller has already marked file as visited.
func (r *Resolver) visit(ctx context.Context, rn *run, fr frame, file catalog.AssetFile, isRoot bool) {
	if rn.state.Terminal() || r.cancelled(ctx, rn) {
		return
	}
	r.log.V(2).Info("visiting", "package", fr.pkg.ID, "path", file.Path, "type", file.Type.String())

	switch fr.pkg.Kind {
	case catalog.KindDirectory:
		if isRoot {
			r.colocated(ctx, rn, fr, file)
		}
		return
	case catalog.KindSingleFile:
		// Nothing to depend on besides the file itself.
		return
	}

	t := file.Type
	if t.Has(filetype.ScanSidecar) {
		r.visitSidecar(ctx, rn, fr, file)
		if rn.state.Terminal() {
			return
		}
	}

	if t.Has(filetype.EmbeddedNames) && r.scanEmbedded {
		r.embedded(ctx, rn, fr, file, isRoot)
		if rn.state.Terminal() {
			return
		}
	}

	if !t.Has(filetype.ScanContent) {
		return
	}

	if file.Identifier == "" {
		if isRoot {
			rn.fail(fmt.Errorf("%s: %w", file.Path, ErrMissingIdentifier))
		}
		return
	}

	local, data, ok := r.read(ctx, rn, fr, file, isRoot)
	if !ok {
		return
	}

	if t.Has(filetype.Normalize) && !normalize.IsNormalized(data) {
		data, ok = r.normalize(ctx, rn, file, local)
		if !ok {
			return
		}
	}

	content := string(data)

	if t.Has(filetype.Includable) {
		for _, p := range extract.IncludePaths(content, file.Path) {
			f, cfr, found, err := r.findPath(ctx, fr, p)
			if r.cancelled(ctx, rn) {
				return
			}
			if err != nil {
				r.lookupFailed("include", p, err)
				continue
			}
			if !found {
				r.log.V(1).Info("include not found", "path", p, "from", file.Path)
				continue
			}
			if r.follow(ctx, rn, cfr, f) {
				return
			}
		}

		for _, name := range extract.NamedReferences(content) {
			fileName := extract.CodeFileName(name)
			f, cfr, found, err := r.findName(ctx, fr, fileName)
			if r.cancelled(ctx, rn) {
				return
			}
			if err != nil {
				r.lookupFailed("named reference", name, err)
				continue
			}
			if !found {
				r.log.V(1).Info("named reference not found", "name", name, "from", file.Path)
				continue
			}
			if r.follow(ctx, rn, cfr, f) {
				return
			}
		}
	}

	for _, id := range extract.Identifiers(content, t) {
		if id == file.Identifier || rn.visited.Has(id) {
			continue
		}
		f, cfr, found, err := r.resolve(ctx, rn, fr, id)
		if r.cancelled(ctx, rn) {
			return
		}
		if err != nil {
			r.lookupFailed("identifier", id, err)
			continue
		}
		if !found {
			rn.visited.Add(id)
			rn.unresolved = append(rn.unresolved, id)
			r.log.V(1).Info("unresolved identifier", "identifier", id, "from", file.Path)
			continue
		}
		if r.follow(ctx, rn, cfr, f) {
			return
		}
	}
}

// follow records f as a dependency and scans it. It reports whether the
// run reached a terminal state and the caller should stop.
func (r *Resolver) follow(ctx context.Context, rn *run, fr frame, f catalog.AssetFile) bool {
	if !rn.visited.Add(f.Key()) {
		return rn.state.Terminal()
	}
	rn.add(f)
	r.visit(ctx, rn, fr, f, false)
	return rn.state.Terminal()
}

// cancelled settles the run as Partial once ctx is done.
func (r *Resolver) cancelled(ctx context.Context, rn *run) bool {
	if ctx.Err() == nil {
		return false
	}
	rn.settle(catalog.Partial)
	return true
}

// lookupFailed logs a catalog query error. The reference is dropped and
// the walk goes on.
func (r *Resolver) lookupFailed(what, ref string, err error) {
	r.log.V(1).Info("lookup failed, dropping reference", "kind", what, "reference", ref, "error", err.Error())
}

// read materializes file and returns its local path and content. Failures
// on the root fail the run; other files are dropped.
func (r *Resolver) read(ctx context.Context, rn *run, fr frame, file catalog.AssetFile, isRoot bool) (string, []byte, bool) {
	local, err := r.materializer.Ensure(ctx, fr.pkg, &file, r.allowDownload)
	if r.cancelled(ctx, rn) {
		return "", nil, false
	}
	var data []byte
	if err == nil {
		data, err = os.ReadFile(local)
		if err != nil {
			err = fmt.Errorf("reading %s: %w", local, err)
		}
	}
	if err != nil {
		if isRoot {
			rn.fail(fmt.Errorf("materializing root %s: %w", file.Path, err))
		} else {
			r.log.V(1).Info("dependency unavailable, dropping", "package", fr.pkg.ID, "path", file.Path, "error", err.Error())
		}
		return "", nil, false
	}
	return local, data, true
}

// normalize repairs a copy of the materialized file in the run's scratch
// workspace. ok is false when nothing more can be extracted from the file.
func (r *Resolver) normalize(ctx context.Context, rn *run, file catalog.AssetFile, local string) ([]byte, bool) {
	repaired, err := r.repair(ctx, rn, file, local)
	if r.cancelled(ctx, rn) {
		return nil, false
	}
	if err != nil {
		r.log.V(1).Info("normalization failed", "path", file.Path, "error", err.Error())
	}
	if repaired != nil {
		return repaired, true
	}

	if file.Type.Has(filetype.ToleratedBinary) {
		r.log.V(1).Info("content not normalizable, skipping references", "path", file.Path)
		return nil, false
	}
	rn.settle(catalog.NotPossible)
	return nil, false
}

// repair returns the normalized content, or nil when the normalizer could
// not produce it even after stripping dangling references.
func (r *Resolver) repair(ctx context.Context, rn *run, file catalog.AssetFile, local string) ([]byte, error) {
	scratch, err := rn.ws.Import(local)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, opts := range []normalize.Options{{}, {StripDangling: true}} {
		ok, err := r.normalizer.Repair(ctx, scratch, opts)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		out, err := os.ReadFile(scratch)
		if err != nil {
			return nil, fmt.Errorf("reading normalized %s: %w", file.Path, err)
		}
		if normalize.IsNormalized(out) {
			return out, nil
		}
	}
	return nil, errors.Join(errs...)
}

// visitSidecar scans the metadata file next to file. It is tracked under
// its own key so it never hides the file it describes.
func (r *Resolver) visitSidecar(ctx context.Context, rn *run, fr frame, file catalog.AssetFile) {
	sc := file.Sidecar()
	if f, err := r.catalog.FindByPath(ctx, fr.pkg.ID, sc.Path); err == nil {
		sc.ID = f.ID
		sc.Size = f.Size
	} else if r.cancelled(ctx, rn) {
		return
	}
	if !rn.visited.Add(sidecarKeyPrefix + sc.Key()) {
		return
	}
	r.visit(ctx, rn, fr, sc, false)
}

// colocated resolves a flat directory package: every other file stored in
// the root file's directory is a dependency.
func (r *Resolver) colocated(ctx context.Context, rn *run, fr frame, root catalog.AssetFile) {
	files, err := r.catalog.FilesOf(ctx, fr.pkg.ID)
	if r.cancelled(ctx, rn) {
		return
	}
	if err != nil {
		rn.fail(fmt.Errorf("listing files of %d: %w", fr.pkg.ID, err))
		return
	}
	dir := root.Dir()
	for _, f := range files {
		if f.Key() == root.Key() || f.Path == root.Path || f.Dir() != dir {
			continue
		}
		if rn.visited.Add(f.Key()) {
			rn.add(f)
		}
	}
}

// embedded recovers texture references from a binary model by searching
// it for the names of the package's textures.
func (r *Resolver) embedded(ctx context.Context, rn *run, fr frame, file catalog.AssetFile, isRoot bool) {
	files, err := r.catalog.FilesOf(ctx, fr.pkg.ID)
	if r.cancelled(ctx, rn) {
		return
	}
	if err != nil {
		r.lookupFailed("embedded", file.Path, err)
		return
	}
	byName := make(map[string][]catalog.AssetFile)
	var names []string
	for _, f := range files {
		if f.Type != filetype.Texture || f.FileName == "" {
			continue
		}
		if _, ok := byName[f.FileName]; !ok {
			names = append(names, f.FileName)
		}
		byName[f.FileName] = append(byName[f.FileName], f)
	}
	if len(names) == 0 {
		return
	}

	local, err := r.materializer.Ensure(ctx, fr.pkg, &file, r.allowDownload)
	if r.cancelled(ctx, rn) {
		return
	}
	var data []byte
	if err == nil {
		data, err = os.ReadFile(local)
	}
	if err != nil {
		r.log.V(1).Info("embedded scan skipped", "path", file.Path, "root", isRoot, "error", err.Error())
		return
	}

	for _, name := range extract.Embedded(data, names) {
		for _, f := range byName[name] {
			if r.follow(ctx, rn, fr, f) {
				return
			}
		}
	}
}
