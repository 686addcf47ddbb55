// Package config provides the YAML declaration source for knit.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.DeclarationSource = (*Loader)(nil)

// ManifestFinder lists the manifest files inside a directory.
type ManifestFinder interface {
	ManifestFiles(root string) []string
}

// Loader implements ports.DeclarationSource using YAML manifests.
type Loader struct {
	Logger   ports.Logger
	Finder   ManifestFinder
	Resolver ports.InputResolver
}

// NewLoader creates a new Loader.
func NewLoader(logger ports.Logger, finder ManifestFinder, resolver ports.InputResolver) *Loader {
	return &Loader{Logger: logger, Finder: finder, Resolver: resolver}
}

// Load reads the unit described by the manifest at path.
// A directory is searched upwards for a knit.yaml.
func (l *Loader) Load(ctx context.Context, path string) (*domain.Unit, error) {
	manifestPath, err := l.findManifest(path)
	if err != nil {
		return nil, err
	}
	root := filepath.Dir(manifestPath)

	var manifest Manifest
	if err := readAndUnmarshalYAML(manifestPath, &manifest); err != nil {
		return nil, err
	}

	includes, err := l.resolveIncludes(root, manifest.Include)
	if err != nil {
		return nil, err
	}

	b := newUnitBuilder(root)
	if err := b.addManifest(manifestPath, &manifest); err != nil {
		return nil, err
	}

	for _, inc := range includes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var mod ModuleDTO
		if err := readAndUnmarshalYAML(inc, &mod); err != nil {
			return nil, err
		}
		if err := b.addModule(inc, &mod); err != nil {
			return nil, err
		}
	}

	unit := b.unit
	unit.Sources = append([]string{manifestPath}, includes...)
	l.Logger.Debug(fmt.Sprintf("loaded unit %s: %d modules, %d declarations, %d call sites",
		unit.Name, len(unit.Modules), len(unit.Declarations), len(unit.CallSites)))
	return unit, nil
}

func (l *Loader) findManifest(path string) (string, error) {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to resolve manifest path"), "path", path)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to stat manifest"), "path", abs)
	}
	if !info.IsDir() {
		return abs, nil
	}

	for dir := abs; ; {
		candidate := filepath.Join(dir, domain.DefaultManifest)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", zerr.With(domain.ErrManifestNotFound, "cwd", abs)
		}
		dir = parent
	}
}

// resolveIncludes expands include patterns; matched directories contribute every YAML file below them.
func (l *Loader) resolveIncludes(root string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	matches, err := l.Resolver.ResolveInputs(patterns, root)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(matches))
	var files []string
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			files = append(files, p)
		}
	}

	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to stat include"), "path", match)
		}
		if !info.IsDir() {
			add(match)
			continue
		}
		found := l.Finder.ManifestFiles(match)
		if len(found) == 0 {
			l.Logger.Warn(fmt.Sprintf("include %s contains no manifest files", match))
		}
		for _, f := range found {
			add(f)
		}
	}
	return files, nil
}

func readAndUnmarshalYAML(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to read manifest"), "path", path)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrInvalidManifest.Error()), "path", path)
	}
	return nil
}

type unitBuilder struct {
	root  string
	unit  *domain.Unit
	order int
}

func newUnitBuilder(root string) *unitBuilder {
	return &unitBuilder{
		root: root,
		unit: &domain.Unit{Types: domain.NewTypeTable()},
	}
}

func (b *unitBuilder) relative(path string) string {
	if rel, err := filepath.Rel(b.root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

func invalid(file, reason string) error {
	return zerr.With(zerr.Wrap(zerr.New(reason), domain.ErrInvalidManifest.Error()), "path", file)
}

func (b *unitBuilder) addManifest(path string, m *Manifest) error {
	own := m.Module
	if own == "" && len(m.Modules) == 1 {
		own = m.Modules[0].Name
	}
	if own == "" {
		return invalid(path, "the unit's module is not named")
	}
	b.unit.Module = own
	b.unit.Name = m.Unit
	if b.unit.Name == "" {
		b.unit.Name = own
	}

	if err := b.declareClasses(path, m.Classes); err != nil {
		return err
	}

	modules := m.Modules
	ownIdx := -1
	for i := range modules {
		if modules[i].Name == own {
			ownIdx = i
		}
	}
	if ownIdx < 0 {
		modules = append(modules, ModuleDTO{Name: own})
		ownIdx = len(modules) - 1
	}
	modules[ownIdx].Declarations = append(modules[ownIdx].Declarations, m.Declarations...)

	for i := range modules {
		if err := b.addModule(path, &modules[i]); err != nil {
			return err
		}
	}

	for _, s := range m.Scopes {
		scope, err := b.scope(path, s)
		if err != nil {
			return err
		}
		b.unit.Scopes = append(b.unit.Scopes, scope)
	}

	for i, s := range m.CallSites {
		site, err := b.site(path, i, s)
		if err != nil {
			return err
		}
		b.unit.CallSites = append(b.unit.CallSites, site)
	}
	return nil
}

func (b *unitBuilder) addModule(path string, dto *ModuleDTO) error {
	if dto.Name == "" {
		return invalid(path, "module without a name")
	}

	mod := domain.Module{
		Name:       dto.Name,
		Version:    dto.Version,
		Predefined: dto.Predefined,
	}
	for _, r := range dto.Requires {
		if r.Module == "" {
			return zerr.With(invalid(path, "requirement without a module"), "module", dto.Name)
		}
		mod.Requires = append(mod.Requires, domain.Requirement{Module: r.Module, Constraint: r.Constraint})
	}
	b.unit.Modules = append(b.unit.Modules, mod)

	if err := b.declareClasses(path, dto.Classes); err != nil {
		return err
	}

	for i := range dto.Declarations {
		decl, err := b.declaration(path, dto.Name, &dto.Declarations[i])
		if err != nil {
			return zerr.With(zerr.With(err, "module", dto.Name), "declaration", dto.Declarations[i].Name)
		}
		b.unit.Declarations = append(b.unit.Declarations, decl)
	}
	return nil
}

func (b *unitBuilder) declareClasses(path string, classes []ClassDTO) error {
	tt := b.unit.Types
	for _, c := range classes {
		if c.Name == "" {
			return invalid(path, "class without a name")
		}
		params := make(map[string]domain.Classifier, len(c.Params))
		for _, p := range c.Params {
			params[p] = domain.TypeParamOf(c.Name, p)
		}
		supertypes := make([]*domain.Type, 0, len(c.Supertypes))
		for _, expr := range c.Supertypes {
			st, err := ParseType(tt, expr, params)
			if err != nil {
				return zerr.With(zerr.With(err, "path", path), "class", c.Name)
			}
			supertypes = append(supertypes, st)
		}
		tt.DeclareClass(c.Name, c.Params, supertypes...)
	}
	return nil
}

func (b *unitBuilder) declaration(path, module string, dto *DeclDTO) (domain.Declaration, error) {
	tt := b.unit.Types
	if dto.Name == "" {
		return domain.Declaration{}, invalid(path, "declaration without a name")
	}

	kind := domain.CallableFunction
	if dto.Kind != "" {
		k, ok := domain.ParseCallableKind(strings.ToLower(dto.Kind))
		if !ok {
			return domain.Declaration{}, invalid(path, "unknown declaration kind "+dto.Kind)
		}
		kind = k
	}

	params := make(map[string]domain.Classifier, len(dto.TypeParams))
	for _, tp := range dto.TypeParams {
		params[tp.Name] = domain.TypeParamOf(dto.Name, tp.Name)
	}

	decl := domain.Declaration{
		Name:     dto.Name,
		Kind:     kind,
		Scope:    dto.Scope,
		Location: b.location(path, module, dto.File, dto.Line),
	}
	b.order++

	for _, tp := range dto.TypeParams {
		param := domain.TypeParam{Classifier: params[tp.Name]}
		for _, expr := range tp.Bounds {
			bound, err := ParseType(tt, expr, params)
			if err != nil {
				return decl, err
			}
			param.Bounds = append(param.Bounds, bound)
		}
		decl.TypeParams = append(decl.TypeParams, param)
	}

	if dto.Type != "" {
		t, err := ParseType(tt, dto.Type, params)
		if err != nil {
			return decl, err
		}
		decl.Type = t
	}

	for _, raw := range dto.Annotations {
		ann, err := parseAnnotation(tt, raw, params)
		if err != nil {
			return decl, err
		}
		decl.Annotations = append(decl.Annotations, ann)
	}

	for _, p := range dto.Params {
		param := domain.DeclaredParameter{Name: p.Name, HasDefault: p.Default}
		if p.Type != "" {
			t, err := ParseType(tt, p.Type, params)
			if err != nil {
				return decl, zerr.With(err, "parameter", p.Name)
			}
			param.Type = t
		}
		for _, raw := range p.Annotations {
			ann, err := parseAnnotation(tt, raw, params)
			if err != nil {
				return decl, zerr.With(err, "parameter", p.Name)
			}
			param.Annotations = append(param.Annotations, ann)
		}
		decl.Parameters = append(decl.Parameters, param)
	}
	return decl, nil
}

func (b *unitBuilder) location(path, module, file string, line int) domain.Location {
	if file == "" {
		file = b.relative(path)
	}
	return domain.Location{
		Module: domain.NewInternedString(module),
		File:   domain.NewInternedString(file),
		Line:   line,
		Order:  b.order,
	}
}

func (b *unitBuilder) scope(path string, dto ScopeDTO) (domain.ScopeDecl, error) {
	if dto.ID == "" {
		return domain.ScopeDecl{}, invalid(path, "scope without an id")
	}
	scope := domain.ScopeDecl{ID: dto.ID, Parent: dto.Parent}
	if len(dto.Substitution) == 0 {
		return scope, nil
	}

	scope.Substitution = make(domain.Substitution, len(dto.Substitution))
	for key, expr := range dto.Substitution {
		owner, name, ok := strings.Cut(key, "#")
		if !ok || owner == "" || name == "" {
			return scope, zerr.With(invalid(path, "substitution key must be owner#param"), "key", key)
		}
		t, err := ParseType(b.unit.Types, expr, nil)
		if err != nil {
			return scope, zerr.With(err, "scope", dto.ID)
		}
		scope.Substitution[domain.TypeParamOf(owner, name)] = t
	}
	return scope, nil
}

func (b *unitBuilder) site(path string, i int, dto SiteDTO) (domain.CallSite, error) {
	if dto.Type == "" {
		return domain.CallSite{}, zerr.With(invalid(path, "call site without a type"), "site", dto.ID)
	}
	t, err := ParseType(b.unit.Types, dto.Type, nil)
	if err != nil {
		return domain.CallSite{}, zerr.With(err, "site", dto.ID)
	}

	loc := b.location(path, b.unit.Module, dto.File, dto.Line)
	id := dto.ID
	switch {
	case id != "":
	case dto.Line > 0:
		id = loc.String()
	default:
		id = fmt.Sprintf("site-%d", i+1)
	}

	return domain.CallSite{
		ID:        id,
		Requested: t,
		Scope:     dto.Scope,
		Location:  loc,
	}, nil
}
