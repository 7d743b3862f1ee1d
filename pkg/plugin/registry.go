package plugin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bluele/gcache"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"AssetForge/pkg/schema"
)

const lookupCacheSize = 256

// Entry is one loaded contribution: metadata resolved at load time plus a
// lazily built implementation instance. Entries are process-wide read-mostly
// state; the registry is populated before it is exposed to any caller.
type Entry struct {
	PluginID       string
	ContributionID string
	Category       Category
	DisplayName    string
	Description    string
	Icon           string
	MimeTypes      []string
	MaxInputSize   int64
	InputSchema    schema.Definition
	Settings       schema.Definition

	contribution *Contribution

	once     sync.Once
	instance interface{}
	instErr  error
}

// ID is the lookup key: "pluginId.contributionId" for multi-contribution
// packages, the bare plugin id for legacy ones.
func (e *Entry) ID() string {
	if e.ContributionID == "" {
		return e.PluginID
	}
	return e.PluginID + "." + e.ContributionID
}

// Instance builds (once) and returns the implementing value.
func (e *Entry) Instance() (interface{}, error) {
	e.once.Do(func() {
		if e.contribution.New == nil {
			e.instErr = errors.Errorf("contribution %s has no constructor", e.ID())
			return
		}
		e.instance = e.contribution.New()
	})
	return e.instance, e.instErr
}

// Transformer returns the contribution as a Transformer.
func (e *Entry) Transformer() (Transformer, error) {
	v, err := e.Instance()
	if err != nil {
		return nil, err
	}
	t, ok := v.(Transformer)
	if !ok {
		return nil, errors.Errorf("contribution %s does not implement the transformer contract", e.ID())
	}
	return t, nil
}

// Classifier returns the contribution as a Classifier.
func (e *Entry) Classifier() (Classifier, error) {
	v, err := e.Instance()
	if err != nil {
		return nil, err
	}
	c, ok := v.(Classifier)
	if !ok {
		return nil, errors.Errorf("contribution %s does not implement the classifier contract", e.ID())
	}
	return c, nil
}

// Registry is the process-wide catalog of loaded plugin contributions,
// keyed by category and id.
type Registry struct {
	mu      sync.RWMutex
	entries map[Category]map[string]*Entry
	lookups gcache.Cache
	logger  *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		entries: make(map[Category]map[string]*Entry),
		lookups: gcache.New(lookupCacheSize).LRU().Build(),
		logger:  logger,
	}
}

// DiscoverAll loads every declared package. A failure to load one package is
// logged and skipped; it never aborts discovery of the remaining packages.
func (r *Registry) DiscoverAll(pkgs []Package) {
	for _, pkg := range pkgs {
		if err := r.Load(pkg); err != nil {
			r.logger.Warn("skipping plugin package",
				zap.String("package", pkg.Name),
				zap.Error(err))
			continue
		}
		r.logger.Info("loaded plugin package", zap.String("package", pkg.Name))
	}
}

// Load validates a package manifest and registers its contributions.
// A malformed manifest excludes the whole package but is not process-fatal.
func (r *Registry) Load(pkg Package) error {
	if pkg.Name == "" {
		return errors.New("plugin package has no name")
	}
	manifest := pkg.Manifest
	if err := manifest.validate(); err != nil {
		return errors.Wrapf(err, "load %s", pkg.Name)
	}

	pluginID := DerivePluginID(pkg.Name)
	icon := r.resolveIcon(pkg.Name, manifest.Icon)

	var entries []*Entry
	switch manifest.Format {
	case FormatLegacy:
		entries = append(entries, newEntry(pluginID, "", manifest.Type, manifest.Provider, icon, nil))
	case FormatContributions:
		c := manifest.Contributes
		for _, group := range []struct {
			category Category
			items    map[string]*Contribution
		}{
			{CategoryStorage, c.Storage},
			{CategoryClassifier, c.Classifier},
			{CategoryTransformer, c.Transformer},
			{CategoryVector, c.Vector},
		} {
			for id, contribution := range group.items {
				if contribution == nil {
					return errors.Errorf("load %s: contribution %q is empty", pkg.Name, id)
				}
				entry := newEntry(pluginID, id, group.category, contribution, icon, c.Settings)
				if contribution.Icon != "" {
					entry.Icon = r.resolveIcon(pkg.Name, contribution.Icon)
				}
				entries = append(entries, entry)
			}
		}
		if len(entries) == 0 {
			return errors.Errorf("load %s: manifest contributes nothing", pkg.Name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range entries {
		byID := r.entries[entry.Category]
		if byID == nil {
			byID = make(map[string]*Entry)
			r.entries[entry.Category] = byID
		}
		if _, exists := byID[entry.ID()]; exists {
			return errors.Errorf("load %s: contribution %s already registered", pkg.Name, entry.ID())
		}
		byID[entry.ID()] = entry
	}
	return nil
}

func newEntry(pluginID, contributionID string, category Category, c *Contribution, icon string, settings schema.Definition) *Entry {
	return &Entry{
		PluginID:       pluginID,
		ContributionID: contributionID,
		Category:       category,
		DisplayName:    c.DisplayName,
		Description:    c.Description,
		Icon:           icon,
		MimeTypes:      c.MimeTypes,
		MaxInputSize:   c.MaxInputSize,
		InputSchema:    c.InputSchema,
		Settings:       settings,
		contribution:   c,
	}
}

// resolveIcon degrades to "no image" when a reference cannot be resolved.
func (r *Registry) resolveIcon(packageName, ref string) string {
	icon, err := resolveImage(ref)
	if err != nil {
		r.logger.Warn("could not resolve plugin image",
			zap.String("package", packageName),
			zap.String("ref", ref),
			zap.Error(err))
		return ""
	}
	return icon
}

// ListPlugins returns every entry in a category, sorted by id. An unknown or
// empty category yields an empty slice.
func (r *Registry) ListPlugins(category Category) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byID := r.entries[category]
	out := make([]*Entry, 0, len(byID))
	for _, entry := range byID {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// GetPluginByID returns the entry for (category, id), or nil when absent.
// Absence is a normal condition checked by every caller. Lookups are
// idempotent: repeated calls return the same entry instance, served from a
// capacity-bounded cache.
func (r *Registry) GetPluginByID(category Category, id string) *Entry {
	key := fmt.Sprintf("%s/%s", category, id)
	if cached, err := r.lookups.Get(key); err == nil {
		return cached.(*Entry)
	}

	r.mu.RLock()
	entry := r.entries[category][id]
	r.mu.RUnlock()

	if entry != nil {
		_ = r.lookups.Set(key, entry)
	}
	return entry
}
