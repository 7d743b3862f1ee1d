package pipeline

import (
	types "AssetForge/pkg"
	"AssetForge/pkg/ffmpeg"
	"AssetForge/pkg/plugin"
	"AssetForge/pkg/plugin/media"
	"AssetForge/pkg/plugin/probe"
	"go.uber.org/zap"
)

// PluginCatalog holds every compiled-in plugin package. Loading is driven by
// the declared plugin list in config: only packages named there are handed
// to the registry, so an operator can disable a builtin without rebuilding.
type PluginCatalog struct {
	available map[string]plugin.Package
	logger    *zap.Logger
}

func NewPluginCatalog(enc ffmpeg.Encoder, workDir string, uploaderCfg types.UploaderConfig, uploadWorkers int, logger *zap.Logger) *PluginCatalog {
	packages := []plugin.Package{
		media.Package(enc, workDir, uploaderCfg, uploadWorkers, logger),
		probe.Package(enc, workDir, logger),
	}
	available := make(map[string]plugin.Package, len(packages))
	for _, pkg := range packages {
		available[pkg.Name] = pkg
	}
	return &PluginCatalog{available: available, logger: logger}
}

// Resolve maps the declared plugin list onto compiled-in packages. Disabled
// entries are skipped; names with no compiled-in counterpart are logged and
// ignored rather than failing startup.
func (c *PluginCatalog) Resolve(configs []types.PluginConfig) []plugin.Package {
	resolved := make([]plugin.Package, 0, len(configs))
	for _, pc := range configs {
		if !pc.Enabled {
			c.logger.Info("Plugin disabled by config", zap.String("name", pc.Name))
			continue
		}
		pkg, ok := c.available[pc.Name]
		if !ok {
			c.logger.Warn("Declared plugin is not compiled in", zap.String("name", pc.Name))
			continue
		}
		resolved = append(resolved, pkg)
	}
	return resolved
}

// Names lists every compiled-in package name.
func (c *PluginCatalog) Names() []string {
	names := make([]string, 0, len(c.available))
	for name := range c.available {
		names = append(names, name)
	}
	return names
}
