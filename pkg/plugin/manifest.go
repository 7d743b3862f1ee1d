package plugin

import (
	"encoding/base64"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"AssetForge/pkg/schema"
)

// PackagePrefix is the naming convention for installable plugin packages.
// The short plugin id is the package name with this prefix stripped.
const PackagePrefix = "assetforge-plugin-"

// ManifestFormat is the explicit discriminant a plugin author sets on their
// manifest. The format is declared, never inferred from the manifest's
// shape.
type ManifestFormat string

const (
	// FormatLegacy is the single-contribution layout: one provider under
	// one category.
	FormatLegacy ManifestFormat = "legacy"
	// FormatContributions is the multi-contribution layout.
	FormatContributions ManifestFormat = "contributions"
)

// Manifest describes what a plugin package offers. Exactly the fields for
// the declared Format are honored; the rest are ignored.
type Manifest struct {
	Format      ManifestFormat `json:"format"`
	DisplayName string         `json:"display_name,omitempty"`
	Description string         `json:"description,omitempty"`
	Icon        string         `json:"icon,omitempty"`

	// Legacy layout.
	Type     Category      `json:"type,omitempty"`
	Provider *Contribution `json:"provider,omitempty"`

	// Multi-contribution layout.
	Contributes *Contributions `json:"contributes,omitempty"`
}

// Contributions groups a package's contributions by category, plus an
// optional package-level settings schema.
type Contributions struct {
	Settings    schema.Definition        `json:"settings,omitempty"`
	Storage     map[string]*Contribution `json:"storage,omitempty"`
	Classifier  map[string]*Contribution `json:"classifier,omitempty"`
	Transformer map[string]*Contribution `json:"transformer,omitempty"`
	Vector      map[string]*Contribution `json:"vector,omitempty"`
}

// Contribution is one capability of a plugin package: declarative metadata
// plus a constructor for the implementing value. Contributions are immutable
// once loaded.
type Contribution struct {
	DisplayName  string            `json:"display_name"`
	Description  string            `json:"description,omitempty"`
	Icon         string            `json:"icon,omitempty"`
	MimeTypes    []string          `json:"mime_types,omitempty"`
	MaxInputSize int64             `json:"max_input_size,omitempty"`
	InputSchema  schema.Definition `json:"input_schema,omitempty"`
	Examples     []Example         `json:"examples,omitempty"`

	// New constructs the implementing value; the result must satisfy the
	// category's contract. Checked on first instantiation.
	New func() interface{} `json:"-"`
}

// Example is a template input shown to users in the contribution's form.
type Example struct {
	Name  string        `json:"name"`
	Input schema.Values `json:"input"`
}

// Package is an installable unit: a conventionally named package and its
// manifest, registered through configuration.
type Package struct {
	Name     string
	Manifest Manifest
}

// DerivePluginID strips the package naming prefix to produce the short
// plugin id.
func DerivePluginID(packageName string) string {
	return strings.TrimPrefix(packageName, PackagePrefix)
}

func (m Manifest) validate() error {
	switch m.Format {
	case FormatLegacy:
		if !m.Type.Valid() {
			return errors.Errorf("legacy manifest has missing or unknown type %q", m.Type)
		}
		if m.Provider == nil {
			return errors.New("legacy manifest is missing its provider")
		}
	case FormatContributions:
		if m.Contributes == nil {
			return errors.New("contributions manifest has an empty contributes block")
		}
	default:
		return errors.Errorf("manifest has missing or unknown format %q", m.Format)
	}
	return nil
}

// resolveImage resolves a manifest image reference. Remote URLs and inline
// data URIs pass through; anything else is treated as a local file and
// embedded as a data URI.
func resolveImage(ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	if strings.HasPrefix(ref, "data:") {
		return ref, nil
	}
	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return ref, nil
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return "", errors.Wrapf(err, "read image %s", ref)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(ref))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
