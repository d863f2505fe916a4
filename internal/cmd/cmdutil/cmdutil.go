// Package cmdutil holds helpers shared by the factsys commands.
package cmdutil

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/groundstation/factsys"
	"github.com/groundstation/factsys/document"
	"github.com/groundstation/factsys/format/json"
	"github.com/groundstation/factsys/format/jsonc"
	"github.com/groundstation/factsys/format/toml"
	"github.com/groundstation/factsys/format/yaml"
	"github.com/groundstation/factsys/layer"
	"github.com/groundstation/factsys/source/fs"
)

// DocumentFor returns the document format matching the file extension of path.
func DocumentFor(path string) (document.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return yaml.New(), nil
	case ".json":
		return json.New(), nil
	case ".jsonc":
		return jsonc.New(), nil
	case ".toml":
		return toml.New(), nil
	}
	return nil, fmt.Errorf("unsupported file extension %q (want .yaml, .yml, .json, .jsonc or .toml)", ext)
}

// FileLayer returns a file layer for path, choosing the format by extension.
func FileLayer(name layer.Name, path string, opts ...fs.Option) (layer.Layer, error) {
	doc, err := DocumentFor(path)
	if err != nil {
		return nil, err
	}
	return layer.New(name, fs.New(path, opts...), doc), nil
}

// LoadRegistry reads a metadata document into a new registry.
func LoadRegistry(ctx context.Context, path string) (*factsys.MetaDataRegistry, error) {
	l, err := FileLayer("meta", path)
	if err != nil {
		return nil, err
	}
	reg := factsys.NewMetaDataRegistry()
	if err := reg.LoadMetaData(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to load metadata from %s: %w", path, err)
	}
	return reg, nil
}
