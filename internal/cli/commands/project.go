package commands

import (
	"fmt"

	"github.com/weftwork/weft/constraint"
	"github.com/weftwork/weft/internal/cli/config"
	"github.com/weftwork/weft/loader"
	"github.com/weftwork/weft/model"
	"github.com/weftwork/weft/registry"
)

// newCatalog builds the standard type catalog: a fresh registry with the
// built-in definitions and constraints installed and frozen.
func newCatalog() (*registry.Registry, error) {
	reg := registry.NewRegistry(nil)
	if err := model.Install(reg, constraint.NewEngine(logger())); err != nil {
		return nil, err
	}
	return reg, nil
}

// projectSources expands the config's source entries into document paths.
func projectSources(cfg *config.Config) ([]string, error) {
	files, err := config.ExpandSources(cfg.Sources, cfg.Watch.Patterns)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no metadata documents found (sources: %v)", cfg.Sources)
	}
	return files, nil
}

// loaderOptions maps the project config onto loader options.
func loaderOptions(cfg *config.Config, name string) loader.Options {
	return loader.Options{
		Name:           name,
		Lenient:        !cfg.Strict,
		InferAttrTypes: cfg.InferTypes,
		DefaultPackage: cfg.Package,
		Logger:         logger(),
	}
}

// loadProject loads the config's sources against reg and returns the
// finished loader together with the document paths it read.
func loadProject(reg *registry.Registry, cfg *config.Config, name string) (*loader.Loader, []string, error) {
	files, err := projectSources(cfg)
	if err != nil {
		return nil, nil, err
	}
	ld, err := loader.New(reg, loaderOptions(cfg, name))
	if err != nil {
		return nil, nil, err
	}
	sources := make([]loader.Source, 0, len(files))
	for _, f := range files {
		sources = append(sources, loader.FileSource(f))
	}
	if err := ld.Init(sources...); err != nil {
		ld.Destroy()
		return nil, nil, err
	}
	return ld, files, nil
}
