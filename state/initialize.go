package state

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/theGeekist/edgepress-sub001/packs"
	"github.com/theGeekist/edgepress-sub001/pipeline"
	"github.com/theGeekist/edgepress-sub001/registry"
	"github.com/theGeekist/edgepress-sub001/style"
)

func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
		Log:   zap.NewNop(),
	}
}

// Initialize builds pipeline with configured mapping packs, loads theme
// tokens and media manifest. Configuration and logger must be set.
func (e *LocalEnv) Initialize() error {
	if e.Cfg == nil {
		return errors.New("configuration is not loaded")
	}
	if e.Log == nil {
		e.Log = zap.NewNop()
	}

	opts := packs.Options{
		Namespace:      e.Cfg.Pipeline.Namespace,
		HeadingAnchors: e.Cfg.Pipeline.HeadingAnchors,
		SanitizeHTML:   e.Cfg.Pipeline.SanitizeHTML,
	}
	selected, err := packs.Select(opts, e.Cfg.Pipeline.Packs...)
	if err != nil {
		return err
	}

	imports := registry.NewImportRegistry(e.Log)
	renderers := registry.NewRendererRegistry(e.Log)
	if err := packs.RegisterPacks(imports, renderers, selected); err != nil {
		return fmt.Errorf("unable to register mapping packs: %w", err)
	}
	e.Pipeline = pipeline.New(imports, renderers, pipeline.Options{Namespace: opts.Namespace}, e.Log)

	if e.Theme, err = e.loadTheme(); err != nil {
		return err
	}
	if e.Media, err = e.loadMedia(); err != nil {
		return err
	}

	e.Log.Debug("Environment initialized",
		zap.Int("packs", len(selected)),
		zap.Int("transforms", imports.Len()),
		zap.Int("renderers", renderers.Len()),
		zap.Int("tokens", e.Theme.Len()))
	return nil
}

func (e *LocalEnv) loadTheme() (*style.Theme, error) {
	conf := e.Cfg.Theme
	theme := style.NewTheme(conf.Name, nil)

	if conf.StylesheetPath != "" {
		data, err := os.ReadFile(conf.StylesheetPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read theme stylesheet: %w", err)
		}
		e.Rpt.Store("theme/stylesheet.css", conf.StylesheetPath)
		theme = theme.Merge(style.ThemeFromStylesheet(conf.Name, data, e.Log))
	}
	// explicit tokens win over stylesheet custom properties
	if conf.TokensPath != "" {
		data, err := os.ReadFile(conf.TokensPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read theme tokens: %w", err)
		}
		tokens, err := style.LoadThemeYAML(data)
		if err != nil {
			return nil, fmt.Errorf("unable to load theme tokens from %s: %w", conf.TokensPath, err)
		}
		e.Rpt.Store("theme/tokens.yaml", conf.TokensPath)
		theme = theme.Merge(tokens)
	}
	return theme, nil
}

func (e *LocalEnv) loadMedia() (registry.MediaResolver, error) {
	path := e.Cfg.Media.ManifestPath
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read media manifest: %w", err)
	}
	manifest, err := registry.LoadMediaManifest(data)
	if err != nil {
		return nil, fmt.Errorf("unable to load media manifest from %s: %w", path, err)
	}
	e.Rpt.Store("media/manifest", path)
	e.Log.Debug("Media manifest loaded", zap.Int("assets", len(manifest)))
	return manifest, nil
}
