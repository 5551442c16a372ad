package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// MediaAsset is resolved media item.
type MediaAsset struct {
	URL    string `json:"url" yaml:"url"`
	Alt    string `json:"alt,omitempty" yaml:"alt,omitempty"`
	Width  int    `json:"width,omitempty" yaml:"width,omitempty"`
	Height int    `json:"height,omitempty" yaml:"height,omitempty"`
}

// MediaResolver looks media assets up by id.
type MediaResolver interface {
	ResolveMedia(id string) (MediaAsset, bool)
}

// MediaResolverFunc adapts function to MediaResolver.
type MediaResolverFunc func(id string) (MediaAsset, bool)

func (f MediaResolverFunc) ResolveMedia(id string) (MediaAsset, bool) {
	return f(id)
}

// MediaManifest is static id => asset map, usually loaded from file.
type MediaManifest map[string]MediaAsset

func (m MediaManifest) ResolveMedia(id string) (MediaAsset, bool) {
	a, ok := m[id]
	return a, ok && a.URL != ""
}

// LoadMediaManifest reads manifest in YAML (or JSON) form:
//
//	"42":
//	  url: https://cdn.example/hero.jpg
//	  alt: hero alt
func LoadMediaManifest(data []byte) (MediaManifest, error) {
	var raw map[string]MediaAsset

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unable to decode media manifest: %w", err)
	}

	m := make(MediaManifest, len(raw))
	for id, a := range raw {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("media manifest has entry without id")
		}
		if a.URL == "" {
			return nil, fmt.Errorf("media manifest entry %q has no url", id)
		}
		m[id] = a
	}
	return m, nil
}
