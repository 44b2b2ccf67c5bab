package config

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed collections/*.json
var builtinCollections embed.FS

// Band names every searchable collection must map to an asset.
var RequiredBands = []string{"red", "green", "blue", "scl"}

// CollectionConfig describes a searchable STAC collection and how its item
// assets map onto the bands the pipeline reads.
type CollectionConfig struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	License     string `json:"license,omitempty" yaml:"license,omitempty"`
	// Bands maps band names (red, green, blue, scl) to item asset keys.
	Bands  map[string]string `json:"bands" yaml:"bands"`
	Extent Extent            `json:"extent" yaml:"extent"`
}

// Extent defines the spatial and temporal extent of a collection.
type Extent struct {
	Spatial  SpatialExtent  `json:"spatial" yaml:"spatial"`
	Temporal TemporalExtent `json:"temporal" yaml:"temporal"`
}

// SpatialExtent defines the bounding boxes for a collection.
type SpatialExtent struct {
	BBox [][]float64 `json:"bbox" yaml:"bbox"`
}

// TemporalExtent defines the time intervals for a collection.
type TemporalExtent struct {
	Interval [][]any `json:"interval" yaml:"interval"`
}

// CollectionRegistry holds all loaded collection configurations indexed by ID.
// It is the allow-list of collections a query may name.
type CollectionRegistry struct {
	collections map[string]*CollectionConfig
}

// NewCollectionRegistry creates a new empty collection registry.
func NewCollectionRegistry() *CollectionRegistry {
	return &CollectionRegistry{
		collections: make(map[string]*CollectionConfig),
	}
}

// DefaultCollections returns the registry of built-in collection definitions.
func DefaultCollections() (*CollectionRegistry, error) {
	registry := NewCollectionRegistry()

	err := fs.WalkDir(builtinCollections, "collections", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := builtinCollections.ReadFile(path)
		if err != nil {
			return err
		}
		collection, err := parseCollection(path, data)
		if err != nil {
			return fmt.Errorf("built-in collection %q: %w", path, err)
		}
		return registry.Add(collection)
	})
	if err != nil {
		return nil, err
	}

	return registry, nil
}

// LoadCollections loads collection definitions from JSON or YAML files in the
// specified directory.
func LoadCollections(collectionsDir string) (*CollectionRegistry, error) {
	registry := NewCollectionRegistry()

	info, err := os.Stat(collectionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to access collections directory %q: %w", collectionsDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("collections path %q is not a directory", collectionsDir)
	}

	entries, err := os.ReadDir(collectionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read collections directory %q: %w", collectionsDir, err)
	}

	loadedCount := 0
	for _, entry := range entries {
		if entry.IsDir() || !isCollectionFile(entry.Name()) {
			continue
		}

		filePath := filepath.Join(collectionsDir, entry.Name())
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", filePath, err)
		}

		collection, err := parseCollection(filePath, data)
		if err != nil {
			return nil, fmt.Errorf("failed to load collection from %q: %w", filePath, err)
		}

		if err := registry.Add(collection); err != nil {
			return nil, fmt.Errorf("failed to add collection from %q: %w", filePath, err)
		}

		loadedCount++
	}

	if loadedCount == 0 {
		return nil, fmt.Errorf("no collection files found in %q", collectionsDir)
	}

	return registry, nil
}

func isCollectionFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// parseCollection decodes a collection file, choosing the decoder by extension.
func parseCollection(name string, data []byte) (*CollectionConfig, error) {
	var collection CollectionConfig

	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &collection); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &collection); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	}

	if err := validateCollection(&collection); err != nil {
		return nil, fmt.Errorf("invalid collection configuration: %w", err)
	}

	return &collection, nil
}

// validateCollection checks that a collection configuration is valid.
func validateCollection(c *CollectionConfig) error {
	if c.ID == "" {
		return fmt.Errorf("collection ID is required")
	}

	if c.Title == "" {
		return fmt.Errorf("collection title is required")
	}

	for _, band := range RequiredBands {
		if strings.TrimSpace(c.Bands[band]) == "" {
			return fmt.Errorf("collection must map band %q to an asset", band)
		}
	}

	for i, bbox := range c.Extent.Spatial.BBox {
		if len(bbox) != 4 && len(bbox) != 6 {
			return fmt.Errorf("bbox[%d] must have 4 or 6 values, got %d", i, len(bbox))
		}
	}

	for i, interval := range c.Extent.Temporal.Interval {
		if len(interval) != 2 {
			return fmt.Errorf("temporal interval[%d] must have exactly 2 values, got %d", i, len(interval))
		}
	}

	return nil
}

// Add registers a collection in the registry.
// Returns an error if a collection with the same ID already exists.
func (r *CollectionRegistry) Add(collection *CollectionConfig) error {
	if collection == nil {
		return fmt.Errorf("cannot add nil collection")
	}

	if _, exists := r.collections[collection.ID]; exists {
		return fmt.Errorf("collection with ID %q already exists", collection.ID)
	}

	r.collections[collection.ID] = collection
	return nil
}

// Get retrieves a collection by ID.
// Returns nil if the collection does not exist.
func (r *CollectionRegistry) Get(id string) *CollectionConfig {
	return r.collections[id]
}

// Has checks if a collection with the given ID exists in the registry.
func (r *CollectionRegistry) Has(id string) bool {
	_, exists := r.collections[id]
	return exists
}

// All returns all collections in the registry ordered by ID.
func (r *CollectionRegistry) All() []*CollectionConfig {
	collections := make([]*CollectionConfig, 0, len(r.collections))
	for _, collection := range r.collections {
		collections = append(collections, collection)
	}
	sort.Slice(collections, func(i, j int) bool {
		return collections[i].ID < collections[j].ID
	})
	return collections
}

// IDs returns all collection IDs in the registry, sorted.
func (r *CollectionRegistry) IDs() []string {
	ids := make([]string, 0, len(r.collections))
	for id := range r.collections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of collections in the registry.
func (r *CollectionRegistry) Count() int {
	return len(r.collections)
}

// AssetKeys returns the band → asset key mapping for a collection, or nil if
// the collection is unknown.
func (r *CollectionRegistry) AssetKeys(collectionID string) map[string]string {
	collection := r.Get(collectionID)
	if collection == nil {
		return nil
	}
	return collection.Bands
}
