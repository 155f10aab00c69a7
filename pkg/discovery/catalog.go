package discovery

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Catalog tracks discovered tools and their metadata
type Catalog struct {
	tools map[string]ToolMetadata
	mu    sync.RWMutex
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		tools: make(map[string]ToolMetadata),
	}
}

// Register adds a tool to the catalog
func (c *Catalog) Register(meta ToolMetadata) error {
	if meta.Name == "" {
		return fmt.Errorf("tool name is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tools[meta.Name]; exists {
		return fmt.Errorf("tool %s already registered", meta.Name)
	}

	c.tools[meta.Name] = meta

	log.Debug().
		Str("tool", meta.Name).
		Str("category", string(meta.Category)).
		Msg("Tool registered")

	return nil
}

// Get retrieves a tool's metadata by name
func (c *Catalog) Get(name string) (ToolMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta, exists := c.tools[name]
	return meta, exists
}

// List returns all registered tools, name ascending
func (c *Catalog) List() []ToolMetadata {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := make([]ToolMetadata, 0, len(c.tools))
	for _, meta := range c.tools {
		all = append(all, meta)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})

	return all
}

// ListByCategory returns all tools in a category, name ascending
func (c *Catalog) ListByCategory(category Category) []ToolMetadata {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var matched []ToolMetadata
	for _, meta := range c.tools {
		if meta.Category == category {
			matched = append(matched, meta)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Name < matched[j].Name
	})

	return matched
}

// Tools returns the registered tool names. Together with Capabilities
// this satisfies the recommendation engine's provider interface.
func (c *Catalog) Tools() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.tools))
	for name := range c.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Capabilities returns a tool's capability names
func (c *Catalog) Capabilities(name string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	meta, exists := c.tools[name]
	if !exists {
		return nil, false
	}

	caps := make([]string, len(meta.Capabilities))
	for i, capability := range meta.Capabilities {
		caps[i] = string(capability)
	}

	return caps, true
}
