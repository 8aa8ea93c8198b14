package catalog

import (
	"errors"
	"fmt"
	"sync"
)

// PropertySchema describes a single parameter in a tool signature.
type PropertySchema struct {
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Items       *PropertySchema `json:"items,omitempty"`
	Enum        []string        `json:"enum,omitempty"`
}

// JSONSchema is the parameters object of a tool signature.
type JSONSchema struct {
	Type                 string                    `json:"type"`
	Properties           map[string]PropertySchema `json:"properties,omitempty"`
	Required             []string                  `json:"required"`
	AdditionalProperties bool                      `json:"additionalProperties"`
}

// ToolSignature is one catalog entry, keyed by Name.
type ToolSignature struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  JSONSchema `json:"parameters"`
}

var ErrInvalidSignature = errors.New("invalid tool signature")

// Validate checks the structural invariants: a non-empty name and every
// required entry present in properties.
func (s ToolSignature) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidSignature)
	}

	for _, req := range s.Parameters.Required {
		if _, ok := s.Parameters.Properties[req]; !ok {
			return fmt.Errorf("%w: required field %q not in properties", ErrInvalidSignature, req)
		}
	}

	return nil
}

// ParametersMap renders the schema as a generic JSON-schema object for
// runtimes that take map-shaped tool definitions.
func (s ToolSignature) ParametersMap() map[string]any {
	props := make(map[string]any, len(s.Parameters.Properties))

	for name, p := range s.Parameters.Properties {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}

		if p.Items != nil {
			prop["items"] = map[string]any{"type": p.Items.Type}
		}

		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}

		props[name] = prop
	}

	required := s.Parameters.Required
	if required == nil {
		required = []string{}
	}

	return map[string]any{
		"type":                 s.Parameters.Type,
		"properties":           props,
		"required":             required,
		"additionalProperties": s.Parameters.AdditionalProperties,
	}
}

// Catalog is the process-lifetime registry of known tool signatures.
// Entries are never deleted; Upsert preserves insertion order so the
// /tools listing stays stable (builtins first, then discovered, then
// provider-sourced). Safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]ToolSignature
	seeded bool
}

func New() *Catalog {
	return &Catalog{
		byName: make(map[string]ToolSignature),
	}
}

// SeedBuiltins populates the catalog with the fixed builtin table. Calling
// it more than once is a no-op.
func (c *Catalog) SeedBuiltins() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seeded {
		return
	}

	for _, sig := range builtinSignatures {
		if _, ok := c.byName[sig.Name]; !ok {
			c.order = append(c.order, sig.Name)
		}

		c.byName[sig.Name] = sig
	}

	c.seeded = true
}

// Upsert inserts a new entry or replaces an existing entry's description
// and parameters, keeping its position stable.
func (c *Catalog) Upsert(sig ToolSignature) error {
	if err := sig.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byName[sig.Name]; !ok {
		c.order = append(c.order, sig.Name)
	}

	c.byName[sig.Name] = sig

	return nil
}

func (c *Catalog) Find(name string) (ToolSignature, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sig, ok := c.byName[name]

	return sig, ok
}

// All returns every signature in insertion order.
func (c *Catalog) All() []ToolSignature {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sigs := make([]ToolSignature, 0, len(c.order))
	for _, name := range c.order {
		sigs = append(sigs, c.byName[name])
	}

	return sigs
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.order)
}
