// Package ident translates entity identifiers between the orchestration
// framework and the traffic engine.
package ident

import (
	"fmt"
	"strings"
	"sync"
)

// Transformer maps identifiers in both directions. Implementations may memoize
// and must drop that state on Reset.
type Transformer interface {
	ToExternal(internalID string) string
	FromExternal(externalID string) string
	Reset()
}

// Identity passes identifiers through unchanged.
type Identity struct{}

func (Identity) ToExternal(id string) string   { return id }
func (Identity) FromExternal(id string) string { return id }
func (Identity) Reset()                        {}

// ConformPrefix is the internal vehicle name prefix produced by Conform.
const ConformPrefix = "veh_"

// Conform names every engine vehicle veh_<n> in order of first appearance.
// Names created by the framework are passed through to the engine verbatim
// unless the engine already reports a vehicle by that name, in which case the
// framework vehicle gets a <name>.<n> suffix on the engine side.
type Conform struct {
	mu         sync.Mutex
	next       int
	toInternal map[string]string
	toExternal map[string]string
}

func NewConform() *Conform {
	c := &Conform{}
	c.Reset()
	return c
}

func (c *Conform) FromExternal(externalID string) string {
	if externalID == "" {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.toInternal[externalID]; ok {
		return id
	}
	id := fmt.Sprintf("%s%d", ConformPrefix, c.next)
	c.next++
	c.bind(id, externalID)
	return id
}

func (c *Conform) ToExternal(internalID string) string {
	if internalID == "" {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.toExternal[internalID]; ok {
		return id
	}
	// vehicles created by the framework keep their name on the engine side
	// unless the engine already uses it for another vehicle
	externalID := internalID
	for n := 1; ; n++ {
		if _, taken := c.toInternal[externalID]; !taken {
			break
		}
		externalID = fmt.Sprintf("%s.%d", internalID, n)
	}
	c.bind(internalID, externalID)
	if strings.HasPrefix(internalID, ConformPrefix) {
		var n int
		if _, err := fmt.Sscanf(internalID[len(ConformPrefix):], "%d", &n); err == nil && n >= c.next {
			c.next = n + 1
		}
	}
	return externalID
}

func (c *Conform) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = 0
	c.toInternal = make(map[string]string)
	c.toExternal = make(map[string]string)
}

func (c *Conform) bind(internalID, externalID string) {
	c.toInternal[externalID] = internalID
	c.toExternal[internalID] = externalID
}

// New returns the transformer registered under name.
func New(name string) (Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "identity":
		return Identity{}, nil
	case "conform":
		return NewConform(), nil
	default:
		return nil, fmt.Errorf("ident: unknown transformer %q", name)
	}
}
