package okr

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator mints entity ids.
type IDGenerator interface {
	NewID() ID
}

// UUIDGenerator mints random UUIDv4 ids.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() ID {
	return ID(uuid.NewString())
}

// SequenceGenerator mints predictable ids such as "id-1", "id-2". It is
// meant for tests and fixtures.
type SequenceGenerator struct {
	Prefix string

	mu sync.Mutex
	n  int
}

func (g *SequenceGenerator) NewID() ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	prefix := g.Prefix
	if prefix == "" {
		prefix = "id"
	}
	return ID(fmt.Sprintf("%s-%d", prefix, g.n))
}

// FreshID draws from gen until it produces an id not already used in ds.
func FreshID(gen IDGenerator, ds Dataset) ID {
	used := make(map[ID]struct{})
	ds.walkIDs(func(id ID) { used[id] = struct{}{} })
	for {
		id := gen.NewID()
		if _, taken := used[id]; !taken && id != "" {
			return id
		}
	}
}
