package engine

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DomainMemory remembers which engine last succeeded for each domain.
// Entries expire after the configured TTL.
type DomainMemory struct {
	store *expirable.LRU[string, string]
}

// NewDomainMemory creates a DomainMemory holding up to size domains.
func NewDomainMemory(size int, ttl time.Duration) *DomainMemory {
	return &DomainMemory{store: expirable.NewLRU[string, string](size, nil, ttl)}
}

// Get returns the remembered engine name for a domain, or "" if not found / expired.
func (dm *DomainMemory) Get(domain string) string {
	if dm == nil {
		return ""
	}
	name, _ := dm.store.Get(domain)
	return name
}

// Set records which engine succeeded for a domain.
func (dm *DomainMemory) Set(domain, engineName string) {
	if dm == nil {
		return
	}
	dm.store.Add(domain, engineName)
}

// Delete removes the memory for a domain (e.g. after the remembered engine fails).
func (dm *DomainMemory) Delete(domain string) {
	if dm == nil {
		return
	}
	dm.store.Remove(domain)
}
