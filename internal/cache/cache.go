package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"credential-client/internal/model"
)

type Filter string

const (
	FilterAll    Filter = "all"
	FilterIssued Filter = "issued"
	FilterOwned  Filter = "owned"
)

func ParseFilter(raw string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterIssued:
		return FilterIssued, nil
	case FilterOwned:
		return FilterOwned, nil
	}
	return "", fmt.Errorf("unknown filter %q", raw)
}

type Snapshot struct {
	Issued []model.Credential `json:"issued"`
	Owned  []model.Credential `json:"owned"`
}

type Loader interface {
	Credentials(ctx context.Context, userID int64) (issued, owned []model.Credential, err error)
}

// Cache holds the issued and owned partitions for the current session.
// Every write replaces a partition slice; readers always get copies.
type Cache struct {
	mu     sync.RWMutex
	issued []model.Credential
	owned  []model.Credential
}

func New() *Cache {
	return &Cache{}
}

// Refresh fetches both partitions and swaps them in together. On error the
// previous contents stay untouched.
func (c *Cache) Refresh(ctx context.Context, loader Loader, userID int64) (Snapshot, error) {
	issued, owned, err := loader.Credentials(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	c.Replace(issued, owned)
	return c.Snapshot(), nil
}

func (c *Cache) Replace(issued, owned []model.Credential) {
	nextIssued := tagged(issued, model.PartitionIssued)
	nextOwned := tagged(owned, model.PartitionOwned)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued = nextIssued
	c.owned = nextOwned
}

func (c *Cache) AppendIssued(cred model.Credential) {
	cred.Partition = model.PartitionIssued

	c.mu.Lock()
	defer c.mu.Unlock()
	next := make([]model.Credential, 0, len(c.issued)+1)
	next = append(next, c.issued...)
	c.issued = append(next, cred)
}

func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued = nil
	c.owned = nil
}

func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Issued: append([]model.Credential{}, c.issued...),
		Owned:  append([]model.Credential{}, c.owned...),
	}
}

func (c *Cache) Counts() (issued, owned int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.issued), len(c.owned)
}

// Project selects partitions by filter and keeps entries whose rendered text
// contains term, case-insensitively. Order is preserved; issued entries come
// before owned ones.
func (c *Cache) Project(filter Filter, term string) []model.Credential {
	snap := c.Snapshot()

	var selected []model.Credential
	switch filter {
	case FilterIssued:
		selected = snap.Issued
	case FilterOwned:
		selected = snap.Owned
	default:
		selected = append(snap.Issued, snap.Owned...)
	}

	needle := strings.ToLower(term)
	if needle == "" {
		return selected
	}

	out := make([]model.Credential, 0, len(selected))
	for _, cred := range selected {
		if strings.Contains(strings.ToLower(Rendered(cred)), needle) {
			out = append(out, cred)
		}
	}
	return out
}

// Rendered is the visible text of a credential row: id, type, counterparty
// and status.
func Rendered(cred model.Credential) string {
	return strings.Join([]string{cred.Type, cred.Status, cred.ID, Counterparty(cred)}, " ")
}

// Counterparty prefers the display name and falls back to the raw identifier.
func Counterparty(cred model.Credential) string {
	if name := strings.TrimSpace(cred.CounterpartyName); name != "" {
		return name
	}
	return cred.CounterpartyIdentifier
}

func tagged(in []model.Credential, p model.Partition) []model.Credential {
	out := make([]model.Credential, len(in))
	for i, cred := range in {
		cred.Partition = p
		out[i] = cred
	}
	return out
}
