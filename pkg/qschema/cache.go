package qschema

import (
	"context"
	"sync"

	"github.com/quatton/qgen/pkg/qsdk"
	"github.com/quatton/qgen/pkg/qsdk/qerr"
)

// Source fetches version payloads. *qsdk.Client satisfies it.
type Source interface {
	GetModelDetails(ctx context.Context, owner, name string) (*qsdk.ModelDetails, error)
	GetModelVersion(ctx context.Context, owner, name, versionID string) (*qsdk.Version, error)
}

const latest = "latest"

// Cache maps owner/name@version to a parsed Schema. Entries never expire: a
// version's schema is immutable. The "latest" alias is pinned to whatever it
// resolved to first; refreshing the gateway cache does not move it.
type Cache struct {
	source Source

	mu      sync.RWMutex
	entries map[string]*Schema
}

func NewCache(source Source) *Cache {
	return &Cache{
		source:  source,
		entries: make(map[string]*Schema),
	}
}

func cacheKey(owner, name, version string) string {
	if version == "" {
		version = latest
	}
	return owner + "/" + name + "@" + version
}

// Get returns the schema for owner/name at version ("" means latest). The
// returned Schema's VersionID is the resolved version.
func (c *Cache) Get(ctx context.Context, owner, name, version string) (*Schema, error) {
	if owner == "" || name == "" {
		return nil, qerr.Validation("model owner and name are required")
	}
	key := cacheKey(owner, name, version)

	c.mu.RLock()
	s, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}

	var payload *qsdk.Version
	if version != "" {
		v, err := c.source.GetModelVersion(ctx, owner, name, version)
		if err != nil {
			return nil, err
		}
		payload = v
	} else {
		details, err := c.source.GetModelDetails(ctx, owner, name)
		if err != nil {
			return nil, err
		}
		if details.LatestVersion == nil || details.LatestVersion.ID == "" {
			return nil, qerr.Newf(qerr.CodeNotFound, "model %s/%s has no published version", owner, name)
		}
		payload = details.LatestVersion
	}

	s, err := Extract(payload)
	if err != nil {
		return nil, qerr.New(qerr.CodeAPI, err)
	}
	if s.VersionID == "" {
		s = s.withVersion(version)
	}

	c.store(owner, name, version, s)
	return s, nil
}

// ResolveVersion returns the concrete version id for version ("" = latest).
func (c *Cache) ResolveVersion(ctx context.Context, owner, name, version string) (string, error) {
	s, err := c.Get(ctx, owner, name, version)
	if err != nil {
		return "", err
	}
	return s.VersionID, nil
}

// Seed parses the latest version carried by info and caches it under both the
// latest alias and the concrete id, so a later Get spends no request.
func (c *Cache) Seed(info *qsdk.ModelInfo) (*Schema, error) {
	if info == nil || info.LatestVersion == nil {
		return nil, qerr.Validation("model info carries no version")
	}
	s, err := Extract(info.LatestVersion)
	if err != nil {
		return nil, qerr.New(qerr.CodeAPI, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[cacheKey(info.Owner, info.Name, "")]; !ok {
		c.entries[cacheKey(info.Owner, info.Name, "")] = s
	}
	c.entries[cacheKey(info.Owner, info.Name, s.VersionID)] = s
	return s, nil
}

func (c *Cache) store(owner, name, requested string, s *Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(owner, name, requested)] = s
	if s.VersionID != "" && s.VersionID != requested {
		c.entries[cacheKey(owner, name, s.VersionID)] = s
	}
}

// Len reports the number of cached keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
