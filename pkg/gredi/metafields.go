package gredi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// MetaField describes one custom metadata field in the customer's schema.
type MetaField struct {
	ID           string            `json:"id"`
	NamesByLang  map[string]string `json:"names_by_lang"`
	ValuesByLang map[string]any    `json:"values_by_lang,omitempty"`
	Languages    []string          `json:"languages"`
}

// MetaFieldResolver resolves custom metadata fields by their display name.
// The asset mapper uses it to locate the Keywords and Alt text fields.
type MetaFieldResolver interface {
	FieldByName(ctx context.Context, name string) (MetaField, bool, error)
}

// CacheStore is the persistent cache the metadata-field schema is kept in
// between processes. Entries have no expiry; invalidation happens externally
// by deleting the key when the host configuration changes.
type CacheStore interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

const metaFieldsCacheKey = "metafields"

// MetaFieldCache fetches the customer's custom-metadata-field schema at most
// once per cache lifetime: process map first, then the persistent store, then
// the network. Concurrent first calls are collapsed into a single fetch.
type MetaFieldCache struct {
	gateway *Gateway
	store   CacheStore
	group   singleflight.Group

	mu     sync.RWMutex
	fields map[string]MetaField
}

// NewMetaFieldCache creates a MetaFieldCache over the gateway. store may be
// nil, in which case only the process cache is used.
func NewMetaFieldCache(gateway *Gateway, store CacheStore) *MetaFieldCache {
	return &MetaFieldCache{gateway: gateway, store: store}
}

// Fields returns the schema keyed by field id.
func (c *MetaFieldCache) Fields(ctx context.Context) (map[string]MetaField, error) {
	c.mu.RLock()
	if c.fields != nil {
		defer c.mu.RUnlock()
		return c.fields, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do(metaFieldsCacheKey, func() (any, error) {
		// Another caller may have filled the cache while we waited.
		c.mu.RLock()
		if c.fields != nil {
			defer c.mu.RUnlock()
			return c.fields, nil
		}
		c.mu.RUnlock()

		fields, err := c.load(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.fields = fields
		c.mu.Unlock()
		return fields, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]MetaField), nil
}

// FieldByName finds the field whose localized name matches, case-insensitively.
// Iteration is in id order so a duplicate name resolves deterministically.
func (c *MetaFieldCache) FieldByName(ctx context.Context, name string) (MetaField, bool, error) {
	fields, err := c.Fields(ctx)
	if err != nil {
		return MetaField{}, false, err
	}
	for _, id := range sortedKeys(fields) {
		field := fields[id]
		for _, localized := range field.NamesByLang {
			if strings.EqualFold(localized, name) {
				return field, true, nil
			}
		}
	}
	return MetaField{}, false, nil
}

// Invalidate drops both cache layers so the next call refetches the schema.
func (c *MetaFieldCache) Invalidate() error {
	c.mu.Lock()
	c.fields = nil
	c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	customerID := c.gateway.session.customerID
	if customerID == "" {
		customerID = c.gateway.session.cfg.CustomerID
	}
	if customerID == "" {
		return nil
	}
	return c.store.Delete(cacheKeyFor(customerID))
}

// load consults the persistent store, then the network.
func (c *MetaFieldCache) load(ctx context.Context) (map[string]MetaField, error) {
	customerID, err := c.gateway.session.CustomerID(ctx)
	if err != nil {
		return nil, err
	}
	key := cacheKeyFor(customerID)

	if c.store != nil {
		if data, ok, err := c.store.Get(key); err == nil && ok {
			var fields map[string]MetaField
			if err := json.Unmarshal(data, &fields); err == nil {
				return fields, nil
			}
			slog.Warn("discarding corrupt metafields cache entry", "key", key)
		}
	}

	data, err := c.gateway.Get(ctx, "customers/"+customerID+"/meta", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata fields: %w", err)
	}

	fields, err := parseMetaFields(data)
	if err != nil {
		return nil, err
	}

	if c.store != nil {
		encoded, err := json.Marshal(fields)
		if err == nil {
			if err := c.store.Set(key, encoded); err != nil {
				slog.Warn("persist metafields cache failed", "key", key, "error", err)
			}
		}
	}
	return fields, nil
}

func cacheKeyFor(customerID string) string {
	return metaFieldsCacheKey + ":" + customerID
}

// parseMetaFields builds the id-keyed map from the remote schema payload.
// Entries without an id are skipped.
func parseMetaFields(data []byte) (map[string]MetaField, error) {
	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse metadata fields response: %w", err)
	}

	fields := make(map[string]MetaField, len(items))
	for _, item := range items {
		id := stringify(item["id"])
		if id == "" {
			continue
		}
		field := MetaField{
			ID:          id,
			NamesByLang: make(map[string]string),
		}
		for lang, name := range asMap(item["namesByLang"]) {
			field.NamesByLang[lang] = stringify(name)
		}
		if values := asMap(item["valuesByLang"]); values != nil {
			field.ValuesByLang = values
		}
		field.Languages = sortedKeys(field.NamesByLang)
		fields[id] = field
	}
	return fields, nil
}
