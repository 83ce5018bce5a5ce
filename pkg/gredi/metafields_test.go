package gredi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// memStore is an in-memory CacheStore for tests.
type memStore struct {
	data    map[string][]byte
	deletes int
}

func (s *memStore) Get(key string) ([]byte, bool, error) {
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(key string, value []byte) error {
	if s.data == nil {
		s.data = make(map[string][]byte)
	}
	s.data[key] = value
	return nil
}

func (s *memStore) Delete(key string) error {
	delete(s.data, key)
	s.deletes++
	return nil
}

func metaTestGateway(t *testing.T, metaCalls *int) *Gateway {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Set-Cookie", "JSESSIONID=sess-1; Path=/")
	})
	mux.HandleFunc("GET /customers/42/meta", func(w http.ResponseWriter, r *http.Request) {
		*metaCalls++
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 100, "namesByLang": map[string]string{"en": "Keywords", "fi": "Avainsanat"}},
			{"id": 101, "namesByLang": map[string]string{"en": "Alt text"}},
			{"namesByLang": map[string]string{"en": "No id, skipped"}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s := NewSessionManager(Config{APIURL: srv.URL, CustomerID: "42"}, srv.Client())
	return NewGateway(s)
}

func TestMetaFieldsFetchedOnce(t *testing.T) {
	metaCalls := 0
	cache := NewMetaFieldCache(metaTestGateway(t, &metaCalls), nil)

	for i := 0; i < 3; i++ {
		fields, err := cache.Fields(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(fields) != 2 {
			t.Fatalf("expected 2 fields (entry without id skipped), got %d", len(fields))
		}
	}
	if metaCalls != 1 {
		t.Errorf("expected 1 schema fetch across 3 calls, got %d", metaCalls)
	}
}

func TestMetaFieldsPersistentStoreHit(t *testing.T) {
	seeded, err := json.Marshal(map[string]MetaField{
		"100": {ID: "100", NamesByLang: map[string]string{"en": "Keywords"}, Languages: []string{"en"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	store := &memStore{data: map[string][]byte{"metafields:42": seeded}}

	metaCalls := 0
	cache := NewMetaFieldCache(metaTestGateway(t, &metaCalls), store)

	fields, err := cache.Fields(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 1 {
		t.Fatalf("expected the seeded schema, got %d fields", len(fields))
	}
	if metaCalls != 0 {
		t.Errorf("expected no network fetch on a store hit, got %d", metaCalls)
	}
}

func TestMetaFieldsCorruptStoreEntryRefetches(t *testing.T) {
	store := &memStore{data: map[string][]byte{"metafields:42": []byte("{not json")}}

	metaCalls := 0
	cache := NewMetaFieldCache(metaTestGateway(t, &metaCalls), store)

	fields, err := cache.Fields(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 2 {
		t.Fatalf("expected refetched schema, got %d fields", len(fields))
	}
	if metaCalls != 1 {
		t.Errorf("expected 1 network fetch past the corrupt entry, got %d", metaCalls)
	}
	if _, ok := store.data["metafields:42"]; !ok {
		t.Error("expected the refetched schema to be persisted")
	}
}

func TestMetaFieldsInvalidate(t *testing.T) {
	store := &memStore{}
	metaCalls := 0
	cache := NewMetaFieldCache(metaTestGateway(t, &metaCalls), store)

	if _, err := cache.Fields(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := cache.Invalidate(); err != nil {
		t.Fatal(err)
	}
	if store.deletes != 1 {
		t.Errorf("expected 1 store delete, got %d", store.deletes)
	}
	if _, err := cache.Fields(context.Background()); err != nil {
		t.Fatal(err)
	}
	if metaCalls != 2 {
		t.Errorf("expected refetch after invalidation, got %d fetches", metaCalls)
	}
}

func TestFieldByNameCaseInsensitive(t *testing.T) {
	metaCalls := 0
	cache := NewMetaFieldCache(metaTestGateway(t, &metaCalls), nil)

	field, ok, err := cache.FieldByName(context.Background(), "keywords")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || field.ID != "100" {
		t.Errorf("expected field 100 for name keywords, got %+v (ok=%v)", field, ok)
	}

	// Localized names match too.
	field, ok, err = cache.FieldByName(context.Background(), "AVAINSANAT")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || field.ID != "100" {
		t.Errorf("expected field 100 for localized name, got %+v (ok=%v)", field, ok)
	}

	_, ok, err = cache.FieldByName(context.Background(), "nonexistent")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected no match for unknown name")
	}
}

func TestParseMetaFieldsLanguages(t *testing.T) {
	data := []byte(`[{"id": "5", "namesByLang": {"sv": "Nyckelord", "en": "Keywords", "fi": "Avainsanat"}}]`)
	fields, err := parseMetaFields(data)
	if err != nil {
		t.Fatal(err)
	}
	field, ok := fields["5"]
	if !ok {
		t.Fatal("expected field 5")
	}
	want := []string{"en", "fi", "sv"}
	if len(field.Languages) != len(want) {
		t.Fatalf("expected %d languages, got %d", len(want), len(field.Languages))
	}
	for i, lang := range want {
		if field.Languages[i] != lang {
			t.Errorf("expected languages in sorted order, got %v", field.Languages)
		}
	}
}
