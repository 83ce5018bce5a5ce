package state

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestTrackingStoreRoundTrip(t *testing.T) {
	store := NewTrackingStore(filepath.Join(t.TempDir(), "tracking.json"))

	if err := store.Set("123", "file_upload_date", "1709370000"); err != nil {
		t.Fatal(err)
	}

	value, ok, err := store.Get("123", "file_upload_date")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || value != "1709370000" {
		t.Errorf("expected tracked stamp, got %q (ok=%v)", value, ok)
	}

	if _, ok, _ := store.Get("123", "other"); ok {
		t.Error("expected missing name")
	}
	if _, ok, _ := store.Get("999", "file_upload_date"); ok {
		t.Error("expected missing asset")
	}
}

func TestTrackingStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking.json")
	if err := NewTrackingStore(path).Set("123", "file_upload_date", "42"); err != nil {
		t.Fatal(err)
	}

	value, ok, err := NewTrackingStore(path).Get("123", "file_upload_date")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || value != "42" {
		t.Errorf("expected persisted record, got %q (ok=%v)", value, ok)
	}
}

func TestTrackingStoreDeleteDropsEmptyRecord(t *testing.T) {
	store := NewTrackingStore(filepath.Join(t.TempDir(), "tracking.json"))

	if err := store.Set("123", "file_upload_date", "42"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("123", "file_upload_date"); err != nil {
		t.Fatal(err)
	}

	ids, err := store.AssetIDs()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("expected empty record to be dropped, got %v", ids)
	}

	// Deleting a missing key is a no-op
	if err := store.Delete("123", "file_upload_date"); err != nil {
		t.Fatal(err)
	}
}

func TestTrackingStoreAssetIDsSorted(t *testing.T) {
	store := NewTrackingStore(filepath.Join(t.TempDir(), "tracking.json"))

	for _, id := range []string{"30", "10", "20"} {
		if err := store.Set(id, "file_upload_date", "1"); err != nil {
			t.Fatal(err)
		}
	}

	ids, err := store.AssetIDs()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids, []string{"10", "20", "30"}) {
		t.Errorf("expected sorted ids, got %v", ids)
	}
}
