package materializer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/City-of-Helsinki/helfi-gredi-dam/internal/state"
	"github.com/City-of-Helsinki/helfi-gredi-dam/pkg/gredi"
)

func testClient(t *testing.T, downloads *int, body []byte) *gredi.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Set-Cookie", "JSESSIONID=sess-1; Path=/")
	})
	mux.HandleFunc("GET /files/123/contents/original", func(w http.ResponseWriter, r *http.Request) {
		*downloads++
		w.Write(body)
	})
	mux.HandleFunc("GET /files/123/preview", func(w http.ResponseWriter, r *http.Request) {
		*downloads++
		w.Write(body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return gredi.NewClient(gredi.Config{APIURL: srv.URL, CustomerID: "42"}, srv.Client(), nil)
}

func testAsset(modified time.Time) *gredi.Asset {
	return &gredi.Asset{
		ID:          "123",
		Name:        "pic.jpg",
		Modified:    modified,
		ContentLink: "/api/v1/files/123/contents/original",
		PreviewLink: "files/123/preview",
	}
}

func TestCreateFileDownloadsOnce(t *testing.T) {
	downloads := 0
	client := testClient(t, &downloads, []byte("image-bytes"))
	root := t.TempDir()
	tracking := state.NewTrackingStore(filepath.Join(root, "tracking.json"))
	m := New(client, tracking, root)

	modified := time.Date(2024, 3, 2, 11, 30, 0, 0, time.UTC)
	asset := testAsset(modified)

	path, written, err := m.CreateFile(context.Background(), asset)
	if err != nil {
		t.Fatal(err)
	}
	if !written {
		t.Error("expected first call to write")
	}
	want := filepath.Join(root, "original", "02-Mar", "pic.jpg")
	if path != want {
		t.Errorf("unexpected path %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("unexpected file content %q", data)
	}

	// Unchanged asset: the tracked stamp matches, no second download.
	path2, written, err := m.CreateFile(context.Background(), asset)
	if err != nil {
		t.Fatal(err)
	}
	if written {
		t.Error("expected unchanged asset to reuse the file")
	}
	if path2 != path {
		t.Errorf("expected the same path, got %q", path2)
	}
	if downloads != 1 {
		t.Errorf("expected 1 download, got %d", downloads)
	}

	stamp, ok, err := tracking.Get("123", TrackingKeyUploadDate)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || stamp == "" {
		t.Error("expected tracked upload date")
	}
}

func TestCreateFileRedownloadsOnChange(t *testing.T) {
	downloads := 0
	client := testClient(t, &downloads, []byte("v1"))
	root := t.TempDir()
	tracking := state.NewTrackingStore(filepath.Join(root, "tracking.json"))
	m := New(client, tracking, root)

	modified := time.Date(2024, 3, 2, 11, 30, 0, 0, time.UTC)
	if _, _, err := m.CreateFile(context.Background(), testAsset(modified)); err != nil {
		t.Fatal(err)
	}

	// A later modified time invalidates the tracked copy.
	_, written, err := m.CreateFile(context.Background(), testAsset(modified.Add(time.Hour)))
	if err != nil {
		t.Fatal(err)
	}
	if !written {
		t.Error("expected changed asset to be re-downloaded")
	}
	if downloads != 2 {
		t.Errorf("expected 2 downloads, got %d", downloads)
	}
}

func TestCreateFileEmptyContentKeepsPrevious(t *testing.T) {
	downloads := 0
	body := []byte("v1")
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Set-Cookie", "JSESSIONID=sess-1; Path=/")
	})
	mux.HandleFunc("GET /files/123/contents/original", func(w http.ResponseWriter, r *http.Request) {
		downloads++
		if downloads > 1 {
			// Second download comes back empty.
			return
		}
		w.Write(body)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	client := gredi.NewClient(gredi.Config{APIURL: srv.URL, CustomerID: "42"}, srv.Client(), nil)

	root := t.TempDir()
	tracking := state.NewTrackingStore(filepath.Join(root, "tracking.json"))
	m := New(client, tracking, root)

	modified := time.Date(2024, 3, 2, 11, 30, 0, 0, time.UTC)
	path, _, err := m.CreateFile(context.Background(), testAsset(modified))
	if err != nil {
		t.Fatal(err)
	}

	// Same day, later time: same destination, new stamp, empty download.
	path2, written, err := m.CreateFile(context.Background(), testAsset(modified.Add(time.Hour)))
	if err != nil {
		t.Fatal(err)
	}
	if written {
		t.Error("expected the previous file to be kept")
	}
	if path2 != path {
		t.Errorf("expected previous path %q, got %q", path, path2)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v1" {
		t.Errorf("expected previous content kept, got %q", data)
	}
}

func TestCreateThumbnailReusesByName(t *testing.T) {
	downloads := 0
	client := testClient(t, &downloads, []byte("thumb"))
	root := t.TempDir()
	tracking := state.NewTrackingStore(filepath.Join(root, "tracking.json"))
	m := New(client, tracking, root)

	modified := time.Date(2024, 3, 2, 11, 30, 0, 0, time.UTC)
	asset := testAsset(modified)

	path, written, err := m.CreateThumbnail(context.Background(), asset)
	if err != nil {
		t.Fatal(err)
	}
	if !written {
		t.Error("expected first call to write")
	}
	wantName := "123_1709379000.jpg"
	if filepath.Base(path) != wantName {
		t.Errorf("unexpected thumbnail name %q, want %q", filepath.Base(path), wantName)
	}

	_, written, err = m.CreateThumbnail(context.Background(), asset)
	if err != nil {
		t.Fatal(err)
	}
	if written {
		t.Error("expected existing thumbnail to be reused")
	}
	if downloads != 1 {
		t.Errorf("expected 1 download, got %d", downloads)
	}
}
