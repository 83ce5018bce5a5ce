package materializer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/City-of-Helsinki/helfi-gredi-dam/internal/state"
	"github.com/City-of-Helsinki/helfi-gredi-dam/pkg/gredi"
)

// TrackingKeyUploadDate is the tracking-store key holding the modified
// timestamp of the last materialized copy of an asset.
const TrackingKeyUploadDate = "file_upload_date"

// Materializer persists remote asset content under a local directory tree.
// Originals keep their remote filename under original/DD-MMM; thumbnails are
// named {assetID}_{modifiedUnix}{ext} under thumbs/DD-MMM, so the name alone
// identifies the content version.
type Materializer struct {
	client   *gredi.Client
	tracking *state.TrackingStore
	root     string
}

// New creates a Materializer writing below root.
func New(client *gredi.Client, tracking *state.TrackingStore, root string) *Materializer {
	return &Materializer{client: client, tracking: tracking, root: root}
}

// CreateFile materializes the asset's original content. A new download only
// happens when no copy is tracked for the asset or the tracked
// file_upload_date differs from the asset's current modified timestamp;
// otherwise the existing file is reused. Returns the local path and whether
// a new file was written.
func (m *Materializer) CreateFile(ctx context.Context, asset *gredi.Asset) (string, bool, error) {
	stamp := modifiedStamp(asset)
	dest := m.originalPath(asset)

	tracked, ok, err := m.tracking.Get(asset.ID, TrackingKeyUploadDate)
	if err != nil {
		return "", false, fmt.Errorf("read tracking record: %w", err)
	}
	if ok && tracked == stamp {
		if _, err := os.Stat(dest); err == nil {
			return dest, false, nil
		}
	}

	data, _, err := m.client.FileContent(ctx, asset.ID, asset.ContentLink)
	if err != nil {
		if errors.Is(err, gredi.ErrEmptyContent) {
			// Soft failure: keep the previous copy when we have one.
			if _, statErr := os.Stat(dest); statErr == nil {
				slog.Warn("empty download, reusing previous file", "asset_id", asset.ID, "path", dest)
				return dest, false, nil
			}
		}
		return "", false, err
	}

	if err := writeAtomic(dest, data); err != nil {
		return "", false, err
	}
	if err := m.tracking.Set(asset.ID, TrackingKeyUploadDate, stamp); err != nil {
		return "", false, fmt.Errorf("update tracking record: %w", err)
	}
	slog.Info("materialized asset", "asset_id", asset.ID, "path", dest)
	return dest, true, nil
}

// CreateThumbnail materializes the asset's preview content. The destination
// name embeds the modified timestamp, so an existing file at that name is
// already current and is reused without a download.
func (m *Materializer) CreateThumbnail(ctx context.Context, asset *gredi.Asset) (string, bool, error) {
	dest := m.thumbPath(asset)
	if _, err := os.Stat(dest); err == nil {
		return dest, false, nil
	}

	data, _, err := m.client.FileContent(ctx, asset.ID, asset.PreviewLink)
	if err != nil {
		return "", false, err
	}
	if err := writeAtomic(dest, data); err != nil {
		return "", false, err
	}
	slog.Info("materialized thumbnail", "asset_id", asset.ID, "path", dest)
	return dest, true, nil
}

func (m *Materializer) originalPath(asset *gredi.Asset) string {
	return filepath.Join(m.root, "original", dateShard(asset.Modified), asset.Name)
}

func (m *Materializer) thumbPath(asset *gredi.Asset) string {
	name := fmt.Sprintf("%s_%d%s", asset.ID, asset.Modified.Unix(), filepath.Ext(asset.Name))
	return filepath.Join(m.root, "thumbs", dateShard(asset.Modified), name)
}

// dateShard is the per-day directory name, e.g. "09-Sep".
func dateShard(t time.Time) string {
	return t.Format("02-Jan")
}

func modifiedStamp(asset *gredi.Asset) string {
	return strconv.FormatInt(asset.Modified.Unix(), 10)
}

// writeAtomic writes to a uniquely named temp file in the destination
// directory and renames it into place.
func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}

	tmp := filepath.Join(dir, uuid.New().String()+".part")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
