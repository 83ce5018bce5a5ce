package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/City-of-Helsinki/helfi-gredi-dam/internal/materializer"
	"github.com/City-of-Helsinki/helfi-gredi-dam/internal/state"
	"github.com/City-of-Helsinki/helfi-gredi-dam/pkg/gredi"
)

// Refresher re-fetches asset metadata and re-materializes the local copy
// when the remote version has changed. Refresh is idempotent and safe to
// re-run; the scheduler and the webhook both funnel through it.
type Refresher struct {
	client       *gredi.Client
	tracking     *state.TrackingStore
	materializer *materializer.Materializer
}

// New creates a Refresher.
func New(client *gredi.Client, tracking *state.TrackingStore, mat *materializer.Materializer) *Refresher {
	return &Refresher{client: client, tracking: tracking, materializer: mat}
}

// Refresh updates the local state for one asset.
func (r *Refresher) Refresh(ctx context.Context, assetID string) error {
	asset, err := r.client.GetAsset(ctx, assetID, []string{"basic", "attachments"}, "")
	if err != nil {
		return fmt.Errorf("fetch asset %s: %w", assetID, err)
	}

	stamp := strconv.FormatInt(asset.Modified.Unix(), 10)
	tracked, ok, err := r.tracking.Get(assetID, materializer.TrackingKeyUploadDate)
	if err != nil {
		return fmt.Errorf("read tracking record for %s: %w", assetID, err)
	}
	if ok && tracked == stamp {
		slog.Debug("asset unchanged", "asset_id", assetID)
		return nil
	}

	if asset.ContentLink != "" {
		if _, _, err := r.materializer.CreateFile(ctx, asset); err != nil {
			return fmt.Errorf("materialize asset %s: %w", assetID, err)
		}
		return nil
	}

	// No downloadable content: record the new timestamp so the next sweep
	// skips the asset.
	if err := r.tracking.Set(assetID, materializer.TrackingKeyUploadDate, stamp); err != nil {
		return fmt.Errorf("update tracking record for %s: %w", assetID, err)
	}
	return nil
}
