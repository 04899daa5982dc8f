package reprocess

import (
	"context"
	"io"
	"testing"

	"github.com/stickerpress/curator/internal/assets"
	"github.com/stickerpress/curator/internal/models"
)

func TestPendingPoolClassifiesBatch(t *testing.T) {
	gdb := setupDB(t)
	root := t.TempDir()
	cfg := testConfig(t, `
database:
  driver: sqlite
pending:
  batch_size: 10
  concurrency: 3
`)
	fc := &fakeClassifier{}
	pool := NewPendingPool(gdb, assets.NewDir(root), fc, cfg, io.Discard)

	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		seedAssetFile(t, gdb, root, id)
	}
	// Already-classified assets stay out of the batch.
	seedAssetFile(t, gdb, root, "done")
	if err := gdb.Create(&models.ClassificationRecord{AssetID: "done", Category: "anime"}).Error; err != nil {
		t.Fatal(err)
	}

	stats, err := pool.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Fetched != 4 || stats.Classified != 4 || stats.Failed != 0 {
		t.Fatalf("stats = %+v, want 4 fetched and classified", stats)
	}

	var count int64
	if err := gdb.Model(&models.ClassificationRecord{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Errorf("record count = %d, want 5", count)
	}

	// A second pass finds nothing left to classify.
	again, err := pool.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if again.Fetched != 0 {
		t.Errorf("second pass fetched %d, want 0", again.Fetched)
	}
}

func TestPendingPoolCountsPerItemFailures(t *testing.T) {
	gdb := setupDB(t)
	root := t.TempDir()
	cfg := testConfig(t, `
database:
  driver: sqlite
pending:
  batch_size: 10
  concurrency: 2
`)
	fc := &fakeClassifier{fail: map[string]bool{"bad.webp": true}}
	pool := NewPendingPool(gdb, assets.NewDir(root), fc, cfg, io.Discard)

	seedAssetFile(t, gdb, root, "good")
	seedAssetFile(t, gdb, root, "bad")

	stats, err := pool.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Classified != 1 || stats.Failed != 1 {
		t.Fatalf("stats = %+v, want 1 classified, 1 failed", stats)
	}

	var count int64
	if err := gdb.Model(&models.ClassificationRecord{}).
		Where("asset_id = ?", "good").Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Error("surviving item was not persisted")
	}
}

func TestPendingPoolSkipsNonReadyAssets(t *testing.T) {
	gdb := setupDB(t)
	root := t.TempDir()
	cfg := testConfig(t, "database:\n  driver: sqlite\n")
	pool := NewPendingPool(gdb, assets.NewDir(root), &fakeClassifier{}, cfg, io.Discard)

	pendingUpload := models.Asset{
		ID: "up1", FilePath: "up1.webp",
		Status: models.AssetStatusPending, Visibility: models.VisibilityPublic,
	}
	if err := gdb.Create(&pendingUpload).Error; err != nil {
		t.Fatal(err)
	}

	stats, err := pool.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Fetched != 0 {
		t.Fatalf("stats = %+v, want empty batch", stats)
	}
}
