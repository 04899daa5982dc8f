package reprocess

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stickerpress/curator/internal/assets"
	"github.com/stickerpress/curator/internal/classifier"
	"github.com/stickerpress/curator/internal/config"
	"github.com/stickerpress/curator/internal/db"
	"github.com/stickerpress/curator/internal/models"
	"github.com/stickerpress/curator/internal/queue"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// A second pool connection would see its own empty in-memory database.
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func testConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

// fakeClassifier returns a canned verdict per filename and can be told to
// fail specific files.
type fakeClassifier struct {
	mu    sync.Mutex
	calls int
	fail  map[string]bool
}

func (f *fakeClassifier) Classify(_ context.Context, filename string, _ []byte) (*classifier.Result, error) {
	f.mu.Lock()
	f.calls++
	shouldFail := f.fail[filename]
	f.mu.Unlock()

	if shouldFail {
		return nil, fmt.Errorf("classifier down for %s", filename)
	}
	return &classifier.Result{
		Category:         "cute anime girl",
		Confidence:       0.9,
		TopLabels:        []string{"cute anime girl", "chibi character"},
		Entropy:          1.2,
		ConfidenceMargin: 0.5,
		NSFWScore:        0.1,
		ImageHash:        "hash-" + filename,
		ModelName:        "MobileCLIP-S1",
	}, nil
}

func seedAssetFile(t *testing.T, gdb *gorm.DB, root, id string) {
	t.Helper()
	name := id + ".webp"
	if err := os.WriteFile(filepath.Join(root, name), []byte("bytes-"+id), 0o644); err != nil {
		t.Fatal(err)
	}
	asset := models.Asset{
		ID:         id,
		FilePath:   name,
		Status:     models.AssetStatusReady,
		Visibility: models.VisibilityPublic,
	}
	if err := gdb.Create(&asset).Error; err != nil {
		t.Fatal(err)
	}
}

func TestWorkerDrainCompletesJob(t *testing.T) {
	gdb := setupDB(t)
	root := t.TempDir()
	cfg := testConfig(t, "database:\n  driver: sqlite\n")
	store := queue.NewStore(gdb)
	fc := &fakeClassifier{}
	w := NewWorker(gdb, store, assets.NewDir(root), fc, cfg, io.Discard)

	seedAssetFile(t, gdb, root, "a1")
	if _, err := store.Enqueue("a1", models.ReasonLowConfidence, queue.EnqueueOpts{}); err != nil {
		t.Fatal(err)
	}

	stats, err := w.Drain(context.Background(), 10)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if stats.Claimed != 1 || stats.Completed != 1 {
		t.Fatalf("stats = %+v, want 1 claimed, 1 completed", stats)
	}

	var job models.ReprocessJob
	if err := gdb.First(&job, "asset_id = ?", "a1").Error; err != nil {
		t.Fatal(err)
	}
	if job.Status != models.JobStatusCompleted {
		t.Errorf("job status = %q, want completed", job.Status)
	}
	if job.WorkerToken != nil || job.ActiveKey != nil {
		t.Error("lease fields not cleared on completion")
	}

	var rec models.ClassificationRecord
	if err := gdb.First(&rec, "asset_id = ?", "a1").Error; err != nil {
		t.Fatalf("record not created: %v", err)
	}
	if rec.Category != "cute anime girl" || rec.ClassificationVersion != "MobileCLIP-S1" {
		t.Errorf("record = %q/%q", rec.Category, rec.ClassificationVersion)
	}
	if rec.DominantTheme != "kawaii" {
		t.Errorf("DominantTheme = %q, want kawaii", rec.DominantTheme)
	}
	if got := rec.SubtagList(); len(got) != 1 || got[0] != "kawaii_anime_girl" {
		t.Errorf("Subtags = %v, want [kawaii_anime_girl]", got)
	}
	if rec.IsNSFW {
		t.Error("IsNSFW = true for a low nsfw score")
	}
}

func TestWorkerDrainRetriesOnFailure(t *testing.T) {
	gdb := setupDB(t)
	root := t.TempDir()
	cfg := testConfig(t, "database:\n  driver: sqlite\n")
	store := queue.NewStore(gdb)
	fc := &fakeClassifier{fail: map[string]bool{"a1.webp": true}}
	w := NewWorker(gdb, store, assets.NewDir(root), fc, cfg, io.Discard)

	seedAssetFile(t, gdb, root, "a1")
	if _, err := store.Enqueue("a1", models.ReasonLowConfidence, queue.EnqueueOpts{}); err != nil {
		t.Fatal(err)
	}

	stats, err := w.Drain(context.Background(), 10)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if stats.Retried != 1 || stats.Exhausted != 0 {
		t.Fatalf("stats = %+v, want 1 retried", stats)
	}

	var job models.ReprocessJob
	if err := gdb.First(&job, "asset_id = ?", "a1").Error; err != nil {
		t.Fatal(err)
	}
	if job.Status != models.JobStatusPending || job.Attempts != 1 {
		t.Errorf("job = %q attempts=%d, want pending/1", job.Status, job.Attempts)
	}
	if job.LastError == "" {
		t.Error("LastError not recorded")
	}
}

func TestWorkerDrainExhaustion(t *testing.T) {
	gdb := setupDB(t)
	root := t.TempDir()
	cfg := testConfig(t, "database:\n  driver: sqlite\n")
	store := queue.NewStore(gdb)
	fc := &fakeClassifier{fail: map[string]bool{"a1.webp": true}}
	w := NewWorker(gdb, store, assets.NewDir(root), fc, cfg, io.Discard)

	seedAssetFile(t, gdb, root, "a1")
	if _, err := store.Enqueue("a1", models.ReasonNSFWReview, queue.EnqueueOpts{MaxAttempts: 1}); err != nil {
		t.Fatal(err)
	}

	stats, err := w.Drain(context.Background(), 10)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if stats.Exhausted != 1 {
		t.Fatalf("stats = %+v, want 1 exhausted", stats)
	}

	var job models.ReprocessJob
	if err := gdb.First(&job, "asset_id = ?", "a1").Error; err != nil {
		t.Fatal(err)
	}
	if job.Status != models.JobStatusFailed {
		t.Errorf("job status = %q, want failed", job.Status)
	}
}

func TestWorkerDrainMissingAsset(t *testing.T) {
	gdb := setupDB(t)
	cfg := testConfig(t, "database:\n  driver: sqlite\n")
	store := queue.NewStore(gdb)
	w := NewWorker(gdb, store, assets.NewDir(t.TempDir()), &fakeClassifier{}, cfg, io.Discard)

	if _, err := store.Enqueue("ghost", models.ReasonModelUpgrade, queue.EnqueueOpts{MaxAttempts: 1}); err != nil {
		t.Fatal(err)
	}

	stats, err := w.Drain(context.Background(), 10)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if stats.Exhausted != 1 || stats.Completed != 0 {
		t.Fatalf("stats = %+v, want the job to fail", stats)
	}
}

func TestWorkerDrainEmptyQueue(t *testing.T) {
	gdb := setupDB(t)
	cfg := testConfig(t, "database:\n  driver: sqlite\n")
	w := NewWorker(gdb, queue.NewStore(gdb), assets.NewDir(t.TempDir()), &fakeClassifier{}, cfg, io.Discard)

	stats, err := w.Drain(context.Background(), 10)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if stats.Claimed != 0 {
		t.Fatalf("stats = %+v, want nothing claimed", stats)
	}
}
