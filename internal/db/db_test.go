package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stickerpress/curator/internal/config"
	"github.com/stickerpress/curator/internal/models"
)

func TestDSN(t *testing.T) {
	dc := config.DatabaseConfig{User: "root", Host: "127.0.0.1", Port: 3306, Name: "curator"}
	got := DSN(dc)
	want := "root@tcp(127.0.0.1:3306)/curator?parseTime=true"
	if got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}

	dc.Password = "hunter2"
	got = DSN(dc)
	want = "root:hunter2@tcp(127.0.0.1:3306)/curator?parseTime=true"
	if got != want {
		t.Errorf("DSN with password = %q, want %q", got, want)
	}
}

func TestConnectSQLiteAndMigrate(t *testing.T) {
	dc := config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}
	gdb, err := Connect(dc)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	// Migrated schema accepts a row for each model.
	if err := gdb.Create(&models.Asset{ID: "a1", FilePath: "/x/a1.webp"}).Error; err != nil {
		t.Errorf("create asset: %v", err)
	}
	if err := gdb.Create(&models.ClassificationRecord{AssetID: "a1"}).Error; err != nil {
		t.Errorf("create classification: %v", err)
	}
	if err := gdb.Create(&models.ReprocessJob{AssetID: "a1", Reason: models.ReasonModelUpgrade}).Error; err != nil {
		t.Errorf("create job: %v", err)
	}
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	if _, err := Connect(config.DatabaseConfig{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestIsMissingTable(t *testing.T) {
	if IsMissingTable(nil) {
		t.Error("IsMissingTable(nil) = true")
	}
	if !IsMissingTable(&mysql.MySQLError{Number: 1146, Message: "Table 'curator.reprocess_jobs' doesn't exist"}) {
		t.Error("mysql 1146 not detected")
	}
	if IsMissingTable(&mysql.MySQLError{Number: 1045, Message: "Access denied"}) {
		t.Error("mysql 1045 wrongly detected")
	}
	if !IsMissingTable(errors.New("no such table: reprocess_jobs")) {
		t.Error("sqlite missing table not detected")
	}
	if !IsMissingTable(fmt.Errorf("queue: claim: %w", errors.New("no such table: reprocess_jobs"))) {
		t.Error("wrapped missing table not detected")
	}
}

func TestIsDuplicateKey(t *testing.T) {
	if IsDuplicateKey(nil) {
		t.Error("IsDuplicateKey(nil) = true")
	}
	if !IsDuplicateKey(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}) {
		t.Error("mysql 1062 not detected")
	}
	if !IsDuplicateKey(errors.New("UNIQUE constraint failed: reprocess_jobs.active_key")) {
		t.Error("sqlite unique violation not detected")
	}
	if IsDuplicateKey(errors.New("no such table: reprocess_jobs")) {
		t.Error("missing table wrongly detected as duplicate")
	}
}
