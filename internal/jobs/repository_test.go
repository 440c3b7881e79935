package jobs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/emendo/emendo-agent/internal/db"
)

func setupTestRepo(t *testing.T) Repository {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewRepository(database.Conn())
}

func testRecord(id string) *ExportRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return &ExportRecord{
		ID:         id,
		SourcePath: "/videos/clip.mp4",
		OutputPath: "/home/user/Emendo/Emendo_clip_20260830_142501.mp4",
		Start:      5,
		End:        15,
		Codec:      "H.264 Balanced",
		Audio:      "AAC (192k)",
		Container:  "MP4",
		Status:     StatusRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestRepository_ExportLifecycle(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec := testRecord(NewID())
	if err := repo.CreateExport(ctx, rec); err != nil {
		t.Fatalf("CreateExport: %v", err)
	}

	got, err := repo.GetExport(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetExport: %v", err)
	}
	if got == nil || got.Status != StatusRunning {
		t.Fatalf("GetExport = %+v, want running record", got)
	}
	if got.SourcePath != rec.SourcePath || got.Start != 5 || got.End != 15 {
		t.Errorf("record fields lost: %+v", got)
	}

	if err := repo.UpdateExportProgress(ctx, rec.ID, 0.42); err != nil {
		t.Fatalf("UpdateExportProgress: %v", err)
	}
	if err := repo.UpdateExportStatus(ctx, rec.ID, StatusCompleted, ""); err != nil {
		t.Fatalf("UpdateExportStatus: %v", err)
	}

	got, err = repo.GetExport(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetExport: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("Status = %s, want completed", got.Status)
	}
	if got.Progress != 0.42 {
		t.Errorf("Progress = %v, want 0.42", got.Progress)
	}
	if got.Error != "" {
		t.Errorf("Error = %q, want empty", got.Error)
	}
}

func TestRepository_FailedExportKeepsError(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec := testRecord(NewID())
	if err := repo.CreateExport(ctx, rec); err != nil {
		t.Fatalf("CreateExport: %v", err)
	}
	if err := repo.UpdateExportStatus(ctx, rec.ID, StatusFailed, "transcode exited 1"); err != nil {
		t.Fatalf("UpdateExportStatus: %v", err)
	}

	got, err := repo.GetExport(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetExport: %v", err)
	}
	if got.Status != StatusFailed || got.Error != "transcode exited 1" {
		t.Errorf("record = %+v", got)
	}
}

func TestRepository_TerminalStatusSticks(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec := testRecord(NewID())
	if err := repo.CreateExport(ctx, rec); err != nil {
		t.Fatalf("CreateExport: %v", err)
	}
	if err := repo.UpdateExportStatus(ctx, rec.ID, StatusCompleted, ""); err != nil {
		t.Fatalf("UpdateExportStatus: %v", err)
	}

	// A late terminal write must not flip an already-finished row.
	if err := repo.UpdateExportStatus(ctx, rec.ID, StatusFailed, "interrupted by restart"); err != nil {
		t.Fatalf("UpdateExportStatus: %v", err)
	}

	got, err := repo.GetExport(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetExport: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("Status = %s, want completed", got.Status)
	}
	if got.Error != "" {
		t.Errorf("Error = %q, want empty", got.Error)
	}
}

func TestRepository_GetExport_Missing(t *testing.T) {
	repo := setupTestRepo(t)

	got, err := repo.GetExport(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetExport: %v", err)
	}
	if got != nil {
		t.Errorf("GetExport = %+v, want nil", got)
	}
}

func TestRepository_ListExports_NewestFirst(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	older := testRecord("older")
	older.CreatedAt = older.CreatedAt.Add(-time.Hour)
	newer := testRecord("newer")
	for _, rec := range []*ExportRecord{older, newer} {
		if err := repo.CreateExport(ctx, rec); err != nil {
			t.Fatalf("CreateExport: %v", err)
		}
	}

	records, err := repo.ListExports(ctx, 10)
	if err != nil {
		t.Fatalf("ListExports: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if records[0].ID != "newer" || records[1].ID != "older" {
		t.Errorf("order = [%s, %s]", records[0].ID, records[1].ID)
	}

	limited, err := repo.ListExports(ctx, 1)
	if err != nil {
		t.Fatalf("ListExports: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "newer" {
		t.Errorf("limited = %+v", limited)
	}
}

func TestRepository_Config(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	val, err := repo.GetConfig(ctx, "auth_token")
	if err != nil || val != "" {
		t.Fatalf("GetConfig on empty store = %q, %v", val, err)
	}

	if err := repo.SetConfig(ctx, "auth_token", "abc"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if err := repo.SetConfig(ctx, "auth_token", "def"); err != nil {
		t.Fatalf("SetConfig overwrite: %v", err)
	}

	val, err = repo.GetConfig(ctx, "auth_token")
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if val != "def" {
		t.Errorf("GetConfig = %q, want def", val)
	}
}

func TestDB_MarksInterruptedExports(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	repo := NewRepository(database.Conn())
	rec := testRecord(NewID())
	if err := repo.CreateExport(context.Background(), rec); err != nil {
		t.Fatalf("CreateExport: %v", err)
	}
	database.Close()

	// Reopen: the running row simulates an export killed mid-flight.
	database, err = db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer database.Close()

	got, err := NewRepository(database.Conn()).GetExport(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("GetExport: %v", err)
	}
	if got.Status != StatusFailed {
		t.Errorf("Status = %s, want failed after restart", got.Status)
	}
	if got.Error != "interrupted by restart" {
		t.Errorf("Error = %q", got.Error)
	}
}
