package repository

import (
	"context"
	"io/fs"
	"testing"

	"card-registration-kit/internal/domain"
	"card-registration-kit/migrations"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMigrationRepository_ApplyEmbedded(t *testing.T) {
	ctx := context.Background()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	repo := NewMigrationRepository(db)

	if err := repo.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable failed: %v", err)
	}
	// 2回呼んでもエラーにならない
	if err := repo.EnsureTable(ctx); err != nil {
		t.Fatalf("second EnsureTable failed: %v", err)
	}

	body, err := fs.ReadFile(migrations.FS, "001_create_card_preregistrations.sql")
	if err != nil {
		t.Fatalf("failed to read embedded migration: %v", err)
	}
	m := &domain.Migration{Version: "001", Name: "create_card_preregistrations"}
	if err := repo.Apply(ctx, m, string(body)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	applied, err := repo.IsMigrationApplied(ctx, "001")
	if err != nil {
		t.Fatalf("IsMigrationApplied failed: %v", err)
	}
	if !applied {
		t.Error("expected 001 to be applied")
	}

	all, err := repo.FindAllApplied(ctx)
	if err != nil {
		t.Fatalf("FindAllApplied failed: %v", err)
	}
	if len(all) != 1 || all[0].Name != "create_card_preregistrations" || all[0].AppliedAt == nil {
		t.Errorf("unexpected applied migrations %+v", all)
	}

	// 作成されたテーブルを事前登録リポジトリで使用できる
	prereg := NewPreregistrationRepository(db)
	p := &domain.Preregistration{PreregistrationData: "d", AccessKey: "k", Status: domain.PreregistrationStatusCreated}
	if err := prereg.Create(ctx, p); err != nil {
		t.Fatalf("Create on migrated schema failed: %v", err)
	}
}

func TestMigrationRepository_ApplyRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	repo := NewMigrationRepository(db)
	if err := repo.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable failed: %v", err)
	}

	m := &domain.Migration{Version: "009", Name: "broken"}
	if err := repo.Apply(ctx, m, "CREATE TABLE ("); err == nil {
		t.Fatal("expected error for invalid SQL, got nil")
	}

	applied, err := repo.IsMigrationApplied(ctx, "009")
	if err != nil {
		t.Fatalf("IsMigrationApplied failed: %v", err)
	}
	if applied {
		t.Error("expected failed migration not to be recorded")
	}
}
