package db

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"cardauth/pkg/db/migrations"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrations.Migrations, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatalf("no migrations embedded")
	}
	for _, name := range files {
		body, err := fs.ReadFile(migrations.Migrations, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		text := string(body)
		if !strings.Contains(text, "-- +goose Up") || !strings.Contains(text, "-- +goose Down") {
			t.Fatalf("%s lacks goose annotations", name)
		}
	}

	initial, err := fs.ReadFile(migrations.Migrations, "00001_init.sql")
	if err != nil {
		t.Fatalf("read init: %v", err)
	}
	for _, table := range []string{"users", "password_credentials", "sessions", "one_time_tokens", "invite_codes", "system_settings"} {
		if !strings.Contains(string(initial), "CREATE TABLE "+table+" ") {
			t.Fatalf("init migration does not create %s", table)
		}
	}
	if !strings.Contains(string(initial), "used_by_user_id    BIGINT      REFERENCES users (id) ON DELETE SET NULL") {
		t.Fatalf("redeemer reference must be cleared, not cascaded")
	}
}

func TestMigrateRunsEmbeddedDirectory(t *testing.T) {
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var gotDir string
	gooseUp = func(_ context.Context, _ *sql.DB, dir string) error {
		gotDir = dir
		return nil
	}
	if err := Migrate(context.Background(), nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if gotDir != "." {
		t.Fatalf("expected embedded root, got %q", gotDir)
	}

	boom := errors.New("boom")
	gooseUp = func(context.Context, *sql.DB, string) error { return boom }
	if err := Migrate(context.Background(), nil); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}
}
