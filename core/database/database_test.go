package database

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", User: "bot", Password: "p ss'w", Name: "sheets"}
	want := `user=bot password='p ss\'w' host=db port=5432 dbname=sheets sslmode=disable`
	if got := cfg.DSN(); got != want {
		t.Fatalf("DSN() = %q\nwant %q", got, want)
	}
}

func TestConfigURL(t *testing.T) {
	cfg := Config{Host: "db", Port: "6543", User: "bot", Password: "p@ss", Name: "sheets", SSLMode: "require"}
	want := "postgres://bot:p%40ss@db:6543/sheets?sslmode=require"
	if got := cfg.URL(); got != want {
		t.Fatalf("URL() = %q\nwant %q", got, want)
	}
}

func TestConfigMigrations(t *testing.T) {
	if got := (Config{}).Migrations(); got != DefaultMigrationsDir {
		t.Fatalf("default = %q", got)
	}
	if got := (Config{MigrationsDir: "/srv/sql"}).Migrations(); got != "/srv/sql" {
		t.Fatalf("custom = %q", got)
	}
	if (Config{Host: " "}).Enabled() {
		t.Fatal("blank host must disable the database")
	}
}

func TestUpFilesAndBetween(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000002_add_patch.up.sql",
		"000001_create_sheet_snapshots.up.sql",
		"000001_create_sheet_snapshots.down.sql",
		"000003_index.up.sql",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	files := upFiles(dir)
	want := []string{"000001_create_sheet_snapshots.up.sql", "000002_add_patch.up.sql", "000003_index.up.sql"}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("upFiles = %v", files)
	}
	if got := between(files, 1, 3); !reflect.DeepEqual(got, want[1:]) {
		t.Fatalf("between = %v", got)
	}
	if got := between(files, 3, 3); got != nil {
		t.Fatalf("no change = %v", got)
	}
}
