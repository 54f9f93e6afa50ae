package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Store.Backend != "redis" {
		t.Errorf("Store.Backend = %q", cfg.Store.Backend)
	}
	if cfg.Query.PageSize != 20 || cfg.Query.MaxTerms != 50 || cfg.Query.MaxQueryBytes != 1024 {
		t.Errorf("Query = %+v", cfg.Query)
	}
	if cfg.Index.TermPrefix != "term_" || cfg.Index.DefaultKey != "default" {
		t.Errorf("Index = %+v", cfg.Index)
	}
	if cfg.Kafka.Enabled {
		t.Error("Kafka should be disabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9999
  searchPath: /q
store:
  backend: memory
query:
  pageSize: 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9999 || cfg.Server.SearchPath != "/q" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("Store.Backend = %q", cfg.Store.Backend)
	}
	if cfg.Query.PageSize != 5 {
		t.Errorf("Query.PageSize = %d", cfg.Query.PageSize)
	}
	// Unset fields keep defaults.
	if cfg.Query.MaxTerms != 50 {
		t.Errorf("Query.MaxTerms = %d", cfg.Query.MaxTerms)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EQ_STORE_BACKEND", "memory")
	t.Setenv("EQ_QUERY_PAGE_SIZE", "7")
	t.Setenv("EQ_SERVER_SEARCH_PATH", "/lookup")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("Store.Backend = %q", cfg.Store.Backend)
	}
	if cfg.Query.PageSize != 7 {
		t.Errorf("Query.PageSize = %d", cfg.Query.PageSize)
	}
	if cfg.Server.SearchPath != "/lookup" {
		t.Errorf("Server.SearchPath = %q", cfg.Server.SearchPath)
	}
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("EQ_STORE_BACKEND", "carrier-pigeon")
	if _, err := Load(""); err == nil {
		t.Fatal("unknown backend should fail validation")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("missing file should fail")
	}
}
