package conf

import (
	"os"
	"path/filepath"
	"testing"
)

func validBootstrap() *Bootstrap {
	b := &Bootstrap{
		Server:     &Server{},
		Data:       &Data{},
		Settlement: &Settlement{ReleaseBatchSize: 500, AuditRetentionDays: 730},
		Log:        &Log{Level: "info"},
	}
	b.Server.Http.Addr = "0.0.0.0:8000"
	b.Data.Database.Source = "root:root@tcp(127.0.0.1:3306)/marketplace"
	return b
}

func TestValidate(t *testing.T) {
	if err := validBootstrap().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	b := validBootstrap()
	b.Server.Http.Addr = ""
	if err := b.Validate(); err == nil {
		t.Fatal("expected error for missing http addr")
	}

	b = validBootstrap()
	b.Data.Database.Source = ""
	if err := b.Validate(); err == nil {
		t.Fatal("expected error for missing database source")
	}

	b = validBootstrap()
	b.Settlement.AuditRetentionDays = -1
	if err := b.Validate(); err == nil {
		t.Fatal("expected error for negative retention")
	}

	b = validBootstrap()
	b.Log = nil
	if err := b.Validate(); err == nil {
		t.Fatal("expected error for missing log config")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  http:
    addr: 0.0.0.0:8000
data:
  database:
    driver: mysql
    source: root:root@tcp(127.0.0.1:3306)/marketplace
  redis:
    addr: 127.0.0.1:6379
settlement:
  release_batch_size: 100
  audit_retention_days: 365
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if c.Server.Http.Addr != "0.0.0.0:8000" {
		t.Fatalf("unexpected addr %q", c.Server.Http.Addr)
	}
	if c.Settlement.ReleaseBatchSize != 100 {
		t.Fatalf("unexpected batch size %d", c.Settlement.ReleaseBatchSize)
	}

	// 缺失必填项在加载时就拒绝
	if err := os.WriteFile(path, []byte("server:\n  http:\n    addr: \"\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected invalid config rejected")
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
