package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
app:
  env: dev
server:
  addr: ":9090"
log:
  level: debug
storage:
  driver: memory
cache:
  driver: memory
tenants:
  - server:
      tenant_id: acme
      token_issuer: https://issuer.example/acme
      access_token_duration: 3600
      refresh_token_duration: 86400
    signing_key:
      kid: k1
      seed: AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA
    clients:
      - tenant_id: acme
        client_id: svc
        client_secret: s3cret
        token_endpoint_auth_method: client_secret_basic
        scopes: [read, write]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if len(cfg.Tenants) != 1 {
		t.Fatalf("tenants = %d", len(cfg.Tenants))
	}
	tenant := cfg.Tenants[0]
	if tenant.Server.TenantID != "acme" || tenant.Server.AccessTokenDuration != 3600 {
		t.Fatalf("tenant = %+v", tenant.Server)
	}
	if tenant.SigningKey.KID != "k1" {
		t.Fatalf("signing key = %+v", tenant.SigningKey)
	}
	if len(tenant.Clients) != 1 || tenant.Clients[0].ClientID != "svc" {
		t.Fatalf("clients = %+v", tenant.Clients)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "tenants: []\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Log.Level != "info" {
		t.Fatalf("defaults: addr=%q level=%q", cfg.Server.Addr, cfg.Log.Level)
	}
	if cfg.Storage.Driver != "memory" || cfg.Cache.Driver != "memory" {
		t.Fatalf("defaults: storage=%q cache=%q", cfg.Storage.Driver, cfg.Cache.Driver)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/tokengate")
	t.Setenv("POSTGRES_MAX_CONNS", "12")

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("level = %q", cfg.Log.Level)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.Postgres.DSN == "" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.Storage.Postgres.MaxConns != 12 {
		t.Fatalf("max conns = %d", cfg.Storage.Postgres.MaxConns)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"unknown driver": `
storage:
  driver: cassandra
`,
		"postgres without dsn": `
storage:
  driver: postgres
`,
		"tenant without issuer": `
tenants:
  - server:
      tenant_id: acme
`,
		"duplicate tenant": `
tenants:
  - server:
      tenant_id: acme
      token_issuer: https://a.example
  - server:
      tenant_id: acme
      token_issuer: https://b.example
`,
		"bad lifetime": `
storage:
  driver: memory
  postgres:
    conn_max_lifetime: not-a-duration
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("invalid config accepted")
			}
		})
	}
}
