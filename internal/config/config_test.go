package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/matzehuels/boardsync/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	writeFile(t, dir, DefaultFile, `
[server]
addr = ":9000"
shutdown_timeout = "3s"

[miro]
client_id = "from-toml"
board_id = "uXjVO1aBcDe="

[layout]
provider = "remote"
remote_url = "http://graphviz.internal/api/graphviz"
workers = 2

[sync]
base_delay = "250ms"
id_column = "Key"

[sync.templates.service]
shape = "round_rectangle"
width = 200.0
height = 100.0
`)
	writeFile(t, dir, ".env", "MIRO_CLIENT_SECRET=from-dotenv\nMIRO_CLIENT_ID=from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("MIRO_CLIENT_SECRET") })
	t.Setenv("MIRO_CLIENT_ID", "from-env")
	t.Setenv("BOARDSYNC_LAYOUT_WORKERS", "4")

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.ShutdownTimeout != 3*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Miro.ClientID != "from-env" {
		t.Errorf("client id = %q, want env to win", cfg.Miro.ClientID)
	}
	if cfg.Miro.ClientSecret != "from-dotenv" {
		t.Errorf("client secret = %q, want .env value", cfg.Miro.ClientSecret)
	}
	if cfg.Layout.Workers != 4 || cfg.Layout.Provider != ProviderRemote {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if cfg.Sync.BaseDelay != 250*time.Millisecond || cfg.Sync.IDColumn != "Key" || cfg.Sync.LabelColumn != "label" {
		t.Errorf("sync = %+v", cfg.Sync)
	}
	if tpl := cfg.Sync.Templates["service"]; tpl.Shape != "round_rectangle" || tpl.Width != 200 {
		t.Errorf("templates = %+v", cfg.Sync.Templates)
	}
	if got := cfg.RedirectURL(); got != "http://localhost:8080/auth/callback" {
		t.Errorf("RedirectURL = %q", got)
	}
}

func TestLoadWithoutFiles(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.Provider != ProviderBundled || cfg.Sync.Attempts != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	tests := []struct {
		name string
		toml string
		env  map[string]string
		path string
	}{
		{name: "explicit missing file", path: filepath.Join(dir, "nope.toml")},
		{name: "unknown key", toml: "[server]\nport = 1\n"},
		{name: "bad toml", toml: "[server\n"},
		{name: "bad provider", toml: "[layout]\nprovider = \"wasm\"\n"},
		{name: "remote without url", toml: "[layout]\nprovider = \"remote\"\n"},
		{name: "bad algorithm", toml: "[layout]\nalgorithm = \"spiral\"\n"},
		{name: "bad nested algorithm", toml: "[layout]\nnested_algorithm = \"layered\"\n"},
		{name: "zero attempts", toml: "[sync]\nattempts = 0\n"},
		{name: "bad board id", toml: "[miro]\nboard_id = \"a/b\"\n"},
		{name: "bad env int", env: map[string]string{"BOARDSYNC_LAYOUT_WORKERS": "many"}},
		{name: "bad env duration", env: map[string]string{"BOARDSYNC_SYNC_BASE_DELAY": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path
			if tt.toml != "" {
				path = writeFile(t, t.TempDir(), "cfg.toml", tt.toml)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(path, ""); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}
}

func TestValidateCodes(t *testing.T) {
	cfg := Default()
	cfg.Layout.Algorithm = "spiral"
	if err := cfg.Validate(); !apperrors.Is(err, apperrors.ErrCodeInvalidAlgorithm) {
		t.Errorf("err = %v, want INVALID_ALGORITHM", err)
	}
}

func TestApplyEnvIgnoresBlank(t *testing.T) {
	cfg := Default()
	env := map[string]string{"BOARDSYNC_ADDR": "  ", "MIRO_BURST": "5"}
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Miro.Burst != 5 {
		t.Errorf("server addr %q burst %d", cfg.Server.Addr, cfg.Miro.Burst)
	}
}

func TestColumnsAndLayoutOptions(t *testing.T) {
	cfg := Default()
	cfg.Layout.NestedAlgorithm = "box"
	if cols := cfg.Columns(); cols.IDColumn != "id" || cols.TemplateColumn != "template" || cols.DefaultTemplate != "rectangle" {
		t.Errorf("Columns = %+v", cols)
	}
	if opts := cfg.LayoutOptions(); opts.Algorithm != "layered" || opts.NestedAlgorithm != "box" {
		t.Errorf("LayoutOptions = %+v", opts)
	}
}
