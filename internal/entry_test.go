package internal

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/starford/atlas/internal/apperr"
	"github.com/starford/atlas/internal/testutil"
)

func requireVec(t *testing.T) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Skipf("sqlite3 not available: %v", err)
	}
	defer db.Close()
	var v string
	if err := db.QueryRow(`SELECT vec_version()`).Scan(&v); err != nil {
		t.Skipf("sqlite-vec not available: %v", err)
	}
}

const testTemplate = "---\ntitle: {{title}}\nkeywords: {{keywords}}\n---\n{{core_idea}}\n\n{{related_links_body}}\n"

func testConfig(t *testing.T, llmURL string) (*Config, string) {
	t.Helper()
	vault, _ := testutil.TestVault(t)
	tmplDir := t.TempDir()
	testutil.WriteFile(t, tmplDir, "moc.md", testTemplate)

	cfg := NewDefaultConfig()
	cfg.App.LogFormat = LogFormatText
	cfg.Vault.Path = vault
	cfg.Output.Dir = filepath.Join(vault, "MOCs")
	cfg.Output.Template = filepath.Join(tmplDir, "moc.md")
	cfg.Catalog.SQLitePath = testutil.TestDBPath(t)
	cfg.LLM.Provider = ProviderOllama
	cfg.LLM.BaseURL = llmURL
	cfg.Pipeline.PromptGuard = "off"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg, vault
}

func TestRun_RequiresConfig(t *testing.T) {
	err := Run(context.Background())
	if !errors.Is(err, apperr.ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
}

func TestBuild_MissingVaultIsConfigError(t *testing.T) {
	cfg, _ := testConfig(t, "http://127.0.0.1:1")
	cfg.Vault.Path = filepath.Join(t.TempDir(), "nope")
	_, err := build(cfg, newLogger(cfg.App, &bytes.Buffer{}))
	if !errors.Is(err, apperr.ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
}

func TestBuild_MissingTemplateIsConfigError(t *testing.T) {
	cfg, _ := testConfig(t, "http://127.0.0.1:1")
	cfg.Output.Template = filepath.Join(t.TempDir(), "missing.md")
	_, err := build(cfg, newLogger(cfg.App, &bytes.Buffer{}))
	if !errors.Is(err, apperr.ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	newLogger(ApplicationConfig{LogFormat: LogFormatText}, &buf).Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("text log = %q", buf.String())
	}
	buf.Reset()
	newLogger(ApplicationConfig{LogFormat: LogFormatJSON}, &buf).Info("hello")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("json log = %q", buf.String())
	}
}

func TestRun_GenerateWritesMOC(t *testing.T) {
	requireVec(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reply, _ := json.Marshal(map[string]any{
			"title":     "Polity Synthesis",
			"core_idea": "Links [[Rights]] and [[Courts]].",
		})
		_ = json.NewEncoder(w).Encode(map[string]string{"response": string(reply)})
	}))
	defer srv.Close()

	cfg, vault := testConfig(t, srv.URL)
	testutil.WriteFile(t, vault, "Polity.md", "---\ntags: [gs2]\n---\n# Polity\n")
	testutil.WriteFile(t, vault, "Rights.md", "# Rights\n")
	testutil.WriteFile(t, vault, "Courts.md", "# Courts\n")
	testutil.WriteFile(t, vault, ".smart-env/multi/notes.ajson",
		testutil.SourceLine(t, "Polity.md", "bge", []float32{1, 0, 0})+
			testutil.SourceLine(t, "Rights.md", "bge", []float32{0.9, 0.1, 0})+
			testutil.SourceLine(t, "Courts.md", "bge", []float32{0.7, 0.3, 0}))

	var out bytes.Buffer
	err := Run(context.Background(),
		WithConfig(cfg),
		WithTarget("Polity.md"),
		WithIO(strings.NewReader(""), &out))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "Polity-Synthesis.md"))
	if err != nil {
		t.Fatalf("MOC not written: %v\nconsole:\n%s", err, out.String())
	}
	parts := strings.SplitN(string(data), "---\n", 3)
	if len(parts) != 3 {
		t.Fatalf("MOC = %q", data)
	}
	var header struct {
		Title    string   `yaml:"title"`
		Keywords []string `yaml:"keywords"`
	}
	if err := yaml.Unmarshal([]byte(parts[1]), &header); err != nil {
		t.Fatalf("header is not YAML: %v\n%s", err, parts[1])
	}
	if header.Title != "Polity Synthesis" || len(header.Keywords) != 0 {
		t.Errorf("header = %+v", header)
	}
	if !strings.Contains(parts[2], "- [[Rights]]\n- [[Courts]]") {
		t.Errorf("body = %q", parts[2])
	}
}

func TestRun_UnknownTargetEndsCleanly(t *testing.T) {
	requireVec(t)

	cfg, _ := testConfig(t, "http://127.0.0.1:1")
	var out bytes.Buffer
	err := Run(context.Background(),
		WithConfig(cfg),
		WithTarget("Missing.md"),
		WithIO(strings.NewReader(""), &out))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "not found") {
		t.Errorf("console = %q", out.String())
	}
}
