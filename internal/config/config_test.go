package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ExtendNewDefault != DefaultConfig().ExtendNewDefault {
		t.Fatalf("ExtendNewDefault = %d, want %d", cfg.ExtendNewDefault, DefaultConfig().ExtendNewDefault)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"extend_new_default": 25}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ExtendNewDefault != 25 {
		t.Fatalf("ExtendNewDefault = %d, want %d", cfg.ExtendNewDefault, 25)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"disabled_tools": ["study_submit", "card_import"]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[0] != "study_submit" {
		t.Errorf("DisabledTools[0] = %q, want %q", cfg.DisabledTools[0], "study_submit")
	}
	if cfg.DisabledTools[1] != "card_import" {
		t.Errorf("DisabledTools[1] = %q, want %q", cfg.DisabledTools[1], "card_import")
	}
}

func TestLoad_DisabledToolsEmpty(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 0 {
		t.Fatalf("DisabledTools = %v, want nil or empty", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	// Global config
	globalConfig := `{"extend_new_default": 30, "disabled_tools": ["study_submit"]}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	// Repo config at repoRoot/.cram/config.json
	cramDir := filepath.Join(repoRoot, ".cram")
	if err := os.MkdirAll(cramDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	repoConfig := `{"extend_new_default": 20, "disabled_tools": ["card_import"]}`
	if err := os.WriteFile(filepath.Join(cramDir, "config.json"), []byte(repoConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	// Repo overrides scalar
	if cfg.ExtendNewDefault != 20 {
		t.Errorf("ExtendNewDefault = %d, want 20 (repo override)", cfg.ExtendNewDefault)
	}

	// Arrays merged
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
}

func TestLoadWithRepo_OnlyGlobal(t *testing.T) {
	globalDir := t.TempDir()
	repoDir := t.TempDir() // No config file

	globalConfig := `{"extend_new_default": 30, "disabled_tools": ["study_submit"]}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, repoDir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if cfg.ExtendNewDefault != 30 {
		t.Errorf("ExtendNewDefault = %d, want 30", cfg.ExtendNewDefault)
	}
	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "study_submit" {
		t.Errorf("DisabledTools = %v, want [study_submit]", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_OnlyRepo(t *testing.T) {
	globalDir := t.TempDir() // No config file
	repoRoot := t.TempDir()

	// Repo config at repoRoot/.cram/config.json
	cramDir := filepath.Join(repoRoot, ".cram")
	if err := os.MkdirAll(cramDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	repoConfig := `{"disabled_tools": ["card_import", "deck_create"]}`
	if err := os.WriteFile(filepath.Join(cramDir, "config.json"), []byte(repoConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	// Default value preserved
	if cfg.ExtendNewDefault != 10 {
		t.Errorf("ExtendNewDefault = %d, want 10 (default)", cfg.ExtendNewDefault)
	}
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoDir := t.TempDir()

	cfg, err := LoadWithRepo(globalDir, repoDir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	// All defaults
	if cfg.ExtendNewDefault != 10 {
		t.Errorf("ExtendNewDefault = %d, want 10", cfg.ExtendNewDefault)
	}
	if len(cfg.DisabledTools) != 0 {
		t.Errorf("DisabledTools = %v, want empty", cfg.DisabledTools)
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{ExtendNewDefault: 40, DBMaxOpenConns: 5}
	overlay := &Config{ExtendNewDefault: 20} // DBMaxOpenConns is 0 (zero value)

	result := Merge(base, overlay)

	if result.ExtendNewDefault != 20 {
		t.Errorf("ExtendNewDefault = %d, want 20 (overlay)", result.ExtendNewDefault)
	}
	if result.DBMaxOpenConns != 5 {
		t.Errorf("DBMaxOpenConns = %d, want 5 (base, overlay is zero)", result.DBMaxOpenConns)
	}
}

func TestMerge_BooleanOr(t *testing.T) {
	base := &Config{AllowUnsafePaths: true}
	overlay := &Config{AllowUnsafePaths: false}

	result := Merge(base, overlay)

	if !result.AllowUnsafePaths {
		t.Error("AllowUnsafePaths should be true (base OR overlay)")
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{DisabledTools: []string{"study_submit", "card_import"}}
	overlay := &Config{DisabledTools: []string{"card_import", "deck_create"}}

	result := Merge(base, overlay)

	if len(result.DisabledTools) != 3 {
		t.Errorf("DisabledTools length = %d, want 3 (merged, deduped)", len(result.DisabledTools))
	}

	// Check all three are present
	has := make(map[string]bool)
	for _, s := range result.DisabledTools {
		has[s] = true
	}
	for _, want := range []string{"study_submit", "card_import", "deck_create"} {
		if !has[want] {
			t.Errorf("DisabledTools missing %q", want)
		}
	}
}

func TestFindRepoConfig_InCurrentDir(t *testing.T) {
	tmpDir := t.TempDir()
	cramDir := filepath.Join(tmpDir, ".cram")
	if err := os.MkdirAll(cramDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	configPath := filepath.Join(cramDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	found := FindRepoConfig(tmpDir)
	if found != configPath {
		t.Errorf("FindRepoConfig() = %q, want %q", found, configPath)
	}
}

func TestFindRepoConfig_InParentDir(t *testing.T) {
	// Create: tmpDir/.cram/config.json
	//         tmpDir/subdir/deeper/
	tmpDir := t.TempDir()
	cramDir := filepath.Join(tmpDir, ".cram")
	if err := os.MkdirAll(cramDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	configPath := filepath.Join(cramDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	subdir := filepath.Join(tmpDir, "subdir", "deeper")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	// Start from subdir, should find config in parent
	found := FindRepoConfig(subdir)
	if found != configPath {
		t.Errorf("FindRepoConfig() = %q, want %q", found, configPath)
	}
}

func TestFindRepoConfig_NotFound(t *testing.T) {
	tmpDir := t.TempDir()
	// No .cram directory

	found := FindRepoConfig(tmpDir)
	if found != "" {
		t.Errorf("FindRepoConfig() = %q, want empty string", found)
	}
}

func TestLoadWithRepo_WalksUpward(t *testing.T) {
	// Create: tmpDir/.cram/config.json with disabled_tools
	//         tmpDir/subdir/
	tmpDir := t.TempDir()
	globalDir := t.TempDir() // Separate global dir

	cramDir := filepath.Join(tmpDir, ".cram")
	if err := os.MkdirAll(cramDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	repoConfig := `{"disabled_tools": ["study_submit"]}`
	if err := os.WriteFile(filepath.Join(cramDir, "config.json"), []byte(repoConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	subdir := filepath.Join(tmpDir, "subdir")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	// Load from subdir, should find repo config in parent
	cfg, err := LoadWithRepo(globalDir, subdir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "study_submit" {
		t.Errorf("DisabledTools = %v, want [study_submit]", cfg.DisabledTools)
	}
}

func TestDefaultConfig_StudyDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ExtendReviewDefault != 50 || cfg.TagLimitDefault != 100 {
		t.Errorf("extend/tag defaults = %d/%d, want 50/100", cfg.ExtendReviewDefault, cfg.TagLimitDefault)
	}
	if cfg.PreviewDelay != 10 || cfg.PreviewAgainSecs != 60 || cfg.PreviewHardSecs != 600 || cfg.PreviewGoodSecs != 0 {
		t.Errorf("preview timing = %d/%d/%d/%d, want 10/60/600/0",
			cfg.PreviewDelay, cfg.PreviewAgainSecs, cfg.PreviewHardSecs, cfg.PreviewGoodSecs)
	}
	if cfg.CounterPolicy != CounterResetOnChange {
		t.Errorf("CounterPolicy = %q, want %q", cfg.CounterPolicy, CounterResetOnChange)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"unknown counter policy", `{"counter_policy": "sometimes"}`},
		{"rollover out of range", `{"day_rollover_hour": 24}`},
		{"negative default", `{"extend_new_default": -1}`},
		{"negative preview", `{"preview_hard_secs": -5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(tt.json), 0600); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			if _, err := Load(tmpDir); err == nil {
				t.Fatalf("Load() expected error for %s", tt.json)
			}
		})
	}
}

func TestLoad_CounterPolicy(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(`{"counter_policy": "preserve"}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CounterPolicy != CounterPreserve {
		t.Errorf("CounterPolicy = %q, want %q", cfg.CounterPolicy, CounterPreserve)
	}
}

func TestBaseDir_FromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)

	got, err := BaseDir()
	if err != nil {
		t.Fatalf("BaseDir() error = %v", err)
	}
	if got != dir {
		t.Errorf("BaseDir() = %q, want %q", got, dir)
	}
}

func TestBaseDir_Default(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, "")
	t.Setenv("HOME", home)

	got, err := BaseDir()
	if err != nil {
		t.Fatalf("BaseDir() error = %v", err)
	}
	if got != filepath.Join(home, ".cram") {
		t.Errorf("BaseDir() = %q, want %q", got, filepath.Join(home, ".cram"))
	}
}
