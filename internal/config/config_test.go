package config

import "testing"

func TestLoadClampsTopK(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want int
	}{
		{"Default", "", 4},
		{"WithinRange", "10", 10},
		{"AboveCap", "500", MaxTopK},
		{"Zero", "0", 1},
		{"Negative", "-3", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ORCH_RETRIEVAL_TOP_K", tt.env)
			cfg := Load()
			if cfg.Orchestrator.TopK != tt.want {
				t.Errorf("TopK = %d, want %d", cfg.Orchestrator.TopK, tt.want)
			}
		})
	}
}

func TestGetTablePrefix(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"prod", "prod_"},
		{"test", "test_"},
		{"dev", "dev_"},
		{"anything-else", "dev_"},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("TABLE_PREFIX", "")
			if got := getTablePrefix(tt.env); got != tt.want {
				t.Errorf("getTablePrefix(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}
