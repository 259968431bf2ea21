package config_test

import (
	"testing"

	"github.com/kontext-run/kontext-core/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("KONTEXT_DATA_DIR", "")
	cfg := config.Load()
	assert.Equal(t, ".kontext", cfg.DataDir)
}

func TestLoad_Override(t *testing.T) {
	t.Setenv("KONTEXT_DATA_DIR", "/var/lib/kontext")
	cfg := config.Load()
	assert.Equal(t, "/var/lib/kontext", cfg.DataDir)
}
