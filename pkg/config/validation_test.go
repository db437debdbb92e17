package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDefaultConfigPasses(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.NoError(t, Validate(cfg))
}

func TestValidateMissingKindsDir(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.KindsDir = ""

	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidateMissingTemplateDir(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Processor.TemplateDir = ""

	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidateMissingStagingRoot(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Staging.Root = ""

	assert.Error(t, Validate(cfg))
}

func TestValidateMissingOutputRoot(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Output.Root = ""

	assert.Error(t, Validate(cfg))
}

func TestValidateMetricsPortOutOfRange(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 70000

	assert.Error(t, Validate(cfg))
}

func TestValidateMetricsPortZeroAllowedWhenDisabled(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Enabled = false
	cfg.Metrics.Port = 0

	assert.NoError(t, Validate(cfg))
}
