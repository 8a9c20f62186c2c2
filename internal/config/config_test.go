// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestConfig sets HOLIDAYCTL_CFG to point to a test config file.
// Returns cleanup function that should be deferred.
func setupTestConfig(t *testing.T, testdataFile string) (cleanup func()) {
	t.Helper()

	configPath := filepath.Join("testdata", testdataFile)
	absPath, err := filepath.Abs(configPath)
	require.NoError(t, err, "failed to get absolute path for test config")

	t.Setenv("HOLIDAYCTL_CFG", absPath)

	// Reset the global Config to force reload
	Config = Type{}

	return func() {
		Config = Type{}
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		testFile  string
		checkFunc func(*testing.T, Type)
	}{
		{
			name:     "simple string values",
			testFile: "simple.yaml",
			checkFunc: func(t *testing.T, cfg Type) {
				assert.NotEmpty(t, cfg.Source)
				assert.Equal(t, "https://date.nager.at/api/v3", cfg.Data["base_url"])
				assert.Equal(t, "en-US", cfg.Data["locale"])
			},
		},
		{
			name:     "nested structure",
			testFile: "nested.yaml",
			checkFunc: func(t *testing.T, cfg Type) {
				cache, ok := cfg.Data["cache"].(map[string]interface{})
				require.True(t, ok, "cache should be a map")
				s3, ok := cache["s3"].(map[string]interface{})
				require.True(t, ok, "s3 should be a map")
				assert.Equal(t, "us-west-2", s3["region"])
				assert.Equal(t, "holiday-cache", s3["bucket"])
			},
		},
		{
			name:     "mixed types",
			testFile: "mixed-types.yaml",
			checkFunc: func(t *testing.T, cfg Type) {
				assert.Equal(t, "holidayctl", cfg.Data["name"])
				assert.Equal(t, 1, cfg.Data["version"])
				assert.Equal(t, true, cfg.Data["titles"])
				assert.Equal(t, 30.5, cfg.Data["timeout"])
				years, ok := cfg.Data["years"].([]interface{})
				assert.True(t, ok)
				assert.Len(t, years, 2)
			},
		},
		{
			name:     "empty file",
			testFile: "empty.yaml",
			checkFunc: func(t *testing.T, cfg Type) {
				// Empty YAML unmarshals to nil map, which is acceptable
				assert.NotEmpty(t, cfg.Source, "should have a source path")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := setupTestConfig(t, tt.testFile)
			defer cleanup()

			cfg, err := Load()
			require.NoError(t, err)
			tt.checkFunc(t, cfg)
		})
	}
}

func TestLoad_ExplicitPathWins(t *testing.T) {
	cleanup := setupTestConfig(t, "simple.yaml")
	defer cleanup()

	cfg, err := Load(filepath.Join("testdata", "nested.yaml"))
	require.NoError(t, err)
	assert.Contains(t, cfg.Source, "nested.yaml")
}

func TestLoad_NoConfigFile(t *testing.T) {
	t.Setenv("HOLIDAYCTL_CFG", "/nonexistent/path/holidayctl.yaml")
	Config = Type{}

	_, err := Load()
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoad_StandardLocations(t *testing.T) {
	t.Setenv("HOLIDAYCTL_CFG", "")
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("APPDATA", "")
	t.Setenv("HOME", t.TempDir())
	Config = Type{}

	_, err := Load()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_CFG_IsDirectory(t *testing.T) {
	t.Setenv("HOLIDAYCTL_CFG", "testdata")
	Config = Type{}

	_, err := Load()
	assert.ErrorIs(t, err, ErrNotAFile)
	assert.Contains(t, err.Error(), "points to a directory")
}

func TestGetString(t *testing.T) {
	tests := []struct {
		name         string
		testFile     string
		key          string
		defaultValue []string
		want         string
		wantErr      bool
	}{
		{
			name:     "simple string value",
			testFile: "simple.yaml",
			key:      "locale",
			want:     "en-US",
		},
		{
			name:     "nested string value",
			testFile: "nested.yaml",
			key:      "cache.s3.region",
			want:     "us-west-2",
		},
		{
			name:         "missing key with default",
			testFile:     "simple.yaml",
			key:          "missing",
			defaultValue: []string{"default-value"},
			want:         "default-value",
		},
		{
			name:     "missing key without default",
			testFile: "simple.yaml",
			key:      "missing",
			wantErr:  true,
		},
		{
			name:     "non-string value",
			testFile: "mixed-types.yaml",
			key:      "version",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := setupTestConfig(t, tt.testFile)
			defer cleanup()

			_, _ = Load()

			got, err := GetString(tt.key, tt.defaultValue...)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetInt(t *testing.T) {
	tests := []struct {
		name         string
		testFile     string
		key          string
		defaultValue []int
		want         int
		wantErr      bool
	}{
		{
			name:     "int value",
			testFile: "mixed-types.yaml",
			key:      "version",
			want:     1,
		},
		{
			name:     "float value converted to int",
			testFile: "mixed-types.yaml",
			key:      "timeout",
			want:     30,
		},
		{
			name:     "nested int value",
			testFile: "nested.yaml",
			key:      "cache.s3.max_retries",
			want:     5,
		},
		{
			name:         "missing key with default",
			testFile:     "simple.yaml",
			key:          "missing",
			defaultValue: []int{60},
			want:         60,
		},
		{
			name:     "missing key without default",
			testFile: "simple.yaml",
			key:      "missing",
			wantErr:  true,
		},
		{
			name:     "non-int value",
			testFile: "simple.yaml",
			key:      "locale",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := setupTestConfig(t, tt.testFile)
			defer cleanup()

			_, _ = Load()

			got, err := GetInt(tt.key, tt.defaultValue...)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetDuration(t *testing.T) {
	tests := []struct {
		name     string
		testFile string
		key      string
		def      []time.Duration
		want     time.Duration
		wantErr  bool
	}{
		{name: "duration string", testFile: "nested.yaml", key: "cache.ttl", want: 720 * time.Hour},
		{name: "float seconds", testFile: "mixed-types.yaml", key: "timeout", want: 30500 * time.Millisecond},
		{name: "int seconds", testFile: "mixed-types.yaml", key: "version", want: time.Second},
		{name: "default", testFile: "simple.yaml", key: "timeout", def: []time.Duration{15 * time.Second}, want: 15 * time.Second},
		{name: "not a duration", testFile: "simple.yaml", key: "locale", wantErr: true},
		{name: "wrong type", testFile: "mixed-types.yaml", key: "titles", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := setupTestConfig(t, tt.testFile)
			defer cleanup()

			got, err := GetDuration(tt.key, tt.def...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetBool(t *testing.T) {
	cleanup := setupTestConfig(t, "mixed-types.yaml")
	defer cleanup()

	got, err := GetBool("titles")
	assert.NoError(t, err)
	assert.True(t, got)

	got, err = GetBool("color", true)
	assert.NoError(t, err)
	assert.True(t, got)

	_, err = GetBool("name")
	assert.Error(t, err)
}

func TestGetStringSlice(t *testing.T) {
	cleanup := setupTestConfig(t, "nested.yaml")
	defer cleanup()

	got, err := GetStringSlice("holidays.defaults")
	assert.NoError(t, err)
	assert.Equal(t, []string{"--titles", "--output json"}, got)

	_, err = GetStringSlice("cache.store")
	assert.Error(t, err)

	_, err = GetStringSlice("holidays.missing")
	assert.Error(t, err)
}

func TestConfig_GetWithNamespace(t *testing.T) {
	cleanup := setupTestConfig(t, "nested.yaml")
	defer cleanup()

	_, err := Load()
	require.NoError(t, err)

	Config.Namespace = "cache.s3"

	// Should find namespaced value first
	val, err := Config.get("region")
	assert.NoError(t, err)
	assert.Equal(t, "us-west-2", val)

	val, err = Config.get("bucket")
	assert.NoError(t, err)
	assert.Equal(t, "holiday-cache", val)

	Config.Namespace = "cache.local"
	val, err = Config.get("region")
	assert.NoError(t, err)
	assert.Equal(t, "us-east-1", val)

	val, err = Config.get("bucket")
	assert.NoError(t, err)
	assert.Equal(t, "local-bucket", val)
}

func TestConfig_GetNestedPath(t *testing.T) {
	cleanup := setupTestConfig(t, "deep-nested.yaml")
	defer cleanup()

	_, err := Load()
	require.NoError(t, err)

	val, err := Config.get("level1.level2.level3.value")
	assert.NoError(t, err)
	assert.Equal(t, "deep-value", val)
}

func TestConfig_LazyLoad(t *testing.T) {
	cleanup := setupTestConfig(t, "simple.yaml")
	defer cleanup()

	// Don't explicitly call Load(), just use GetString
	val, err := GetString("locale")
	assert.NoError(t, err)
	assert.Equal(t, "en-US", val)
	assert.NotEmpty(t, Config.Source, "Config should be loaded")
}

func TestGetString_NamespaceFallback(t *testing.T) {
	cleanup := setupTestConfig(t, "namespace.yaml")
	defer cleanup()

	_, err := Load()
	require.NoError(t, err)

	Config.Namespace = "holidays"

	val, err := GetString("setting")
	assert.NoError(t, err)
	assert.Equal(t, "holidays-value", val)

	val, err = GetString("specific")
	assert.NoError(t, err)
	assert.Equal(t, "holidays-specific", val)

	// Non-existent key should still error
	_, err = GetString("nonexistent")
	assert.Error(t, err)
}
