package drcconfig

import "testing"

func TestFromEnvironmentDefaultsWhenUnset(t *testing.T) {
	t.Setenv("DRC_CACHE_BYTES", "")
	t.Setenv("DRC_DEBUG_HOOK", "")
	t.Setenv("DRC_CACHE_LINE", "")

	cfg := FromEnvironment(Config{CacheBytes: 4096, CacheLine: 64})
	if cfg.CacheBytes != 4096 {
		t.Errorf("CacheBytes = %d, want default 4096", cfg.CacheBytes)
	}
	if cfg.CacheLine != 64 {
		t.Errorf("CacheLine = %d, want default 64", cfg.CacheLine)
	}
	if cfg.DebugHook {
		t.Errorf("DebugHook should default to false when unset")
	}
}

func TestFromEnvironmentOverridesCacheBytes(t *testing.T) {
	t.Setenv("DRC_CACHE_BYTES", "8192")
	t.Setenv("DRC_CACHE_LINE", "")
	t.Setenv("DRC_DEBUG_HOOK", "")

	cfg := FromEnvironment(Config{CacheBytes: 4096})
	if cfg.CacheBytes != 8192 {
		t.Errorf("CacheBytes = %d, want env override 8192", cfg.CacheBytes)
	}
}

func TestFromEnvironmentOverridesDebugHook(t *testing.T) {
	t.Setenv("DRC_DEBUG_HOOK", "true")
	t.Setenv("DRC_CACHE_BYTES", "")
	t.Setenv("DRC_CACHE_LINE", "")

	cfg := FromEnvironment(Config{})
	if !cfg.DebugHook {
		t.Errorf("DebugHook should be true when DRC_DEBUG_HOOK=true")
	}
}

func TestFromEnvironmentOverridesCacheLine(t *testing.T) {
	t.Setenv("DRC_CACHE_LINE", "32")
	t.Setenv("DRC_CACHE_BYTES", "")
	t.Setenv("DRC_DEBUG_HOOK", "")

	cfg := FromEnvironment(Config{CacheLine: 64})
	if cfg.CacheLine != 32 {
		t.Errorf("CacheLine = %d, want env override 32", cfg.CacheLine)
	}
}
