// Package drcconfig reads the small set of environment overrides the
// back-end honors: code-cache size, the debug-hook enable bit, and a
// cache-line-size override for block alignment. It wraps
// github.com/xyproto/env/v2 for typed, defaulted env-var parsing.
package drcconfig

import (
	"os"

	"github.com/xyproto/env/v2"
)

// Config holds the resolved settings a Backend is constructed with.
type Config struct {
	// CacheBytes is the size of the mmap'd executable region. Zero means
	// "use drccache's own default".
	CacheBytes int

	// DebugHook enables the instruction_hook call, gated at codegen time
	// so blocks compiled with it off pay no per-instruction cost.
	DebugHook bool

	// CacheLine overrides the cache's block alignment; zero means the
	// fixed default of 64 bytes.
	CacheLine int
}

// FromEnvironment reads DRC_CACHE_BYTES, DRC_DEBUG_HOOK and
// DRC_CACHE_LINE, defaulting each to the given fallback when unset.
func FromEnvironment(defaults Config) Config {
	debugHook := defaults.DebugHook
	if os.Getenv("DRC_DEBUG_HOOK") != "" {
		debugHook = env.Bool("DRC_DEBUG_HOOK")
	}
	return Config{
		CacheBytes: env.Int("DRC_CACHE_BYTES", defaults.CacheBytes),
		DebugHook:  debugHook,
		CacheLine:  env.Int("DRC_CACHE_LINE", defaults.CacheLine),
	}
}
