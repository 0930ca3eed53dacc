// Package settings holds process-wide tunables for the supervisor: the
// deadlines and flags that are not per-provider, and so do not belong in
// config.View.
package settings

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Settings are the supervisor's tunable deadlines and behavior flags.
type Settings struct {
	HandshakeTimeout  time.Duration `toml:"handshake_timeout"`
	DiscoverTimeout   time.Duration `toml:"discover_timeout"`
	CallTimeout       time.Duration `toml:"call_timeout"`
	SpawnGrace        time.Duration `toml:"spawn_grace"`
	InitializedSettle time.Duration `toml:"initialized_settle"`
	TerminateGrace    time.Duration `toml:"terminate_grace"`

	// AutoLoadOnCall, when true, makes Supervisor.Call load an unloaded
	// provider inline rather than returning NotLoaded. Default true,
	// matching the behavior the proxy this was distilled from always took.
	AutoLoadOnCall bool `toml:"auto_load_on_call"`

	// LogRingCapacity bounds the in-memory log ring buffer's entry count.
	LogRingCapacity int `toml:"log_ring_capacity"`
	// LogMaxFileBytes is the size at which the active log file is rotated
	// out to a ".1" backup and a fresh file started.
	LogMaxFileBytes int64 `toml:"log_max_file_bytes"`
	// LogFlushInterval bounds how long a log entry can sit in the write
	// worker's batch before being flushed to disk.
	LogFlushInterval time.Duration `toml:"log_flush_interval"`
}

// Default returns the hardcoded defaults used when no settings file is
// given.
func Default() Settings {
	return Settings{
		HandshakeTimeout:  2 * time.Second,
		DiscoverTimeout:   2 * time.Second,
		CallTimeout:       5 * time.Second,
		SpawnGrace:        500 * time.Millisecond,
		InitializedSettle: 100 * time.Millisecond,
		TerminateGrace:    5 * time.Second,
		AutoLoadOnCall:    true,
		LogRingCapacity:   1000,
		LogMaxFileBytes:   5 * 1024 * 1024,
		LogFlushInterval:  250 * time.Millisecond,
	}
}

// Load reads a TOML file at path and overlays it onto Default(); fields
// absent from the file keep their default value. path == "" returns
// Default() unchanged.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return Settings{}, fmt.Errorf("settings: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("settings: parse %s: %w", path, err)
	}
	return s, nil
}
