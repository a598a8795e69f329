package conf

import (
	"os"

	"gopkg.in/ini.v1"

	"mxact/logger"
)

// Config carries the tunables of the multixact store. All fields have
// working defaults; a missing or unparsable config file is not an error.
type Config struct {
	// DataDir is the directory holding the offsets file, the members file
	// and the write-ahead log.
	DataDir string

	// OffsetBuffers and MemberBuffers are the page cache sizes, in pages,
	// for the offset table and the member table.
	OffsetBuffers int
	MemberBuffers int

	// NoSync disables fsync after page writes. Faster, but pages may be
	// lost on power failure; replay from the log still recovers them.
	NoSync bool

	LogLevel string
}

func Default() *Config {
	return &Config{
		DataDir:       "data",
		OffsetBuffers: 8,
		MemberBuffers: 16,
		NoSync:        false,
		LogLevel:      "info",
	}
}

// Load reads config from an ini file. A missing file or a missing key falls
// back to the default value so a bare deployment needs no config at all.
func Load(path string) *Config {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg
	}

	f, err := ini.Load(path)
	if err != nil {
		logger.Log.Warnf("cannot parse config file %s, using defaults: %v", path, err)
		return cfg
	}

	s := f.Section("multixact")
	cfg.DataDir = s.Key("data_dir").MustString(cfg.DataDir)
	cfg.OffsetBuffers = s.Key("offset_buffers").MustInt(cfg.OffsetBuffers)
	cfg.MemberBuffers = s.Key("member_buffers").MustInt(cfg.MemberBuffers)
	cfg.NoSync = s.Key("no_sync").MustBool(cfg.NoSync)
	cfg.LogLevel = s.Key("log_level").MustString(cfg.LogLevel)

	return cfg
}
