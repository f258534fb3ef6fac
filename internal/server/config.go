package server

import (
	"time"

	"github.com/danmuck/intentctl/internal/protocol/frame"
	"github.com/danmuck/intentctl/internal/protocol/legacy"
)

// Config defines listener and per-connection limits.
// Zero timeouts leave socket reads and writes unbounded.
//
// LingerLimit and LingerTimeout bound how much unread input is drained,
// and for how long, after the reply is written.
type Config struct {
	Addr            string
	LegacyReadLimit int
	FrameLimits     frame.Limits
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	LingerLimit     int64
	LingerTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:5555",
		LegacyReadLimit: legacy.ReadLimit,
		FrameLimits:     frame.DefaultLimits(),
		LingerLimit:     int64(frame.DefaultLimits().MaxPayloadBytes),
		LingerTimeout:   time.Second,
	}
}

// WithDefaults fills zero-valued limits from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.LegacyReadLimit <= 0 {
		c.LegacyReadLimit = def.LegacyReadLimit
	}
	if c.FrameLimits.MaxPayloadBytes == 0 {
		c.FrameLimits = def.FrameLimits
	}
	if c.LingerLimit <= 0 {
		c.LingerLimit = def.LingerLimit
	}
	if c.LingerTimeout <= 0 {
		c.LingerTimeout = def.LingerTimeout
	}
	return c
}
