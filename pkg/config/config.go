package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port string `mapstructure:"port"`

	// Transport limits. MaxFrameBytes caps a single websocket frame
	// (chunk bytes plus envelope overhead); MaxMediaBytes caps one
	// assembled media payload.
	MaxFrameBytes int   `mapstructure:"max_frame_bytes"`
	MaxMediaBytes int64 `mapstructure:"max_media_bytes"`

	// RoomEvictionGrace is how long an empty room keeps its history
	// before the log is discarded.
	RoomEvictionGrace time.Duration `mapstructure:"room_eviction_grace"`

	// UploadIdleTTL evicts chunk-upload sessions that stop receiving
	// chunks before completing.
	UploadIdleTTL time.Duration `mapstructure:"upload_idle_ttl"`

	// MediaStore selects where assembled binaries live: "memory" or "minio".
	MediaStore string `mapstructure:"media_store"`

	MinIO MinIOConfig `mapstructure:"minio"`
}

// MinIOConfig definition minio setting
type MinIOConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Bucket        string `mapstructure:"bucket"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// Defaults fill zero-valued limits with the served defaults.
func (c *Chat) Defaults() {
	if c.Port == "" {
		c.Port = "3000"
	}
	if c.MaxFrameBytes == 0 {
		c.MaxFrameBytes = 10 << 20 // 10MB, matches the transport buffer cap
	}
	if c.MaxMediaBytes == 0 {
		c.MaxMediaBytes = 10 << 20
	}
	if c.RoomEvictionGrace == 0 {
		c.RoomEvictionGrace = time.Second
	}
	if c.UploadIdleTTL == 0 {
		c.UploadIdleTTL = 60 * time.Second
	}
	if c.MediaStore == "" {
		c.MediaStore = "memory"
	}
}
