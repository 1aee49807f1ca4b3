package config

import "time"

// DefaultConfig returns the built-in configuration used when no config
// file is present. Values mirror the limits enforced by the upload
// validator (16MB ceiling, browser image formats).
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 8080,
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Web: WebConfig{
			Enabled:   true,
			StaticDir: "./web",
		},
		Upload: UploadConfig{
			Dir:            "data/uploads",
			MaxFileSize:    16 * 1024 * 1024,
			AllowedFormats: []string{"png", "jpg", "jpeg", "gif", "webp"},
			MaxWidth:       5000,
			MaxHeight:      5000,
			MaxPixels:      25_000_000,
		},
		Prediction: PredictionConfig{
			ForceTier: "",
		},
		Cache: CacheConfig{
			Enabled: true,
			Driver:  "memory",
			TTL:     time.Hour,
			Memory: &MemoryCacheConfig{
				GCInterval: 5 * time.Minute,
			},
		},
		Storage: StorageConfig{
			Enabled:      true,
			Dir:          "data",
			File:         "plantdoc.db",
			HistoryLimit: 20,
		},
	}
}
