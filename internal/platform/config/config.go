package config

import (
	"time"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Web        WebConfig        `yaml:"web"`
	Upload     UploadConfig     `yaml:"upload"`
	Prediction PredictionConfig `yaml:"prediction"`
	Cache      CacheConfig      `yaml:"cache"`
	Storage    StorageConfig    `yaml:"storage"`
}

type ServerConfig struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type WebConfig struct {
	Enabled   bool   `yaml:"enabled"`
	StaticDir string `yaml:"static_dir"`
}

type UploadConfig struct {
	Dir            string   `yaml:"dir"`
	MaxFileSize    int64    `yaml:"max_file_size"`
	AllowedFormats []string `yaml:"allowed_formats"`
	MaxWidth       int      `yaml:"max_width"`
	MaxHeight      int      `yaml:"max_height"`
	MaxPixels      int64    `yaml:"max_pixels"`
}

type PredictionConfig struct {
	// ForceTier pins the capability tier instead of probing ("full",
	// "image_only", "none"). Empty means probe at startup.
	ForceTier string `yaml:"force_tier"`
}

type CacheConfig struct {
	Enabled bool              `yaml:"enabled"`
	Driver  string            `yaml:"driver"`
	TTL     time.Duration     `yaml:"ttl"`
	Redis   *RedisCacheConfig `yaml:"redis,omitempty"`
	Memory  *MemoryCacheConfig `yaml:"memory,omitempty"`
}

type RedisCacheConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type MemoryCacheConfig struct {
	GCInterval time.Duration `yaml:"gc_interval"`
}

type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	File    string `yaml:"file"`
	// HistoryLimit caps how many recent analyses the API returns.
	HistoryLimit int `yaml:"history_limit"`
}
