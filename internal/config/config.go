// Package config handles runtime settings for the relay server: development
// defaults, environment-variable overlay, then command-line flags.
package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Eviction policies applied when a device mailbox hits MaxQueueDepth.
const (
	EvictRejectNew  = "reject-new"
	EvictDropOldest = "drop-oldest"
)

type Config struct {
	HTTPAddr string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MongoURI      string
	MongoDatabase string

	// Delivery queue bounds.
	MaxQueueDepth  int
	EvictionPolicy string

	// Encrypted file uploads.
	MaxUploadBytes  int64
	DownloadMaxUses int
	DownloadTTL     time.Duration
}

// LoadDefaults populates Config with development defaults. Override for
// anything beyond local use.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = "localhost:9090"
	c.RedisAddr = "localhost:6379"
	c.RedisPassword = ""
	c.RedisDB = 0
	c.MongoURI = "mongodb://localhost:27017"
	c.MongoDatabase = "e2e_relay"
	c.MaxQueueDepth = 1000
	c.EvictionPolicy = EvictRejectNew
	c.MaxUploadBytes = 100 << 20 // 100 MB
	c.DownloadMaxUses = 1
	c.DownloadTTL = 24 * time.Hour
}

// Load builds a Config by applying defaults, then environment variables,
// then command-line flags.
func Load() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.parseEnv()
	cfg.parseFlags(os.Args[1:])
	return cfg
}

func (c *Config) parseEnv() {
	envString("RELAY_HTTP_ADDR", &c.HTTPAddr)
	envString("RELAY_REDIS_ADDR", &c.RedisAddr)
	envString("RELAY_REDIS_PASSWORD", &c.RedisPassword)
	envInt("RELAY_REDIS_DB", &c.RedisDB)
	envString("RELAY_MONGO_URI", &c.MongoURI)
	envString("RELAY_MONGO_DATABASE", &c.MongoDatabase)
	envInt("RELAY_MAX_QUEUE_DEPTH", &c.MaxQueueDepth)
	envString("RELAY_EVICTION_POLICY", &c.EvictionPolicy)
	envInt64("RELAY_MAX_UPLOAD_BYTES", &c.MaxUploadBytes)
	envInt("RELAY_DOWNLOAD_MAX_USES", &c.DownloadMaxUses)
	envDuration("RELAY_DOWNLOAD_TTL", &c.DownloadTTL)
}

func (c *Config) parseFlags(args []string) {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	fs.StringVar(&c.HTTPAddr, "a", c.HTTPAddr, "HTTP listen address")
	fs.StringVar(&c.RedisAddr, "r", c.RedisAddr, "Redis address")
	fs.StringVar(&c.MongoURI, "m", c.MongoURI, "MongoDB URI")
	fs.IntVar(&c.MaxQueueDepth, "max-queue-depth", c.MaxQueueDepth, "max envelopes per device mailbox")
	fs.StringVar(&c.EvictionPolicy, "eviction-policy", c.EvictionPolicy, "reject-new or drop-oldest")
	_ = fs.Parse(args)
}

func envString(name string, dst *string) {
	if v, ok := os.LookupEnv(name); ok {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v, ok := os.LookupEnv(name); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(name string, dst *int64) {
	if v, ok := os.LookupEnv(name); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if v, ok := os.LookupEnv(name); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
