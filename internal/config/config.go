/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Session  SessionConfig  `mapstructure:"session"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Push     PushConfig     `mapstructure:"push"`
	Events   EventsConfig   `mapstructure:"events"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Seed     SeedConfig     `mapstructure:"seed"`
}

type HTTPConfig struct {
	Port         uint16 `mapstructure:"port"`
	ReadTimeout  int64  `mapstructure:"read-timeout"`  // seconds
	WriteTimeout int64  `mapstructure:"write-timeout"` // seconds
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type LogConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max-size"`
	MaxBackups int    `mapstructure:"max-backups"`
	MaxAgeDays int    `mapstructure:"max-age"`
	Compress   bool   `mapstructure:"compress"`
}

type SessionConfig struct {
	SecretKey string        `mapstructure:"secret-key"`
	MaxAge    time.Duration `mapstructure:"max-age"`
	Secure    bool          `mapstructure:"secure"`
}

// AdminConfig lists the identities allowed to run destructive and maintenance operations.
type AdminConfig struct {
	Users  []string `mapstructure:"users"`
	APIKey string   `mapstructure:"api-key"`
}

type PushConfig struct {
	GatewayAddr string        `mapstructure:"gateway-addr"` // empty: notifications are only logged
	QueueSize   int           `mapstructure:"queue-size"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type EventsConfig struct {
	Brokers []string `mapstructure:"brokers"` // empty: events are dropped
	Topic   string   `mapstructure:"topic"`
}

type RealtimeConfig struct {
	Persist    bool   `mapstructure:"persist"`
	Room       string `mapstructure:"room"`
	SendBuffer int    `mapstructure:"send-buffer"`
}

type RelayConfig struct {
	Mode       string      `mapstructure:"mode"` // none|zmq|redis
	InstanceID string      `mapstructure:"instance-id"`
	ZMQ        ZMQConfig   `mapstructure:"zmq"`
	Redis      RedisConfig `mapstructure:"redis"`
}

type ZMQConfig struct {
	BindPort uint16   `mapstructure:"bind-port"`
	Peers    []string `mapstructure:"peers"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type SeedConfig struct {
	Users []SeedUser `mapstructure:"users"`
}

type SeedUser struct {
	UserID   string `mapstructure:"user-id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

const (
	RelayNone  = "none"
	RelayZMQ   = "zmq"
	RelayRedis = "redis"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 3000)
	v.SetDefault("http.read-timeout", 15)
	v.SetDefault("http.write-timeout", 15)
	v.SetDefault("database.dsn", "")
	v.SetDefault("log.enabled", true)
	v.SetDefault("log.format", "text")
	v.SetDefault("log.max-size", 50)
	v.SetDefault("log.max-backups", 5)
	v.SetDefault("log.max-age", 14)
	v.SetDefault("session.max-age", 7*24*time.Hour)
	v.SetDefault("push.queue-size", 256)
	v.SetDefault("push.timeout", 5*time.Second)
	v.SetDefault("events.topic", "chat.lifecycle")
	v.SetDefault("realtime.persist", false)
	v.SetDefault("realtime.room", "all")
	v.SetDefault("realtime.send-buffer", 256)
	v.SetDefault("relay.mode", RelayNone)
	v.SetDefault("relay.zmq.bind-port", 47001)
	v.SetDefault("relay.redis.addr", "localhost:6379")
	v.SetDefault("relay.redis.channel", "chatd.relay")
}

// Load reads the configuration from path (yaml, json or toml, by extension) when it is not empty,
// then applies CHATD_* environment overrides, e.g. CHATD_HTTP_PORT or CHATD_DATABASE_DSN.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CHATD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTP.Port == 0 {
		return fmt.Errorf("http.port must be set")
	}
	if c.Realtime.SendBuffer <= 0 {
		return fmt.Errorf("realtime.send-buffer must be > 0")
	}
	if c.Push.QueueSize <= 0 {
		return fmt.Errorf("push.queue-size must be > 0")
	}
	switch c.Relay.Mode {
	case "", RelayNone:
	case RelayZMQ:
		if c.Relay.ZMQ.BindPort == 0 {
			return fmt.Errorf("relay.zmq.bind-port must be set when relay.mode is zmq")
		}
		if c.Relay.ZMQ.BindPort == c.HTTP.Port {
			return fmt.Errorf("Cannot use the same port for http and relay")
		}
	case RelayRedis:
		if c.Relay.Redis.Addr == "" {
			return fmt.Errorf("relay.redis.addr must be set when relay.mode is redis")
		}
	default:
		return fmt.Errorf("unknown relay.mode %q", c.Relay.Mode)
	}
	for i, u := range c.Seed.Users {
		if u.UserID == "" || u.Password == "" {
			return fmt.Errorf("seed.users[%d] needs user-id and password", i)
		}
	}
	return nil
}
