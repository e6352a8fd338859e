package config

// This file defines a Redis client constructor for the application.  Redis
// backs the distributed rate limiter.  If the server cannot be reached at
// startup the constructor returns nil and callers disable rate limiting.

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
)

// RedisConfig is read with the REDIS_ prefix.  Addr is a host:port
// shorthand; Host and Port take precedence when both are set.
type RedisConfig struct {
	Host     string `split_words:"true"`
	Port     string `split_words:"true"`
	Addr     string `split_words:"true" default:"localhost:6379"`
	Password string `split_words:"true"`
	DB       int    `split_words:"true" default:"0"`
	TLS      bool   `split_words:"true" default:"false"`
}

// Address resolves the host:port to dial.
func (r RedisConfig) Address() string {
	if r.Host != "" && r.Port != "" {
		return r.Host + ":" + r.Port
	}
	return r.Addr
}

func LoadRedisConfig() (RedisConfig, error) {
	var rc RedisConfig
	if err := envconfig.Process("REDIS", &rc); err != nil {
		return RedisConfig{}, fmt.Errorf("load redis config: %w", err)
	}
	return rc, nil
}

// NewRedisClient instantiates a Redis client from rc.  The returned client
// is nil if the server does not answer a ping within two seconds.
func NewRedisClient(rc RedisConfig) *redis.Client {
	var tlsConf *tls.Config
	if rc.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      rc.Address(),
		Password:  rc.Password,
		DB:        rc.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
