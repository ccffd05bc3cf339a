package config

// Redis backs three optional features: the search rate limiter, the search
// response cache and the route analytics counters.  When the server is
// unreachable at startup the caller gets an error and is expected to run
// with those features disabled; bookings never depend on Redis.

import (
    "context"
    "crypto/tls"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig mirrors the REDIS_* environment variables.
type RedisConfig struct {
    Addr        string
    Password    string
    DB          int
    TLS         bool
    DialTimeout time.Duration
}

// LoadRedisConfig reads REDIS_ADDR (or REDIS_HOST + REDIS_PORT),
// REDIS_PASSWORD, REDIS_DB and REDIS_TLS.
func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
        addr = host + ":" + port
    }
    return RedisConfig{
        Addr:        addr,
        Password:    envStr("REDIS_PASSWORD", ""),
        DB:          envInt("REDIS_DB", 0),
        TLS:         envBool("REDIS_TLS", false),
        DialTimeout: envDur("REDIS_DIAL_TIMEOUT", 2*time.Second),
    }
}

// NewRedisClient builds a client and pings it with the dial timeout.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
    var tlsConf *tls.Config
    if cfg.TLS {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(&redis.Options{
        Addr:        cfg.Addr,
        Password:    cfg.Password,
        DB:          cfg.DB,
        TLSConfig:   tlsConf,
        DialTimeout: cfg.DialTimeout,
    })
    pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
    defer cancel()
    if err := client.Ping(pingCtx).Err(); err != nil {
        _ = client.Close()
        return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
    }
    return client, nil
}
