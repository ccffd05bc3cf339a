package config // package config loads application configuration from environment variables

import (
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Sub-configurations for optional infrastructure
// (rate limiting, caching, the search log sink) are loaded separately by
// their own Load* functions so that each can fall back to defaults.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time‑to‑live in minutes
    RefreshTTLDays int    // refresh token time‑to‑live in days
    BcryptCost     int    // bcrypt cost for password hashing
    LogLevel       string // zerolog level name
    Booking        BookingConfig
}

// BookingConfig tunes the booking commit path.
type BookingConfig struct {
    // LockTimeout bounds how long a booking waits for the per-train lock
    // before failing with a contention timeout.
    LockTimeout time.Duration
    // PNRMaxAttempts bounds reference regeneration on unique collisions.
    PNRMaxAttempts int
}

// Load reads configuration values from environment variables and returns a
// Config.  Every missing required variable is reported in one error so an
// operator can fix the environment in a single pass.
func Load() (Config, error) {
    var missing []string
    must := func(key string) string {
        v, ok := os.LookupEnv(key)
        if !ok || v == "" {
            missing = append(missing, key)
        }
        return v
    }
    mustInt := func(key string) (int, error) {
        s := must(key)
        if s == "" {
            return 0, nil
        }
        n, err := strconv.Atoi(s)
        if err != nil {
            return 0, fmt.Errorf("invalid int for %s: %q", key, s)
        }
        return n, nil
    }

    cfg := Config{
        Env:       must("APP_ENV"),
        Port:      envStr("APP_PORT", "8080"),
        DBUser:    must("DB_USER"),
        DBPass:    os.Getenv("DB_PASS"),
        DBHost:    must("DB_HOST"),
        DBPort:    envStr("DB_PORT", "3306"),
        DBName:    must("DB_NAME"),
        JWTSecret: must("JWT_SECRET"),
        LogLevel:  envStr("LOG_LEVEL", "info"),
        Booking:   LoadBookingConfig(),
    }
    var err error
    if cfg.AccessTTLMin, err = mustInt("ACCESS_TOKEN_TTL_MIN"); err != nil {
        return Config{}, err
    }
    if cfg.RefreshTTLDays, err = mustInt("REFRESH_TOKEN_TTL_DAYS"); err != nil {
        return Config{}, err
    }
    cfg.BcryptCost = envInt("BCRYPT_COST", 12)

    if len(missing) > 0 {
        return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
    }
    return cfg, nil
}

// LoadBookingConfig reads BOOKING_LOCK_TIMEOUT and PNR_MAX_ATTEMPTS.
func LoadBookingConfig() BookingConfig {
    c := BookingConfig{
        LockTimeout:    envDur("BOOKING_LOCK_TIMEOUT", 5*time.Second),
        PNRMaxAttempts: envInt("PNR_MAX_ATTEMPTS", 10),
    }
    if c.LockTimeout <= 0 {
        c.LockTimeout = 5 * time.Second
    }
    if c.PNRMaxAttempts < 1 {
        c.PNRMaxAttempts = 1
    }
    return c
}
