package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Rubinstd/LearningBlockchain/internal/consensus"
	vcrypto "github.com/Rubinstd/LearningBlockchain/internal/crypto"
)

type Config struct {
	Chain ChainConfig
	API   APIConfig
	Log   LogConfig

	// File is the INI file the values were layered on, if any.
	File string
}

type ChainConfig struct {
	Difficulty int
	Digest     string // sha256|sha3-256
}

type APIConfig struct {
	Enabled      bool
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MineTimeout  time.Duration

	APIKey         string
	AllowedOrigins []string

	// Per-IP token bucket for submit and mine.
	RatePerMinute int
	RateBurst     int
}

type LogConfig struct {
	Level  string // debug|info|warn|error
	Format string // json|text
}

func Default() Config {
	return Config{
		Chain: ChainConfig{
			Difficulty: 2,
			Digest:     vcrypto.DigestSHA256,
		},
		API: APIConfig{
			Enabled:       true,
			ListenAddr:    "127.0.0.1:8080",
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  60 * time.Second,
			IdleTimeout:   60 * time.Second,
			MineTimeout:   30 * time.Second,
			RatePerMinute: 120,
			RateBurst:     20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

type Parsed struct {
	Config Config
}

// ParseNodeFlags layers configuration as defaults < INI file < CHAIN_* env < flags.
func ParseNodeFlags(args []string) (Parsed, error) {
	cfg := Default()

	if path := configPath(args); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Parsed{}, err
		}
	}

	fs := flag.NewFlagSet("chain-node", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var (
		_ = fs.String("config", cfg.File, "Path to an INI config file (sections [chain], [api], [log])")

		difficulty = fs.Int("chain.difficulty", envOrInt("CHAIN_DIFFICULTY", cfg.Chain.Difficulty), "Leading zero hex characters required in a block hash")
		digest     = fs.String("chain.digest", envOr("CHAIN_DIGEST", cfg.Chain.Digest), "Block digest: sha256|sha3-256")

		apiEnabled   = fs.Bool("api.enabled", envOrBool("CHAIN_API_ENABLED", cfg.API.Enabled), "Enable HTTP API")
		apiListen    = fs.String("api.listen", envOr("CHAIN_API_LISTEN", cfg.API.ListenAddr), "HTTP API listen address (ip:port)")
		readTimeout  = fs.Duration("api.readTimeout", envOrDuration("CHAIN_API_READ_TIMEOUT", cfg.API.ReadTimeout), "HTTP read timeout")
		writeTimeout = fs.Duration("api.writeTimeout", envOrDuration("CHAIN_API_WRITE_TIMEOUT", cfg.API.WriteTimeout), "HTTP write timeout")
		idleTimeout  = fs.Duration("api.idleTimeout", envOrDuration("CHAIN_API_IDLE_TIMEOUT", cfg.API.IdleTimeout), "HTTP idle timeout")
		mineTimeout  = fs.Duration("api.mineTimeout", envOrDuration("CHAIN_API_MINE_TIMEOUT", cfg.API.MineTimeout), "Upper bound for one proof-of-work search served over HTTP")
		apiKey       = fs.String("api.key", envOr("CHAIN_API_KEY", cfg.API.APIKey), "Optional X-API-Key required for submit and mine")
		origins      = fs.String("api.origins", envOr("CHAIN_API_ORIGINS", strings.Join(cfg.API.AllowedOrigins, ",")), "Comma-separated CORS origins")
		rate         = fs.Int("api.rate", envOrInt("CHAIN_API_RATE", cfg.API.RatePerMinute), "Submit/mine requests per minute per client IP (0 disables)")
		burst        = fs.Int("api.burst", envOrInt("CHAIN_API_BURST", cfg.API.RateBurst), "Rate limiter burst size")

		logLevel  = fs.String("log.level", envOr("CHAIN_LOG_LEVEL", cfg.Log.Level), "Log level: debug|info|warn|error")
		logFormat = fs.String("log.format", envOr("CHAIN_LOG_FORMAT", cfg.Log.Format), "Log format: json|text")
	)

	if err := fs.Parse(args); err != nil {
		return Parsed{}, err
	}

	cfg.Chain.Difficulty = *difficulty
	cfg.Chain.Digest = strings.TrimSpace(*digest)

	cfg.API.Enabled = *apiEnabled
	cfg.API.ListenAddr = strings.TrimSpace(*apiListen)
	cfg.API.ReadTimeout = *readTimeout
	cfg.API.WriteTimeout = *writeTimeout
	cfg.API.IdleTimeout = *idleTimeout
	cfg.API.MineTimeout = *mineTimeout
	cfg.API.APIKey = strings.TrimSpace(*apiKey)
	cfg.API.AllowedOrigins = splitCSV(*origins)
	cfg.API.RatePerMinute = *rate
	cfg.API.RateBurst = *burst

	cfg.Log.Level = strings.TrimSpace(*logLevel)
	cfg.Log.Format = strings.TrimSpace(*logFormat)

	if err := validate(cfg); err != nil {
		return Parsed{}, err
	}

	return Parsed{Config: cfg}, nil
}

func validate(cfg Config) error {
	if cfg.Chain.Difficulty < 0 || cfg.Chain.Difficulty > consensus.MaxDifficulty {
		return fmt.Errorf("chain.difficulty out of range: %d", cfg.Chain.Difficulty)
	}
	if _, err := vcrypto.DigestByName(cfg.Chain.Digest); err != nil {
		return fmt.Errorf("invalid chain.digest: %w", err)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", cfg.Log.Level)
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log.format: %q", cfg.Log.Format)
	}

	if cfg.API.Enabled && cfg.API.ListenAddr == "" {
		return errors.New("api.listen must not be empty when api.enabled=true")
	}
	if cfg.API.MineTimeout <= 0 {
		return errors.New("api.mineTimeout must be > 0")
	}
	if cfg.API.WriteTimeout > 0 && cfg.API.MineTimeout > cfg.API.WriteTimeout {
		return fmt.Errorf("api.mineTimeout (%s) must not exceed api.writeTimeout (%s)", cfg.API.MineTimeout, cfg.API.WriteTimeout)
	}
	if cfg.API.RatePerMinute < 0 {
		return fmt.Errorf("api.rate must be >= 0: %d", cfg.API.RatePerMinute)
	}
	if cfg.API.RatePerMinute > 0 && cfg.API.RateBurst <= 0 {
		return fmt.Errorf("api.burst must be > 0 when api.rate is set: %d", cfg.API.RateBurst)
	}
	return nil
}

// configPath finds -config in args before the full parse, falling back to
// CHAIN_CONFIG.
func configPath(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			break
		}
		name := strings.TrimLeft(a, "-")
		if name == a {
			continue
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return strings.TrimSpace(v)
		}
		if name == "config" && i+1 < len(args) {
			return strings.TrimSpace(args[i+1])
		}
	}
	return envOr("CHAIN_CONFIG", "")
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envOrInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envOrDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(s string) []string {
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		t := strings.TrimSpace(r)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
