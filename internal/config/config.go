package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "ARBSCOPE"

// Fetch holds the RPC and fan-out settings shared by scan and discover.
type Fetch struct {
	Registry     string
	RPC          map[uint64]string
	Concurrency  int
	MaxRetries   int
	RetryBackoff time.Duration
	CallTimeout  time.Duration
}

// Sinks holds the optional outputs of a detection run.
type Sinks struct {
	Out         string
	PGDSN       string
	RedisAddr   string
	RedisKey    string
	RedisTTL    time.Duration
	RedisNotify string
	MetricsFile string
}

// ScanConfig holds configuration for the scan command.
type ScanConfig struct {
	Fetch
	Sinks
	PricesOut     string
	MinMultiplier float64
	LogLevel      string
}

// DetectConfig holds configuration for the detect command.
type DetectConfig struct {
	Sinks
	In            string
	MinMultiplier float64
	LogLevel      string
}

// DiscoverConfig holds configuration for the discover command.
type DiscoverConfig struct {
	Fetch
	Out      string
	FeeTiers []uint32
	LogLevel string
}

// LoadEnvFile loads KEY=VALUE pairs into the process environment without
// overriding variables that are already set. An empty path is a no-op.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// LoadScan merges config file, environment variables, and flags into ScanConfig.
func LoadScan(cfgFile string, flags *pflag.FlagSet) (ScanConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		setFetchDefaults(v)
		setSinkDefaults(v)
		v.SetDefault("out", "-")
		v.SetDefault("min-multiplier", 1.01)
	})
	if err != nil {
		return ScanConfig{}, err
	}

	fetch, err := loadFetch(v)
	if err != nil {
		return ScanConfig{}, err
	}
	cfg := ScanConfig{
		Fetch:         fetch,
		Sinks:         loadSinks(v),
		PricesOut:     v.GetString("prices-out"),
		MinMultiplier: v.GetFloat64("min-multiplier"),
		LogLevel:      v.GetString("log-level"),
	}
	return cfg, nil
}

// LoadDetect merges config file, environment variables, and flags into DetectConfig.
func LoadDetect(cfgFile string, flags *pflag.FlagSet) (DetectConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		setSinkDefaults(v)
		v.SetDefault("out", "-")
		v.SetDefault("in", "./data/prices.jsonl")
		v.SetDefault("min-multiplier", 1.01)
	})
	if err != nil {
		return DetectConfig{}, err
	}

	cfg := DetectConfig{
		Sinks:         loadSinks(v),
		In:            v.GetString("in"),
		MinMultiplier: v.GetFloat64("min-multiplier"),
		LogLevel:      v.GetString("log-level"),
	}
	if cfg.In == "" {
		return DetectConfig{}, fmt.Errorf("input file is required")
	}
	return cfg, nil
}

// LoadDiscover merges config file, environment variables, and flags into DiscoverConfig.
func LoadDiscover(cfgFile string, flags *pflag.FlagSet) (DiscoverConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		setFetchDefaults(v)
		v.SetDefault("out", "./data/registry.discovered.yaml")
		v.SetDefault("fee-tiers", "100,500,3000,10000")
	})
	if err != nil {
		return DiscoverConfig{}, err
	}

	fetch, err := loadFetch(v)
	if err != nil {
		return DiscoverConfig{}, err
	}
	tiers, err := parseFeeTiers(getStringSlice(v, "fee-tiers"))
	if err != nil {
		return DiscoverConfig{}, err
	}
	cfg := DiscoverConfig{
		Fetch:    fetch,
		Out:      v.GetString("out"),
		FeeTiers: tiers,
		LogLevel: v.GetString("log-level"),
	}
	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(v *viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func setFetchDefaults(v *viper.Viper) {
	v.SetDefault("registry", "./registry.yaml")
	v.SetDefault("concurrency", 8)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 250*time.Millisecond)
	v.SetDefault("call-timeout", 10*time.Second)
}

func setSinkDefaults(v *viper.Viper) {
	v.SetDefault("redis-key", "arbscope:opportunities")
	v.SetDefault("redis-ttl", 2*time.Minute)
}

func loadFetch(v *viper.Viper) (Fetch, error) {
	rpc, err := parseRPCMap(getStringMap(v, "rpc"))
	if err != nil {
		return Fetch{}, err
	}
	cfg := Fetch{
		Registry:     v.GetString("registry"),
		RPC:          rpc,
		Concurrency:  v.GetInt("concurrency"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		CallTimeout:  v.GetDuration("call-timeout"),
	}
	if cfg.Registry == "" {
		return Fetch{}, fmt.Errorf("registry file is required")
	}
	if len(cfg.RPC) == 0 {
		return Fetch{}, fmt.Errorf("at least one rpc endpoint is required")
	}
	if cfg.Concurrency <= 0 {
		return Fetch{}, fmt.Errorf("concurrency must be positive: %d", cfg.Concurrency)
	}
	return cfg, nil
}

func loadSinks(v *viper.Viper) Sinks {
	return Sinks{
		Out:         v.GetString("out"),
		PGDSN:       v.GetString("pg-dsn"),
		RedisAddr:   v.GetString("redis-addr"),
		RedisKey:    v.GetString("redis-key"),
		RedisTTL:    v.GetDuration("redis-ttl"),
		RedisNotify: v.GetString("redis-notify"),
		MetricsFile: v.GetString("metrics-file"),
	}
}

// parseRPCMap converts chain id keys to integers.
func parseRPCMap(raw map[string]string) (map[uint64]string, error) {
	out := make(map[uint64]string, len(raw))
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		id, err := strconv.ParseUint(strings.TrimSpace(k), 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("rpc: invalid chain id %q", k)
		}
		url := strings.TrimSpace(raw[k])
		if url == "" {
			return nil, fmt.Errorf("rpc: empty url for chain %d", id)
		}
		out[id] = url
	}
	return out, nil
}

func parseFeeTiers(items []string) ([]uint32, error) {
	out := make([]uint32, 0, len(items))
	for _, item := range items {
		fee, err := strconv.ParseUint(item, 10, 32)
		if err != nil || fee >= 1_000_000 {
			return nil, fmt.Errorf("fee-tiers: invalid tier %q", item)
		}
		out = append(out, uint32(fee))
	}
	return out, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
