// Package config 提供基于 viper 的 TOML 配置加载、环境变量覆盖、校验与热更新.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 全局顶级配置.
type Config struct {
	Version    string           `mapstructure:"version"    toml:"version"`
	Server     ServerConfig     `mapstructure:"server"     toml:"server"`
	Log        LogConfig        `mapstructure:"log"        toml:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"    toml:"metrics"`
	Tracing    TracingConfig    `mapstructure:"tracing"    toml:"tracing"`
	Snowflake  SnowflakeConfig  `mapstructure:"snowflake"  toml:"snowflake"`
	Cache      CacheConfig      `mapstructure:"cache"      toml:"cache"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"  toml:"ratelimit"`
	Simulation SimulationConfig `mapstructure:"simulation" toml:"simulation"`
}

// ServerConfig HTTP 服务参数.
type ServerConfig struct {
	Name        string `mapstructure:"name"        toml:"name"        validate:"required"`
	Environment string `mapstructure:"environment" toml:"environment" validate:"oneof=dev test prod"`
	HTTP        struct {
		Addr              string        `mapstructure:"addr"                toml:"addr"`
		Port              int           `mapstructure:"port"                toml:"port"                validate:"required,min=1,max=65535"`
		ReadTimeout       time.Duration `mapstructure:"read_timeout"        toml:"read_timeout"`
		ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" toml:"read_header_timeout"`
		WriteTimeout      time.Duration `mapstructure:"write_timeout"       toml:"write_timeout"`
		IdleTimeout       time.Duration `mapstructure:"idle_timeout"        toml:"idle_timeout"`
		MaxHeaderBytes    int           `mapstructure:"max_header_bytes"    toml:"max_header_bytes"`
		MaxBodyBytes      int64         `mapstructure:"max_body_bytes"      toml:"max_body_bytes"`
	} `mapstructure:"http" toml:"http"`
}

// LogConfig 日志级别与切割策略.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       validate:"omitempty,oneof=debug info warn error"`
	File       string `mapstructure:"file"        toml:"file"`
	Stdout     bool   `mapstructure:"stdout"      toml:"stdout"`
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"`
	Compress   bool   `mapstructure:"compress"    toml:"compress"`
}

// MetricsConfig Prometheus 指标暴露配置.
type MetricsConfig struct {
	Path    string `mapstructure:"path"    toml:"path"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
}

// TracingConfig OpenTelemetry 链路追踪配置.
type TracingConfig struct {
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint" validate:"required_if=Enabled true"`
	SamplerRatio float64 `mapstructure:"sampler_ratio" toml:"sampler_ratio" validate:"min=0,max=1"`
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
}

// SnowflakeConfig 运行 ID 生成器参数.
type SnowflakeConfig struct {
	StartTime string `mapstructure:"start_time" toml:"start_time"`
	Type      string `mapstructure:"type"       toml:"type"       validate:"omitempty,oneof=snowflake sonyflake"`
	MachineID int64  `mapstructure:"machine_id" toml:"machine_id" validate:"min=0,max=1023"`
}

// CacheConfig 校准结果本地缓存 (bigcache) 参数.
type CacheConfig struct {
	Enabled          bool          `mapstructure:"enabled"             toml:"enabled"`
	LifeWindow       time.Duration `mapstructure:"life_window"         toml:"life_window"`
	CleanWindow      time.Duration `mapstructure:"clean_window"        toml:"clean_window"`
	Shards           int           `mapstructure:"shards"              toml:"shards"`
	MaxEntrySize     int           `mapstructure:"max_entry_size"      toml:"max_entry_size"`
	HardMaxCacheSize int           `mapstructure:"hard_max_cache_size" toml:"hard_max_cache_size"`
}

// RateLimitConfig 本地令牌桶限流参数.
type RateLimitConfig struct {
	Rate    int  `mapstructure:"rate"    toml:"rate"`
	Burst   int  `mapstructure:"burst"   toml:"burst"`
	Enabled bool `mapstructure:"enabled" toml:"enabled"`
}

// SimulationConfig 预测请求未指定时使用的模拟默认值.
type SimulationConfig struct {
	HorizonDays    int           `mapstructure:"horizon_days"    toml:"horizon_days"    validate:"min=1"`
	Paths          int           `mapstructure:"paths"           toml:"paths"           validate:"min=1,max=200000"`
	MaxPaths       int           `mapstructure:"max_paths"       toml:"max_paths"       validate:"min=1"`
	MaxHorizonDays int           `mapstructure:"max_horizon_days" toml:"max_horizon_days" validate:"min=1"`
	MaxPathCells   int           `mapstructure:"max_path_cells"  toml:"max_path_cells"  validate:"min=1"`
	PilotPaths     int           `mapstructure:"pilot_paths"     toml:"pilot_paths"     validate:"min=1"`
	Seed           int64         `mapstructure:"seed"            toml:"seed"`
	Workers        int           `mapstructure:"workers"         toml:"workers"         validate:"min=0"`
	Recenter       string        `mapstructure:"recenter"        toml:"recenter"        validate:"omitempty,oneof=none local"`
	RecenterWindow int           `mapstructure:"recenter_window" toml:"recenter_window" validate:"min=0"`
	ControlVariate bool          `mapstructure:"control_variate" toml:"control_variate"`
	SamplePaths    int           `mapstructure:"sample_paths"    toml:"sample_paths"    validate:"min=0"`
	MaxConcurrent  int           `mapstructure:"max_concurrent"  toml:"max_concurrent"  validate:"min=0"`
	Timeout        time.Duration `mapstructure:"timeout"         toml:"timeout"`
	Views          ViewsConfig   `mapstructure:"views"           toml:"views"`
}

// ViewsConfig 定性观点到数值的映射.
type ViewsConfig struct {
	OutlookShift float64 `mapstructure:"outlook_shift" toml:"outlook_shift" validate:"min=0,max=1"`
	Calm         float64 `mapstructure:"calm"          toml:"calm"          validate:"gt=0"`
	Normal       float64 `mapstructure:"normal"        toml:"normal"        validate:"gt=0"`
	Turbulent    float64 `mapstructure:"turbulent"     toml:"turbulent"     validate:"gt=0"`
	LowWeight    float64 `mapstructure:"low_weight"    toml:"low_weight"    validate:"min=0,max=1"`
	MediumWeight float64 `mapstructure:"medium_weight" toml:"medium_weight" validate:"min=0,max=1"`
	HighWeight   float64 `mapstructure:"high_weight"   toml:"high_weight"   validate:"min=0,max=1"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "dev")
	v.SetDefault("server.name", "forecastd")
	v.SetDefault("server.environment", "dev")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", 10*time.Second)
	v.SetDefault("server.http.read_header_timeout", 5*time.Second)
	v.SetDefault("server.http.write_timeout", 120*time.Second)
	v.SetDefault("server.http.idle_timeout", 60*time.Second)
	v.SetDefault("server.http.max_header_bytes", 1<<20)
	v.SetDefault("server.http.max_body_bytes", 8<<20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age", 30)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("tracing.service_name", "forecastd")
	v.SetDefault("tracing.sampler_ratio", 1.0)

	v.SetDefault("snowflake.type", "snowflake")
	v.SetDefault("snowflake.machine_id", 1)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.life_window", 30*time.Minute)
	v.SetDefault("cache.clean_window", 5*time.Minute)
	v.SetDefault("cache.shards", 64)
	v.SetDefault("cache.max_entry_size", 1024)
	v.SetDefault("cache.hard_max_cache_size", 64)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.rate", 5)
	v.SetDefault("ratelimit.burst", 10)

	v.SetDefault("simulation.horizon_days", 252)
	v.SetDefault("simulation.paths", 5000)
	v.SetDefault("simulation.max_paths", 50000)
	v.SetDefault("simulation.max_horizon_days", 252*50)
	v.SetDefault("simulation.max_path_cells", 100_000_000)
	v.SetDefault("simulation.pilot_paths", 1000)
	v.SetDefault("simulation.seed", 42)
	v.SetDefault("simulation.recenter", "none")
	v.SetDefault("simulation.control_variate", true)
	v.SetDefault("simulation.sample_paths", 20)
	v.SetDefault("simulation.max_concurrent", 4)
	v.SetDefault("simulation.timeout", 2*time.Minute)
	v.SetDefault("simulation.views.outlook_shift", 0.10)
	v.SetDefault("simulation.views.calm", 0.12)
	v.SetDefault("simulation.views.normal", 0.18)
	v.SetDefault("simulation.views.turbulent", 0.28)
	v.SetDefault("simulation.views.low_weight", 0.25)
	v.SetDefault("simulation.views.medium_weight", 0.50)
	v.SetDefault("simulation.views.high_weight", 0.75)
}

var (
	mu        sync.Mutex
	vInstance = viper.New()
	onReload  []func(*Config)
	validate  = validator.New()
)

// RegisterReloadHook 注册配置热更新回调.
func RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	onReload = append(onReload, hook)
}

// Load 读取 TOML 配置（path 为空时只使用默认值与 APP_ 环境变量），
// 校验后返回，并在文件变化时热更新.
func Load(path string) (*Config, error) {
	v := vInstance
	setDefaults(v)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config error: %w", err)
		}
	}

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("unmarshal config error: %w", err)
	}
	if err := validate.Struct(conf); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if path != "" {
		v.OnConfigChange(func(event fsnotify.Event) {
			reload(v, event.Name)
		})
		v.WatchConfig()
	}
	return conf, nil
}

func reload(v *viper.Viper, file string) {
	slog.Info("detecting config change", "file", file)
	const debounceTimeout = 500 * time.Millisecond
	time.Sleep(debounceTimeout)

	next := &Config{}
	if err := v.Unmarshal(next); err != nil {
		slog.Error("reload config unmarshal failed", "error", err)
		return
	}
	if err := validate.Struct(next); err != nil {
		slog.Error("reload config validation failed", "error", err)
		return
	}
	logging.SetLevel(next.Log.Level)
	slog.Info("config hot-reloaded and validated successfully")

	mu.Lock()
	hooks := append([]func(*Config){}, onReload...)
	mu.Unlock()
	for _, hook := range hooks {
		hook(next)
	}
}

// PrintWithMask 脱敏打印当前配置.
func PrintWithMask(conf any) {
	data, err := json.Marshal(conf)
	if err != nil {
		slog.Error("failed to marshal config for printing", "error", err)
		return
	}

	var configMap map[string]any
	if err := json.Unmarshal(data, &configMap); err != nil {
		slog.Error("failed to unmarshal config for masking", "error", err)
		return
	}
	mask(configMap)

	masked, err := json.Marshal(configMap)
	if err != nil {
		slog.Error("failed to marshal masked config", "error", err)
		return
	}
	slog.Info("current effective configuration", "config", string(masked))
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "dsn", "key", "token"}
	for key, val := range configMap {
		if sub, ok := val.(map[string]any); ok {
			mask(sub)
			continue
		}
		for _, s := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), s) {
				configMap[key] = "******"
				break
			}
		}
	}
}

// GetViper 返回底层 viper 实例.
func GetViper() *viper.Viper {
	return vInstance
}
