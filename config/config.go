package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Course   CourseConfig   `mapstructure:"course"`
	LiveData LiveDataConfig `mapstructure:"live_data"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	BodyLimit    int64         `mapstructure:"body_limit"` // 请求体上限（字节）
	CORS         CORSConfig    `mapstructure:"cors"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RateLimit    int           `mapstructure:"rate_limit"` // 实时数据接口每个客户端窗口内请求上限，0 表示不限
	RateWindow   time.Duration `mapstructure:"rate_window"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// URL 生成 golang-migrate 使用的 postgres:// 连接串
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// RedisConfig Redis 配置（实时数据热缓存、限流）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
// Token 由身份提供方签发，subject 即用户 ID
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	Audience       string        `mapstructure:"audience"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CourseConfig 课程与课表配置
type CourseConfig struct {
	Semester      string        `mapstructure:"semester"`       // 当前学期，如 "1141"
	RequestLimit  int           `mapstructure:"request_limit"`  // 批量查询课程 ID 上限（不含）
	TableExpiry   time.Duration `mapstructure:"table_expiry"`   // 访客课表有效期
	SemesterStart string        `mapstructure:"semester_start"` // 学期第一周周一，YYYY-MM-DD
	SemesterWeeks int           `mapstructure:"semester_weeks"`
	Timezone      string        `mapstructure:"timezone"`
}

// LiveDataConfig 实时数据缓存配置
type LiveDataConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`            // 缓存新鲜期
	Timeout       time.Duration `mapstructure:"timeout"`        // 单次上游请求超时
	Endpoint      string        `mapstructure:"endpoint"`       // 选课/评价/课纲数据源
	BoardEndpoint string        `mapstructure:"board_endpoint"` // 讨论版镜像数据源
	RateLimit     float64       `mapstructure:"rate_limit"`     // 上游每秒请求数上限
	Burst         int           `mapstructure:"burst"`
	HotCache      bool          `mapstructure:"hot_cache"` // 是否启用 Redis 热缓存
}

// Load 从 .env、配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("NCN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.body_limit", 5<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.rate_limit", 60)
	v.SetDefault("server.rate_window", "1m")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "ncn")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Taipei")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.issuer", "ncn-identity")
	v.SetDefault("auth.audience", "ncn-backend")
	v.SetDefault("auth.access_token_ttl", "1h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("course.semester", "")
	v.SetDefault("course.request_limit", 500)
	v.SetDefault("course.table_expiry", "24h")
	v.SetDefault("course.semester_start", "")
	v.SetDefault("course.semester_weeks", 16)
	v.SetDefault("course.timezone", "Asia/Taipei")

	v.SetDefault("live_data.ttl", "10m")
	v.SetDefault("live_data.timeout", "5s")
	v.SetDefault("live_data.endpoint", "http://localhost:5001")
	v.SetDefault("live_data.board_endpoint", "http://localhost:5002")
	v.SetDefault("live_data.rate_limit", 20)
	v.SetDefault("live_data.burst", 5)
	v.SetDefault("live_data.hot_cache", true)
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Course.Semester == "" {
		return fmt.Errorf("配置校验失败: course.semester 不能为空")
	}
	if c.Course.RequestLimit <= 0 {
		return fmt.Errorf("配置校验失败: course.request_limit 必须为正数")
	}
	if c.Course.TableExpiry <= 0 {
		return fmt.Errorf("配置校验失败: course.table_expiry 必须为正数")
	}
	if c.LiveData.TTL <= 0 {
		return fmt.Errorf("配置校验失败: live_data.ttl 必须为正数")
	}
	if c.LiveData.Timeout <= 0 {
		return fmt.Errorf("配置校验失败: live_data.timeout 必须为正数")
	}
	return nil
}
