package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	OCR      OCRConfig      `yaml:"ocr"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig は gRPC / HTTP サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr              string        `yaml:"listen_addr"`
	HTTPListenAddr          string        `yaml:"http_listen_addr"`
	MaxUploadBytes          int64         `yaml:"max_upload_bytes"`
	ReadHeaderTimeout       time.Duration `yaml:"-"`
	ShutdownTimeout         time.Duration `yaml:"-"`
	EventDeliveryTimeout    time.Duration `yaml:"-"`
	ReadHeaderTimeoutRaw    string        `yaml:"read_header_timeout"`
	ShutdownTimeoutRaw      string        `yaml:"shutdown_timeout"`
	EventDeliveryTimeoutRaw string        `yaml:"event_delivery_timeout"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host                string        `yaml:"host"`
	Port                int           `yaml:"port"`
	User                string        `yaml:"user"`
	Password            string        `yaml:"password"`
	Name                string        `yaml:"name"`
	SSLMode             string        `yaml:"ssl_mode"`
	MaxOpenConns        int           `yaml:"max_open_conns"`
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	ConnMaxLifetime     time.Duration `yaml:"-"`
	ConnMaxIdleTime     time.Duration `yaml:"-"`
	StatementTimeout    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw  string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw  string        `yaml:"conn_max_idle_time"`
	StatementTimeoutRaw string        `yaml:"statement_timeout"`
}

// AuthConfig はベアラートークン検証の設定です。
type AuthConfig struct {
	SigningKey string `yaml:"signing_key"`
	Issuer     string `yaml:"issuer"`
	Audience   string `yaml:"audience"`
}

// StorageConfig は書類ファイルの保存先です。
type StorageConfig struct {
	RootDir string `yaml:"root_dir"`
}

// OCRConfig は OCR ワーカーとプロバイダの設定です。
type OCRConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Workers         int           `yaml:"workers"`
	MaxAttempts     int           `yaml:"max_attempts"`
	PollInterval    time.Duration `yaml:"-"`
	BaseBackoff     time.Duration `yaml:"-"`
	MaxBackoff      time.Duration `yaml:"-"`
	JobTimeout      time.Duration `yaml:"-"`
	StaleAfter      time.Duration `yaml:"-"`
	PollIntervalRaw string        `yaml:"poll_interval"`
	BaseBackoffRaw  string        `yaml:"base_backoff"`
	MaxBackoffRaw   string        `yaml:"max_backoff"`
	JobTimeoutRaw   string        `yaml:"job_timeout"`
	StaleAfterRaw   string        `yaml:"stale_after"`
	Endpoint        string        `yaml:"endpoint"`
	APIKey          string        `yaml:"api_key"`
}

// KafkaConfig は状態変更イベントの配信先です。
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// RedisConfig は行政区キャッシュ用 Redis の設定です。URL が空の場合はキャッシュを使用しません。
type RedisConfig struct {
	URL             string        `yaml:"url"`
	PoolSize        int           `yaml:"pool_size"`
	MinIdleConns    int           `yaml:"min_idle_conns"`
	DialTimeout     time.Duration `yaml:"-"`
	ReadTimeout     time.Duration `yaml:"-"`
	WriteTimeout    time.Duration `yaml:"-"`
	RegionCacheTTL  time.Duration `yaml:"-"`
	DialTimeoutRaw  string        `yaml:"dial_timeout"`
	ReadTimeoutRaw  string        `yaml:"read_timeout"`
	WriteTimeoutRaw string        `yaml:"write_timeout"`
	RegionCacheRaw  string        `yaml:"region_cache_ttl"`
}

// LogConfig はロガーの設定です。
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
	WithCaller bool   `yaml:"with_caller"`
}

// Load は指定されたパスから設定ファイルを読み込みます。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv は機密値を環境変数で上書きします。
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("DATABASE_PASSWORD"); ok && v != "" {
		c.Database.Password = v
	}
	if v, ok := lookup("AUTH_SIGNING_KEY"); ok && v != "" {
		c.Auth.SigningKey = v
	}
	if v, ok := lookup("OCR_API_KEY"); ok && v != "" {
		c.OCR.APIKey = v
	}
}

func (c *Config) validateAndNormalize() error {
	if err := c.Server.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Auth.validateAndNormalize(); err != nil {
		return err
	}
	if c.Storage.RootDir == "" {
		c.Storage.RootDir = "var/storage"
	}
	if err := c.OCR.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Kafka.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Redis.validateAndNormalize(); err != nil {
		return err
	}
	c.Log.normalize()
	return nil
}

func (s *ServerConfig) validateAndNormalize() error {
	if s.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}
	if s.HTTPListenAddr == "" {
		s.HTTPListenAddr = ":8080"
	}
	if s.MaxUploadBytes <= 0 {
		s.MaxUploadBytes = 4 << 20
	}

	var err error
	if s.ReadHeaderTimeout, err = parseDurationDefault(s.ReadHeaderTimeoutRaw, 5*time.Second); err != nil {
		return fmt.Errorf("config: server.read_header_timeout: %w", err)
	}
	if s.ShutdownTimeout, err = parseDurationDefault(s.ShutdownTimeoutRaw, 15*time.Second); err != nil {
		return fmt.Errorf("config: server.shutdown_timeout: %w", err)
	}
	if s.EventDeliveryTimeout, err = parseDurationDefault(s.EventDeliveryTimeoutRaw, 10*time.Second); err != nil {
		return fmt.Errorf("config: server.event_delivery_timeout: %w", err)
	}
	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	statementTimeout, err := parseDurationAllowEmpty(d.StatementTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: database.statement_timeout: %w", err)
	}
	d.StatementTimeout = statementTimeout

	return nil
}

func (a *AuthConfig) validateAndNormalize() error {
	if a.SigningKey == "" {
		return fmt.Errorf("config: auth.signing_key must be set")
	}
	if len(a.SigningKey) < 32 {
		return fmt.Errorf("config: auth.signing_key must be at least 32 bytes")
	}
	if a.Issuer == "" {
		a.Issuer = "kms-connect"
	}
	return nil
}

func (o *OCRConfig) validateAndNormalize() error {
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 4
	}

	var err error
	if o.PollInterval, err = parseDurationDefault(o.PollIntervalRaw, 2*time.Second); err != nil {
		return fmt.Errorf("config: ocr.poll_interval: %w", err)
	}
	if o.BaseBackoff, err = parseDurationDefault(o.BaseBackoffRaw, 30*time.Second); err != nil {
		return fmt.Errorf("config: ocr.base_backoff: %w", err)
	}
	if o.MaxBackoff, err = parseDurationDefault(o.MaxBackoffRaw, 10*time.Minute); err != nil {
		return fmt.Errorf("config: ocr.max_backoff: %w", err)
	}
	if o.JobTimeout, err = parseDurationDefault(o.JobTimeoutRaw, 60*time.Second); err != nil {
		return fmt.Errorf("config: ocr.job_timeout: %w", err)
	}
	if o.StaleAfter, err = parseDurationDefault(o.StaleAfterRaw, 10*time.Minute); err != nil {
		return fmt.Errorf("config: ocr.stale_after: %w", err)
	}
	if o.MaxBackoff < o.BaseBackoff {
		return fmt.Errorf("config: ocr.max_backoff must not be shorter than ocr.base_backoff")
	}
	if o.Endpoint == "" {
		o.Endpoint = "https://vision.googleapis.com/v1/images:annotate"
	}
	if o.Enabled && o.APIKey == "" {
		return fmt.Errorf("config: ocr.api_key must be set when ocr is enabled")
	}
	return nil
}

func (k *KafkaConfig) validateAndNormalize() error {
	if !k.Enabled {
		return nil
	}
	if len(k.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must be set when kafka is enabled")
	}
	if k.Topic == "" {
		k.Topic = "kms.applicant.status-changed"
	}
	return nil
}

func (r *RedisConfig) validateAndNormalize() error {
	if r.PoolSize <= 0 {
		r.PoolSize = 10
	}

	var err error
	if r.DialTimeout, err = parseDurationDefault(r.DialTimeoutRaw, 5*time.Second); err != nil {
		return fmt.Errorf("config: redis.dial_timeout: %w", err)
	}
	if r.ReadTimeout, err = parseDurationDefault(r.ReadTimeoutRaw, time.Second); err != nil {
		return fmt.Errorf("config: redis.read_timeout: %w", err)
	}
	if r.WriteTimeout, err = parseDurationDefault(r.WriteTimeoutRaw, time.Second); err != nil {
		return fmt.Errorf("config: redis.write_timeout: %w", err)
	}
	if r.RegionCacheTTL, err = parseDurationDefault(r.RegionCacheRaw, 24*time.Hour); err != nil {
		return fmt.Errorf("config: redis.region_cache_ttl: %w", err)
	}
	return nil
}

func (l *LogConfig) normalize() {
	l.Level = strings.ToLower(l.Level)
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "json"
	}
	if l.Output == "" {
		l.Output = "stdout"
	}
	if l.FilePath == "" {
		l.FilePath = "logs/kms-connect.log"
	}
	if l.MaxSize <= 0 {
		l.MaxSize = 100
	}
	if l.MaxBackups <= 0 {
		l.MaxBackups = 10
	}
	if l.MaxAge <= 0 {
		l.MaxAge = 30
	}
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

func parseDurationDefault(raw string, def time.Duration) (time.Duration, error) {
	d, err := parseDurationAllowEmpty(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + strconv.Itoa(d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
