package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DevJWTSecret signs tokens when no secret is configured outside production.
const DevJWTSecret = "tire-shop-dev-secret"

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Mongo     MongoConfig
	Local     LocalConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Kafka     KafkaConfig
	Search    SearchConfig
	Storage   StorageConfig
	Admin     AdminConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// IsProduction reports whether the server runs with production settings.
func (s ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string // mongo, postgres or local
}

type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	Schema      string
	SSLMode     string
	MaxPoolSize int
}

// DSN builds a pgx connection string.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   d.Host + ":" + d.Port,
		Path:   "/" + d.Database,
	}
	q := url.Values{}
	q.Set("sslmode", d.SSLMode)
	q.Set("search_path", d.Schema)
	u.RawQuery = q.Encode()
	return u.String()
}

type MongoConfig struct {
	URI           string
	User          string
	Password      string
	Cluster       string
	Database      string
	AppName       string
	MaxPoolSize   uint64
	ServerTimeout time.Duration
	SocketTimeout time.Duration
}

// ConnectionURI returns MONGO_URI when set, otherwise an Atlas style URI
// assembled from the user, password and cluster settings.
func (m MongoConfig) ConnectionURI() string {
	if m.URI != "" {
		return m.URI
	}
	return fmt.Sprintf("mongodb+srv://%s:%s@%s/%s?retryWrites=true&w=majority&appName=%s",
		url.QueryEscape(m.User), url.QueryEscape(m.Password), m.Cluster, m.Database, url.QueryEscape(m.AppName))
}

// LocalConfig configures the file backed store. An empty DataDir keeps
// everything in memory.
type LocalConfig struct {
	DataDir string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Redis host is configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type SearchConfig struct {
	URL      string
	User     string
	Password string
	Index    string
}

type StorageConfig struct {
	Driver      string // local or s3
	UploadDir   string
	BaseURL     string
	MaxFileSize int64
	S3          S3Config
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

type AdminConfig struct {
	Emails []string
	// WritesOnly restricts catalog mutations, over HTTP and the socket, to admins.
	WritesOnly bool
}

// IsAdmin reports whether email is listed as an administrator.
func (a AdminConfig) IsAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range a.Emails {
		if strings.ToLower(strings.TrimSpace(e)) == email {
			return true
		}
	}
	return false
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("STORE_DRIVER", "mongo")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_POOL_SIZE", 10)
	viper.SetDefault("MONGO_DATABASE", "tire-shop")
	viper.SetDefault("MONGO_APP_NAME", "tire-shop")
	viper.SetDefault("MONGO_MAX_POOL_SIZE", 10)
	viper.SetDefault("MONGO_SERVER_TIMEOUT", "5s")
	viper.SetDefault("MONGO_SOCKET_TIMEOUT", "45s")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")
	viper.SetDefault("JWT_EXPIRY", "24h")
	viper.SetDefault("KAFKA_TOPIC", "catalog-events")
	viper.SetDefault("ES_INDEX", "products")
	viper.SetDefault("STORAGE_DRIVER", "local")
	viper.SetDefault("UPLOAD_DIR", "public/uploads")
	viper.SetDefault("UPLOAD_BASE_URL", "/uploads")
	viper.SetDefault("UPLOAD_MAX_FILE_SIZE", 5<<20)
	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("ADMIN_WRITES_ONLY", false)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:     viper.GetString("SERVER_PORT"),
			Env:      viper.GetString("SERVER_ENV"),
			LogLevel: viper.GetString("LOG_LEVEL"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(viper.GetString("STORE_DRIVER")),
		},
		Database: DatabaseConfig{
			Host:        viper.GetString("DB_HOST"),
			Port:        viper.GetString("DB_PORT"),
			User:        viper.GetString("DB_USER"),
			Password:    viper.GetString("DB_PASSWORD"),
			Database:    viper.GetString("DB_DATABASE"),
			Schema:      viper.GetString("DB_SCHEMA"),
			SSLMode:     viper.GetString("DB_SSLMODE"),
			MaxPoolSize: viper.GetInt("DB_MAX_POOL_SIZE"),
		},
		Mongo: MongoConfig{
			URI:           viper.GetString("MONGO_URI"),
			User:          viper.GetString("MONGO_USER"),
			Password:      viper.GetString("MONGO_PASSWORD"),
			Cluster:       viper.GetString("MONGO_CLUSTER"),
			Database:      viper.GetString("MONGO_DATABASE"),
			AppName:       viper.GetString("MONGO_APP_NAME"),
			MaxPoolSize:   viper.GetUint64("MONGO_MAX_POOL_SIZE"),
			ServerTimeout: viper.GetDuration("MONGO_SERVER_TIMEOUT"),
			SocketTimeout: viper.GetDuration("MONGO_SOCKET_TIMEOUT"),
		},
		Local: LocalConfig{
			DataDir: viper.GetString("LOCAL_DATA_DIR"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   viper.GetDuration("RATE_LIMIT_WINDOW"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
			Expiry: viper.GetDuration("JWT_EXPIRY"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(viper.GetString("KAFKA_BROKERS")),
			Topic:   viper.GetString("KAFKA_TOPIC"),
		},
		Search: SearchConfig{
			URL:      viper.GetString("ES_URL"),
			User:     viper.GetString("ES_USER"),
			Password: viper.GetString("ES_PASSWORD"),
			Index:    viper.GetString("ES_INDEX"),
		},
		Storage: StorageConfig{
			Driver:      strings.ToLower(viper.GetString("STORAGE_DRIVER")),
			UploadDir:   viper.GetString("UPLOAD_DIR"),
			BaseURL:     viper.GetString("UPLOAD_BASE_URL"),
			MaxFileSize: viper.GetInt64("UPLOAD_MAX_FILE_SIZE"),
			S3: S3Config{
				Region:          viper.GetString("AWS_REGION"),
				Bucket:          viper.GetString("S3_BUCKET"),
				AccessKeyID:     viper.GetString("AWS_ACCESS_KEY_ID"),
				SecretAccessKey: viper.GetString("AWS_SECRET_ACCESS_KEY"),
				Endpoint:        viper.GetString("S3_ENDPOINT"),
			},
		},
		Admin: AdminConfig{
			Emails:     splitList(viper.GetString("ADMIN_EMAILS")),
			WritesOnly: viper.GetBool("ADMIN_WRITES_ONLY"),
		},
	}
}

// Validate checks settings that would otherwise fail late at runtime.
// Outside production a missing JWT secret is replaced by DevJWTSecret.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case "mongo", "postgres", "local":
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}

	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when STORAGE_DRIVER=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}

	if c.JWT.Secret == "" {
		if c.Server.IsProduction() {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		} else {
			c.JWT.Secret = DevJWTSecret
		}
	}
	if c.JWT.Expiry <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRY must be positive"))
	}

	if c.Store.Driver == "mongo" && c.Mongo.URI == "" && c.Mongo.Cluster == "" {
		errs = append(errs, errors.New("MONGO_URI or MONGO_CLUSTER is required when STORE_DRIVER=mongo"))
	}

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
