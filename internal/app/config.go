package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Env         string
	StoreName   string
	SessionKey  string
	CORSOrigins []string
	RateLimit   int

	CatalogSource string // url | file | xlsx | postgres
	CatalogURL    string
	SearchURL     string
	CatalogFile   string
	CatalogXLSX   string
	CatalogTTL    time.Duration
	CatalogSeed   string

	StorageBackend string // memory | sqlite | redis | postgres
	SQLitePath     string
	RedisAddr      string
	RedisPassword  string
	RedisTTL       time.Duration
	DBDSN          string

	ReceiptPrefix string
	SearchQuiet   time.Duration
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

// LoadConfig reads the environment; call godotenv.Load first to pick up .env.
func LoadConfig() Config {
	c := Config{
		Port:           getenv("PORT", "8080"),
		Env:            strings.ToLower(getenv("APP_ENV", "development")),
		StoreName:      getenv("STORE_NAME", "BuildMart"),
		SessionKey:     getenv("SESSION_KEY", "dev-insecure"),
		CatalogSource:  strings.ToLower(getenv("CATALOG_SOURCE", "file")),
		CatalogURL:     getenv("CATALOG_URL", ""),
		SearchURL:      getenv("SEARCH_URL", ""),
		CatalogFile:    getenv("CATALOG_FILE", "data/products.json"),
		CatalogXLSX:    getenv("CATALOG_XLSX", "data/products.xlsx"),
		CatalogTTL:     getDuration("CATALOG_TTL", 5*time.Minute),
		CatalogSeed:    getenv("CATALOG_SEED_FILE", ""),
		StorageBackend: strings.ToLower(getenv("STORAGE_BACKEND", "sqlite")),
		SQLitePath:     getenv("SQLITE_PATH", "buildmart.db"),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisTTL:       getDuration("REDIS_TTL", 30*24*time.Hour),
		DBDSN:          dsnFromEnv(),
		ReceiptPrefix:  getenv("RECEIPT_PREFIX", "INV"),
	}
	if n, err := strconv.Atoi(getenv("RATE_LIMIT_RPS", "20")); err == nil {
		c.RateLimit = n
	}
	if ms, err := strconv.Atoi(getenv("SEARCH_QUIET_MS", "300")); err == nil && ms > 0 {
		c.SearchQuiet = time.Duration(ms) * time.Millisecond
	}
	for _, o := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			c.CORSOrigins = append(c.CORSOrigins, o)
		}
	}
	return c
}

func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == "development" || c.Env == "dev"
}

// NeedsPostgres reports whether any component reads from the database.
func (c Config) NeedsPostgres() bool {
	return c.CatalogSource == "postgres" || c.StorageBackend == "postgres"
}

func dsnFromEnv() string {
	if dsn := strings.TrimSpace(os.Getenv("DB_DSN")); dsn != "" {
		return dsn
	}
	host := getenv("DB_HOST", "localhost")
	port := getenv("DB_PORT", "5432")
	user := getenv("DB_USER", getenv("POSTGRES_USER", "postgres"))
	pass := getenv("DB_PASSWORD", getenv("POSTGRES_PASSWORD", "postgres"))
	name := getenv("DB_NAME", getenv("POSTGRES_DB", "buildmart"))
	ssl := getenv("DB_SSLMODE", "disable")
	return "host=" + host + " user=" + user + " password=" + pass + " dbname=" + name + " port=" + port + " sslmode=" + ssl
}
