package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config armazena todas as configurações do serviço GoRack.
type Config struct {
	// Geral
	Port        string
	Environment string
	LogLevel    string

	// Persistência: "postgres" em produção, "memory" para demonstrações locais.
	StoreDriver string
	// SeedFile é o JSON carregado no modo memory (opcional).
	SeedFile string

	// Banco de Dados (PostgreSQL)
	DatabaseURL    string
	DBTimeout      time.Duration
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Cache (Redis)
	RedisAddr string
	CacheTTL  time.Duration

	// Segurança (JWT)
	JWTSecretKey string
	TokenExpiry  time.Duration

	// Rate Limiting
	RateLimitMaxRequests int
	RateLimitPeriod      time.Duration

	// Notificações (Kafka). Sem brokers, as notificações vão apenas para o log.
	KafkaBrokers []string
	KafkaTopic   string

	// Quando true, a criação desconta do disponível o que já está reservado no ledger.
	HoldAwareAvailability bool
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// LoadConfig lê as variáveis de ambiente (já carregadas do .env pelo main)
// aplicando os valores padrão. Retorna erro quando uma variável obrigatória falta.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		StoreDriver: strings.ToLower(v.GetString("STORE_DRIVER")),
		SeedFile:    v.GetString("SEED_FILE"),

		DatabaseURL:    v.GetString("DATABASE_URL"),
		DBTimeout:      time.Duration(v.GetInt("DB_TIMEOUT_SEC")) * time.Second,
		DBMaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),

		RedisAddr: v.GetString("REDIS_ADDR"),
		CacheTTL:  time.Duration(v.GetInt("CACHE_TTL_SEC")) * time.Second,

		JWTSecretKey: v.GetString("JWT_SECRET_KEY"),
		TokenExpiry:  time.Duration(v.GetInt("JWT_EXPIRY_MIN")) * time.Minute,

		RateLimitMaxRequests: v.GetInt("RATE_LIMIT_MAX_REQUESTS"),
		RateLimitPeriod:      time.Duration(v.GetInt("RATE_LIMIT_PERIOD_MIN")) * time.Minute,

		KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:   v.GetString("KAFKA_TOPIC"),

		HoldAwareAvailability: v.GetBool("HOLD_AWARE_AVAILABILITY"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoadConfig é usado pelos comandos: encerra o processo se a configuração for inválida.
func MustLoadConfig() *Config {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("❌ Erro de Configuração: %v", err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("DB_TIMEOUT_SEC", 5)
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("CACHE_TTL_SEC", 300)
	v.SetDefault("JWT_EXPIRY_MIN", 60)
	v.SetDefault("RATE_LIMIT_MAX_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_PERIOD_MIN", 1)
	v.SetDefault("KAFKA_TOPIC", "gorack.transfers")
	v.SetDefault("HOLD_AWARE_AVAILABILITY", false)
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("a variável de ambiente DATABASE_URL deve ser definida")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER inválido: %q (use postgres ou memory)", c.StoreDriver)
	}
	if c.JWTSecretKey == "" {
		return fmt.Errorf("a variável de ambiente JWT_SECRET_KEY deve ser definida")
	}
	if c.DBTimeout <= 0 {
		return fmt.Errorf("DB_TIMEOUT_SEC deve ser positivo")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
