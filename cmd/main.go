package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gorack/config"
	"gorack/internal/api/hold"
	"gorack/internal/api/router"
	"gorack/internal/api/transfer"
	"gorack/internal/domain"
	"gorack/internal/pkg/broker"
	"gorack/internal/pkg/cache"
	"gorack/internal/pkg/database"
	"gorack/internal/pkg/logger"
	"gorack/internal/pkg/metrics"
	"gorack/internal/pkg/token"
	"gorack/internal/repository/memstore"
	"gorack/internal/repository/pgstore"
	"gorack/internal/repository/userrepo"
	"gorack/internal/service/holdledger"
	"gorack/internal/service/movement"
	"gorack/internal/service/notification"
	"gorack/internal/service/transferservice"
)

func main() {
	log.Println("⚡ Inicializando serviço GoRack...")
	if err := godotenv.Load(); err != nil {
		// Sem .env as variáveis podem vir do ambiente (ex: Docker).
		log.Println("⚠️ Aviso: Arquivo .env não encontrado. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.MustLoadConfig()
	appLog := logger.NewLogger(cfg.LogLevel, cfg.Environment)
	if zl, ok := appLog.(*logger.ZapLogger); ok {
		defer zl.Sync()
	}
	appLog.Info("Configurações carregadas.", map[string]interface{}{"store": cfg.StoreDriver, "env": cfg.Environment})

	collector := metrics.New()

	// 1. Persistência
	var (
		store       domain.Store
		directory   domain.UserDirectory
		cacheClient cache.Client = cache.Noop{}
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		mem := memstore.New()
		if cfg.SeedFile != "" {
			if err := loadSeed(mem, cfg.SeedFile); err != nil {
				appLog.Fatal("Falha ao carregar o seed.", err)
			}
			appLog.Info("Seed carregado.", map[string]interface{}{"file": cfg.SeedFile})
		}
		store, directory = mem, mem

	default:
		pool := database.DefaultPoolConfig()
		pool.MaxOpenConns, pool.MaxIdleConns = cfg.DBMaxOpenConns, cfg.DBMaxIdleConns
		db, err := database.NewPostgresDB(cfg.DatabaseURL, pool)
		if err != nil {
			appLog.Fatal("Falha ao conectar ao banco de dados.", err)
		}
		defer db.Close()
		appLog.Info("Conexão PostgreSQL estabelecida.", nil)

		redisClient, err := cache.NewRedisClient(cfg.RedisAddr)
		if err != nil {
			appLog.Warn("Redis indisponível; cache e rate limit degradados.", map[string]interface{}{"addr": cfg.RedisAddr, "error": err.Error()})
		} else {
			appLog.Info("Conexão Redis estabelecida.", nil)
		}
		defer redisClient.Close()
		cacheClient = redisClient

		store = pgstore.New(db, cacheClient, pgstore.Options{
			DBTimeout: cfg.DBTimeout,
			CacheTTL:  cfg.CacheTTL,
			Isolation: sql.LevelReadCommitted,
		}, appLog)
		directory = userrepo.NewUserRepository(db, cfg.DBTimeout, appLog)
	}

	// 2. Notificações: Kafka quando configurado, senão apenas log.
	var notifier notification.Notifier = notification.NewLogNotifier(appLog)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier := broker.NewKafkaNotifier(broker.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		}, appLog)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
		appLog.Info("Publicador Kafka configurado.", map[string]interface{}{"topic": cfg.KafkaTopic})
	}

	// 3. Serviços: Ledger e Executor -> Serviço de Transferências
	ledger := holdledger.NewLedger(store, collector, appLog, cfg.HoldAwareAvailability)
	dispatcher := notification.NewDispatcher(store, directory, notifier, collector, appLog)
	transferSvc := transferservice.NewService(store, ledger, movement.NewExecutor(appLog), dispatcher, collector, appLog)

	// 4. Handlers e Roteador
	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
	r := router.NewRouter(
		transfer.NewHandler(transferSvc, appLog),
		hold.NewHandler(ledger, appLog),
		router.Config{
			TokenService:         tokenSvc,
			Cache:                cacheClient,
			Metrics:              collector,
			Logger:               appLog,
			RateLimitMaxRequests: cfg.RateLimitMaxRequests,
			RateLimitPeriod:      cfg.RateLimitPeriod,
		},
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Execução e Graceful Shutdown
	go func() {
		appLog.Info("Servidor GoRack ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLog.Error("Desligamento do servidor forçado.", err)
	}
	appLog.Info("Servidor encerrado com sucesso.", nil)
}

func loadSeed(s *memstore.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.LoadSeed(f)
}
