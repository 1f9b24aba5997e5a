package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Migrations contém os arquivos SQL do goose, embutidos no binário.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir é o diretório dentro de Migrations.
const MigrationsDir = "migrations"

// PoolConfig ajusta o connection pool do *sql.DB.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig são os valores usados quando a configuração não informa nada.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 2 * time.Minute,
	}
}

// NewPostgresDB abre o pool com o driver lib/pq e valida a conexão com um ping.
func NewPostgresDB(dataSourceName string, pool PoolConfig) (*sql.DB, error) {
	connector, err := pq.NewConnector(dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("falha ao interpretar a DSN do DB: %w", err)
	}
	db := sql.OpenDB(connector)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("falha ao realizar o ping inicial no DB: %w", err)
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}

	return db, nil
}
