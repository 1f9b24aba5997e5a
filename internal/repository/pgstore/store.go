// Package pgstore compõe os repositórios Postgres em um domain.Store. Cada etapa
// do fluxo roda em uma única transação com os repositórios ligados ao *sql.Tx.
package pgstore

import (
	"context"
	"database/sql"
	"time"

	"gorack/internal/domain"
	"gorack/internal/pkg/cache"
	"gorack/internal/pkg/database"
	"gorack/internal/pkg/logger"
	"gorack/internal/repository/holdrepo"
	"gorack/internal/repository/productrepo"
	"gorack/internal/repository/projectrepo"
	"gorack/internal/repository/stockrepo"
	"gorack/internal/repository/transferrepo"
)

// Options ajusta timeouts e cache dos repositórios.
type Options struct {
	DBTimeout time.Duration
	CacheTTL  time.Duration
	// Isolation da transação de cada etapa.
	Isolation sql.IsolationLevel
}

type Store struct {
	db        *sql.DB
	cache     cache.Client
	opts      Options
	logger    logger.Logger
	transfers *transferrepo.TransferRepository
}

func New(db *sql.DB, cacheClient cache.Client, opts Options, log logger.Logger) *Store {
	if cacheClient == nil {
		cacheClient = cache.Noop{}
	}
	if opts.DBTimeout <= 0 {
		opts.DBTimeout = 5 * time.Second
	}
	if opts.Isolation == sql.LevelDefault {
		opts.Isolation = sql.LevelReadCommitted
	}
	return &Store{
		db:        db,
		cache:     cacheClient,
		opts:      opts,
		logger:    log,
		transfers: transferrepo.NewTransferRepository(db, opts.DBTimeout, log),
	}
}

// txView liga todos os repositórios ao mesmo *sql.Tx.
type txView struct {
	*productrepo.ProductRepository
	*projectrepo.ProjectRepository
	*stockrepo.StockRepository
	*holdrepo.HoldRepository
	*transferrepo.TransferRepository
}

var _ domain.Tx = txView{}
var _ domain.Store = (*Store)(nil)

func (s *Store) bind(q database.Querier) txView {
	return txView{
		ProductRepository:  productrepo.NewProductRepository(q, s.cache, s.opts.CacheTTL, s.opts.DBTimeout, s.logger),
		ProjectRepository:  projectrepo.NewProjectRepository(q, s.cache, s.opts.CacheTTL, s.opts.DBTimeout, s.logger),
		StockRepository:    stockrepo.NewStockRepository(q, s.opts.DBTimeout, s.logger),
		HoldRepository:     holdrepo.NewHoldRepository(q, s.opts.DBTimeout, s.logger),
		TransferRepository: transferrepo.NewTransferRepository(q, s.opts.DBTimeout, s.logger),
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	return database.RunInTx(ctx, s.db, &sql.TxOptions{Isolation: s.opts.Isolation}, func(sqlTx *sql.Tx) error {
		return fn(ctx, s.bind(sqlTx))
	})
}

func (s *Store) FindTransfer(ctx context.Context, transferID string) (domain.Transfer, error) {
	return s.transfers.FindTransfer(ctx, transferID)
}

func (s *Store) ListTransfers(ctx context.Context, filter domain.TransferFilter) ([]domain.Transfer, error) {
	return s.transfers.ListTransfers(ctx, filter)
}

func (s *Store) ClaimEmailEvent(ctx context.Context, transferID string, event domain.EmailEvent) (bool, error) {
	return s.transfers.ClaimEmailEvent(ctx, transferID, event)
}

func (s *Store) ReleaseEmailEvent(ctx context.Context, transferID string, event domain.EmailEvent) error {
	return s.transfers.ReleaseEmailEvent(ctx, transferID, event)
}
