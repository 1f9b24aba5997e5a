//go:build integration

package pgstore_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"gorack/internal/domain"
	apperror "gorack/internal/errors"
	"gorack/internal/pkg/database"
	"gorack/internal/pkg/logger"
	"gorack/internal/repository/pgstore"
	"gorack/internal/repository/userrepo"
	"gorack/internal/service/holdledger"
	"gorack/internal/service/movement"
	"gorack/internal/service/notification"
	"gorack/internal/service/transferservice"
)

const (
	productID = "00000000-0000-4000-8000-000000000001"
	sourceID  = "00000000-0000-4000-8000-0000000000a1"
	destID    = "00000000-0000-4000-8000-0000000000b1"
	rack1     = "00000000-0000-4000-8000-0000000000a2"
	rack2     = "00000000-0000-4000-8000-0000000000a3"
	destRack  = "00000000-0000-4000-8000-0000000000b2"
	adminID   = "00000000-0000-4000-8000-0000000000c1"
)

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("gorack"),
		tcpostgres.WithUsername("gorack"),
		tcpostgres.WithPassword("gorack"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.NewPostgresDB(dsn, database.DefaultPoolConfig())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	goose.SetBaseFS(database.Migrations)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db, database.MigrationsDir))

	seed(t, db)
	return db
}

func seed(t *testing.T, db *sql.DB) {
	t.Helper()
	stmts := []string{
		`INSERT INTO users (id, name, email, role) VALUES ('` + adminID + `', 'Admin', 'admin@gorack.io', 'admin')`,
		`INSERT INTO products (id, sku, name) VALUES ('` + productID + `', 'PAR-10', 'Parafuso')`,
		`INSERT INTO projects (id, name) VALUES ('` + sourceID + `', 'Obra Norte'), ('` + destID + `', 'Obra Sul')`,
		`INSERT INTO racks (id, project_id, rack_number, created_at) VALUES
			('` + rack1 + `', '` + sourceID + `', 'R1', NOW() - INTERVAL '2 hours'),
			('` + rack2 + `', '` + sourceID + `', 'R2', NOW() - INTERVAL '1 hour'),
			('` + destRack + `', '` + destID + `', 'D1', NOW())`,
		`INSERT INTO rack_stock (rack_id, product_id, stock) VALUES
			('` + rack1 + `', '` + productID + `', 5),
			('` + rack2 + `', '` + productID + `', 3)`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
}

func stockAt(t *testing.T, db *sql.DB, rackID string) int {
	t.Helper()
	var stock int
	err := db.QueryRow(`SELECT COALESCE((SELECT stock FROM rack_stock WHERE rack_id = $1 AND product_id = $2), 0)`, rackID, productID).Scan(&stock)
	require.NoError(t, err)
	return stock
}

func heldAt(t *testing.T, db *sql.DB) int {
	t.Helper()
	var held int
	err := db.QueryRow(`SELECT COALESCE((SELECT held FROM project_holds WHERE project_id = $1 AND product_id = $2), 0)`, sourceID, productID).Scan(&held)
	require.NoError(t, err)
	return held
}

func newService(db *sql.DB, holdAware bool) *transferservice.Service {
	log := logger.NewNop()
	store := pgstore.New(db, nil, pgstore.Options{DBTimeout: 5 * time.Second, CacheTTL: time.Minute}, log)
	directory := userrepo.NewUserRepository(db, 5*time.Second, log)
	return transferservice.NewService(store,
		holdledger.NewLedger(store, nil, log, holdAware),
		movement.NewExecutor(log),
		notification.NewDispatcher(store, directory, notification.NewLogNotifier(log), nil, log),
		nil, log)
}

func TestPostgres_TransferLifecycle(t *testing.T) {
	db := startPostgres(t)
	svc := newService(db, false)
	ctx := context.Background()
	actor := domain.Actor{ID: adminID, Name: "Admin", Role: domain.RoleAdmin}

	created, err := svc.CreateTransfer(ctx, transferservice.CreateTransferInput{
		ProductID: productID, FromProjectID: sourceID, ToProjectID: destID,
		Type: domain.TransferOut, Quantity: 6, Actor: actor,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, heldAt(t, db))

	_, err = svc.DecideTransfer(ctx, transferservice.DecideTransferInput{
		TransferID: created.TransferID, Status: domain.StatusApproved, Actor: actor,
	})
	require.NoError(t, err)

	done, err := svc.CompleteTransfer(ctx, transferservice.CompleteTransferInput{
		TransferID: created.TransferID, DestinationRack: destRack, Actor: actor,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)

	assert.Equal(t, 0, stockAt(t, db, rack1))
	assert.Equal(t, 2, stockAt(t, db, rack2))
	assert.Equal(t, 6, stockAt(t, db, destRack))
	assert.Equal(t, 0, heldAt(t, db))

	stored, err := svc.GetTransfer(ctx, created.TransferID)
	require.NoError(t, err)
	assert.Len(t, stored.EmailEvents, 3)
	assert.True(t, stored.ToProject.Equal(domain.KnownProject(destID)))

	_, err = svc.CompleteTransfer(ctx, transferservice.CompleteTransferInput{
		TransferID: created.TransferID, DestinationRack: destRack, Actor: actor,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, stockAt(t, db, destRack))
}

func TestPostgres_InTransferPersistsSourceRack(t *testing.T) {
	db := startPostgres(t)
	svc := newService(db, false)
	ctx := context.Background()
	actor := domain.Actor{ID: adminID, Name: "Admin", Role: domain.RoleAdmin}

	created, err := svc.CreateTransfer(ctx, transferservice.CreateTransferInput{
		ProductID: productID, FromProjectID: sourceID, ToProjectID: destID,
		ToRack: destRack, Type: domain.TransferIn, Quantity: 2, Actor: actor,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, heldAt(t, db))

	_, err = svc.DecideTransfer(ctx, transferservice.DecideTransferInput{
		TransferID: created.TransferID, Status: domain.StatusApproved, Actor: actor,
	})
	require.NoError(t, err)

	_, err = svc.CompleteTransfer(ctx, transferservice.CompleteTransferInput{
		TransferID: created.TransferID, SourceRack: rack2, Actor: actor,
	})
	require.NoError(t, err)

	stored, err := svc.GetTransfer(ctx, created.TransferID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Equal(t, rack2, stored.FromRack)
	assert.Equal(t, destRack, stored.ToRack)
	assert.Equal(t, 1, stockAt(t, db, rack2))
	assert.Equal(t, 2, stockAt(t, db, destRack))
}

// Com holdAware, criações concorrentes nunca reservam mais do que o estoque.
func TestPostgres_ConcurrentCreatesNeverOverCommit(t *testing.T) {
	db := startPostgres(t)
	svc := newService(db, true)
	actor := domain.Actor{ID: adminID, Name: "Admin", Role: domain.RoleAdmin}

	const workers = 6
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		refused  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateTransfer(context.Background(), transferservice.CreateTransferInput{
				ProductID: productID, FromProjectID: sourceID, ToProjectID: "EXTERNAL",
				Type: domain.TransferOut, Quantity: 3, Actor: actor,
			})
			mu.Lock()
			defer mu.Unlock()
			var insufficient *apperror.InsufficientStockError
			switch {
			case err == nil:
				accepted++
			case assert.ErrorAs(t, err, &insufficient):
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, accepted)
	assert.Equal(t, workers-2, refused)
	assert.Equal(t, 6, heldAt(t, db))
}
