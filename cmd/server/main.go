package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/crossledger/reconciler/internal/api"
	"github.com/crossledger/reconciler/internal/config"
	"github.com/crossledger/reconciler/internal/domain"
	"github.com/crossledger/reconciler/internal/ingestion"
	"github.com/crossledger/reconciler/internal/matchindex"
	"github.com/crossledger/reconciler/internal/reconciliation"
	"github.com/crossledger/reconciler/internal/repository"
)

func main() {
	cfg := config.Load(".env")
	log := newLogger(cfg.LogLevel)

	log.WithField("path", cfg.DBPath).Info("initializing database")
	db, err := repository.InitDB(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("init db")
	}
	defer db.Close()

	txnRepo := repository.NewTransactionRepo(db)

	index := matchindex.New(cfg.DateWindowDays)
	engine := reconciliation.NewEngine(txnRepo, index, log).
		WithAmountTolerance(cfg.AmountTolerance)
	ingestionSvc := ingestion.NewService(txnRepo, index, engine, log)

	if cfg.SeedPath != "" {
		if err := seedTransactions(txnRepo, cfg.SeedPath, log); err != nil {
			log.WithError(err).Warn("seeding failed")
		}
	}

	// Rebuild the in-memory candidate index from whatever survived restart.
	if err := warmIndex(txnRepo, index); err != nil {
		log.WithError(err).Fatal("warm match index")
	}
	log.WithField("pending", index.Len()).Info("match index warmed")

	router := api.NewRouter(txnRepo, engine, ingestionSvc, log)

	log.WithField("port", cfg.Port).Info("intercompany reconciler listening")
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func warmIndex(repo *repository.TransactionRepo, index *matchindex.Index) error {
	pending, err := repo.ListPending()
	if err != nil {
		return fmt.Errorf("list pending: %w", err)
	}
	for i := range pending {
		index.Insert(&pending[i])
	}
	return nil
}

// seedTransactions loads a JSON fixture of transactions when the database is
// empty. Used for demos; see testdata/generate.
func seedTransactions(repo *repository.TransactionRepo, path string, log *logrus.Logger) error {
	count, err := repo.Count()
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}
	if count > 0 {
		log.WithField("count", count).Info("database already populated, skipping seed")
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var txns []domain.Transaction
	if err := json.Unmarshal(data, &txns); err != nil {
		return fmt.Errorf("unmarshal seed file: %w", err)
	}

	inserted, err := repo.BulkInsert(txns)
	if err != nil {
		return fmt.Errorf("bulk insert: %w", err)
	}
	log.WithFields(logrus.Fields{"inserted": inserted, "total": len(txns)}).
		Info("seeded transactions")
	return nil
}
