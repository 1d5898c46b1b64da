package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"document-chat/internal/config"
	"document-chat/internal/models"
)

type SavedDocument struct {
	bun.BaseModel `bun:"table:saved_documents,alias:sd"`
	ID            int64  `bun:"id,pk,autoincrement"`
	Position      int    `bun:"position,notnull"`
	Name          string `bun:"name,notnull"`
	Content       string `bun:"content,notnull"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	switch cfg.Driver {
	case "", "pgdriver":
		opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
		if cfg.Password != "" {
			opts = append(opts, pgdriver.WithPassword(cfg.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	case "postgres":
		return sql.Open("postgres", cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func InitDB(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*SavedDocument)(nil)).IfNotExists().Exec(ctx)
	return err
}

// PostgresStore keeps saved documents in the saved_documents table, ordered
// by position. It satisfies store.Store.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) selectQuery(rows *[]SavedDocument) *bun.SelectQuery {
	return s.db.NewSelect().Model(rows).Order("position ASC", "id ASC")
}

func (s *PostgresStore) Load(ctx context.Context) ([]models.Document, error) {
	var rows []SavedDocument
	if err := s.selectQuery(&rows).Scan(ctx); err != nil {
		return nil, models.NewError(models.KindStoreRead, "load", "saved_documents", err)
	}

	docs := make([]models.Document, len(rows))
	for i, row := range rows {
		docs[i] = models.Document{Name: row.Name, Content: row.Content}
	}
	return docs, nil
}

// lockDocuments blocks other writers of saved_documents until tx ends.
func lockDocuments(ctx context.Context, tx bun.Tx) error {
	_, err := tx.ExecContext(ctx, "LOCK TABLE saved_documents IN SHARE ROW EXCLUSIVE MODE")
	return err
}

// Append inserts doc after the last stored row. The position is read and
// written in one locked transaction.
func (s *PostgresStore) Append(ctx context.Context, doc models.Document) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockDocuments(ctx, tx); err != nil {
			return err
		}
		var next int
		if err := tx.NewSelect().
			Model((*SavedDocument)(nil)).
			ColumnExpr("COALESCE(MAX(position), -1) + 1").
			Scan(ctx, &next); err != nil {
			return err
		}
		row := SavedDocument{Position: next, Name: doc.Name, Content: doc.Content}
		_, err := tx.NewInsert().Model(&row).Exec(ctx)
		return err
	})
	if err != nil {
		return models.NewError(models.KindStoreWrite, "append", "saved_documents", err)
	}
	log.Debug().Str("name", doc.Name).Msg("Appended document to database")
	return nil
}

// Save replaces every stored row with docs inside one transaction.
func (s *PostgresStore) Save(ctx context.Context, docs []models.Document) error {
	rows := toRows(docs)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockDocuments(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*SavedDocument)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
	if err != nil {
		return models.NewError(models.KindStoreWrite, "save", "saved_documents", err)
	}
	log.Debug().Int("documents", len(docs)).Msg("Saved documents to database")
	return nil
}

func toRows(docs []models.Document) []SavedDocument {
	rows := make([]SavedDocument, len(docs))
	for i, d := range docs {
		rows[i] = SavedDocument{Position: i, Name: d.Name, Content: d.Content}
	}
	return rows
}

// drop table saved_documents
func DropDocuments(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*SavedDocument)(nil)).IfExists().Exec(ctx)
	return err
}
