package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/ticket-marketplace/internal/config"
)

// Open connects to MySQL and verifies the connection.
func Open(ctx context.Context, cfg config.DBConfig) (*sql.DB, error) {
	dc := mysql.NewConfig()
	dc.User = cfg.User
	dc.Passwd = cfg.Pass
	dc.Net = "tcp"
	dc.Addr = cfg.Host + ":" + cfg.Port
	dc.DBName = cfg.Name
	// parseTime -> DATETIME scans into time.Time, Loc=UTC keeps times consistent
	dc.ParseTime = true
	dc.Loc = time.UTC
	dc.Params = map[string]string{"charset": "utf8mb4"}

	db, err := sql.Open("mysql", dc.FormatDSN())
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS user_profiles (
		address      CHAR(42)     NOT NULL PRIMARY KEY,
		metadata_uri VARCHAR(512) NOT NULL,
		updated_at   DATETIME     NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS activity_journal (
		id          CHAR(36)     NOT NULL PRIMARY KEY,
		kind        VARCHAR(32)  NOT NULL,
		event_id    INT UNSIGNED NOT NULL,
		tier        INT UNSIGNED NOT NULL,
		actor       CHAR(42)     NOT NULL,
		currency    VARCHAR(8)   NOT NULL,
		amount      VARCHAR(78)  NOT NULL,
		fee         VARCHAR(78)  NOT NULL,
		quantity    BIGINT UNSIGNED NOT NULL,
		occurred_at DATETIME     NOT NULL,
		KEY idx_activity_event (event_id, occurred_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables the repositories use when they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
