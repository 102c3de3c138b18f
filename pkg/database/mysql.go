package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/evotools/evo-dispatch/environments"
	"github.com/evotools/evo-dispatch/pkg/logger"
)

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

// scheduledJobsSchema keeps fractional seconds on scheduled_at: a plain
// DATETIME would round a sub-second instant up and let a job go out before
// its requested time.
const scheduledJobsSchema = `
	CREATE TABLE IF NOT EXISTS scheduled_jobs (
		id CHAR(36) PRIMARY KEY,
		kind VARCHAR(10) NOT NULL,
		payload JSON NOT NULL,
		scheduled_at DATETIME(6) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		error TEXT,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		INDEX idx_jobs_status_scheduled_at (status, scheduled_at),
		INDEX idx_jobs_created_at (created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
	`

func RunMigrations(db *sqlx.DB) error {
	_, err := db.Exec(scheduledJobsSchema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Infof("Database migrations completed")

	return nil
}
