package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ideaforge/ideaforge-backend/internal/domain"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/envutil"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/logger"
)

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// New opens the configured database. DB_DRIVER=sqlite selects an
// embedded sqlite file for local development; everything else is
// Postgres built from POSTGRES_* env vars.
func New(log *logger.Logger) (*Service, error) {
	serviceLog := log.With("service", "DBService")

	driver := strings.ToLower(envutil.GetEnv("DB_DRIVER", "postgres", log))
	if driver == "sqlite" {
		path := envutil.GetEnv("SQLITE_PATH", "ideaforge.db", log)
		serviceLog.Info("opening sqlite database", "path", path)
		gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &Service{db: gdb, log: serviceLog}, nil
	}

	host := envutil.GetEnv("POSTGRES_HOST", "localhost", log)
	port := envutil.GetEnv("POSTGRES_PORT", "5432", log)
	user := envutil.GetEnv("POSTGRES_USER", "postgres", log)
	password := envutil.GetEnv("POSTGRES_PASSWORD", "", log)
	name := envutil.GetEnv("POSTGRES_NAME", "ideaforge", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

	serviceLog.Info("connecting to postgres", "host", host, "db", name)
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
	}

	return &Service{db: gdb, log: serviceLog}, nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("auto migrating tables")
	if err := s.db.AutoMigrate(
		&domain.Idea{},
		&domain.Prototype{},
		&domain.PrototypeSessionState{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (s *Service) DB() *gorm.DB { return s.db }
