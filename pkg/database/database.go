package database

import (
	"protofuzz/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type DBParams struct {
	fx.In

	Config *config.AppConfig
	Logger *zap.Logger
}

// NewDBConnection opens the postgres database. It returns a nil handle when
// DATABASE_URL is not set.
func NewDBConnection(p DBParams) (*gorm.DB, error) {
	connectionString := p.Config.DatabaseURL
	if connectionString == "" {
		p.Logger.Debug("DATABASE_URL not set, database disabled")
		return nil, nil
	}
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{})
	if err != nil {
		p.Logger.Error("failed to connect database", zap.Error(err))
		return nil, err
	}
	p.Logger.Debug("connected to database")
	return db, nil
}
