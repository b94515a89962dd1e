package repo

import (
	"fmt"
	"log"
	"strings"

	"rulecard-service/internal/config"
	"rulecard-service/internal/model"
	"rulecard-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Dialector picks the gorm driver named by database.driver.
func Dialector(conf config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(conf.Driver) {
	case "", "postgres", "postgresql":
		return postgres.Open(conf.DSN), nil
	case "mysql":
		return mysql.Open(conf.DSN), nil
	case "sqlite", "sqlite3":
		return sqlite.Open(conf.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conf.Driver)
	}
}

// InitDB leaves DB nil when no DSN is configured; sessions then run
// without history.
func InitDB() {
	conf := config.GlobalConfig.Database
	if conf.DSN == "" {
		logger.Log.Warn("database dsn empty, game history disabled")
		return
	}
	dialector, err := Dialector(conf)
	if err != nil {
		logger.Log.Fatal("Invalid database config", zap.Error(err))
	}
	DB, err = gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		logger.Log.Fatal("Failed to connect to database",
			zap.String("driver", conf.Driver),
			zap.Error(err),
		)
	}

	if err := DB.AutoMigrate(model.AllModels()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
}
