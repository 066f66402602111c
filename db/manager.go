package db

import (
	"context"
	"fmt"

	"github.com/Kyy487/ruangcerita/config"
	"github.com/Kyy487/ruangcerita/logger"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
)

var ORM *gorm.DB

func dsnFromConfig(dbConf config.DBConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		dbConf.Host, dbConf.Port, dbConf.User, dbConf.Password, dbConf.DBName,
	)
}

// ConnectDB opens the configured database, registers read replicas and
// migrates the substrate table. The handle is also kept in ORM.
func ConnectDB(conf *config.ConfigSchema) (*gorm.DB, error) {
	if ORM != nil {
		logger.Debug().Msg("ORM is already initialized")
		return ORM, nil
	}
	if conf == nil {
		return nil, fmt.Errorf("AppConfig is not loaded")
	}

	var dialector gorm.Dialector
	replicas := make([]gorm.Dialector, 0, len(conf.Databases.Replicas))
	switch conf.Databases.Driver {
	case "postgres":
		if conf.Databases.Master.Host == "" {
			return nil, fmt.Errorf("master database configuration is missing")
		}
		dialector = postgres.Open(dsnFromConfig(conf.Databases.Master))
		for _, r := range conf.Databases.Replicas {
			replicas = append(replicas, postgres.Open(dsnFromConfig(r)))
		}
	case "sqlite":
		dialector = sqlite.Open(conf.Databases.Path)
	default:
		return nil, fmt.Errorf("unknown database driver %q", conf.Databases.Driver)
	}

	orm, err := Open(dialector, replicas...)
	if err != nil {
		return nil, err
	}
	ORM = orm
	return orm, nil
}

// Open connects through dialector and migrates the substrate table.
func Open(dialector gorm.Dialector, replicas ...gorm.Dialector) (*gorm.DB, error) {
	orm, err := gorm.Open(dialector, &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if len(replicas) > 0 {
		err = orm.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			return nil, fmt.Errorf("failed to register replicas: %w", err)
		}
	}

	if err = Migrate(orm); err != nil {
		return nil, err
	}
	return orm, nil
}

// GetReadOnlyDB returns a handle routed to replicas when they are configured.
func GetReadOnlyDB(ctx context.Context, orm *gorm.DB) *gorm.DB {
	return orm.WithContext(ctx).Clauses(dbresolver.Read)
}

// GetWriteDB returns a handle routed to the master.
func GetWriteDB(ctx context.Context, orm *gorm.DB) *gorm.DB {
	return orm.WithContext(ctx).Clauses(dbresolver.Write)
}
