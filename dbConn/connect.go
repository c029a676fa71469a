package dbConn

import (
	"fmt"

	"github.com/CatalogLoad/config"
	param "github.com/CatalogLoad/param"
	slog "github.com/CatalogLoad/syslog"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	logid = "DBconnect: "
)

func syslog(s string) {
	slog.Log(logid, s)
}

// Open connects to the relational store named by cfg. The caller owns the handle and
// must release it with Close on every path.
func Open(cfg config.Database) (*gorm.DB, error) {

	var dialector gorm.Dialector

	dsn := cfg.ConnString()
	switch cfg.Driver {
	case param.DriverPostgres:
		dialector = postgres.Open(dsn)
	case param.DriverSQLite:
		if len(dsn) == 0 {
			dsn = "file::memory:"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger()})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}

	if cfg.Driver == param.DriverSQLite {
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		// single writer; also keeps an in-memory database alive across statements
		sqlDB.SetMaxOpenConns(1)
		if err := gdb.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			Close(gdb)
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	}
	syslog(fmt.Sprintf("connected to %s store", cfg.Driver))

	return gdb, nil
}

// Close releases the pool behind gdb. A nil handle is ignored.
func Close(gdb *gorm.DB) {
	if gdb == nil {
		return
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		slog.Named(logid).Errorw("close store", "error", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		slog.Named(logid).Errorw("close store", "error", err)
	}
}

// gormLogger sends gorm warnings (slow statements, errors) through the zap logger.
func gormLogger() logger.Interface {
	std := zap.NewStdLog(slog.Named("gorm").Desugar())
	return logger.New(std, logger.Config{
		SlowThreshold:             param.SlowStatement,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// AWSSession builds the session shared by the S3 input source and the DynamoDB run log.
func AWSSession(region string) (*session.Session, error) {

	if len(region) == 0 {
		region = param.AWSRegion
	}
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return sess, nil
}
