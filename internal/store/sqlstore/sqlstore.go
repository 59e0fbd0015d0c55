package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"kasirlokal/internal/domain"
	"kasirlokal/internal/logger"
	"kasirlokal/internal/store"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type Config struct {
	Driver string
	// DSN is a file path or sqlite URI, a postgres URL, or a mysql DSN
	// (which must carry parseTime=true).
	DSN    string
	Logger *slog.Logger
}

// Store persists every kind in its own table through gorm.
type Store struct {
	db    *gorm.DB
	sqlDB *sql.DB

	// writeMu serializes Update within the process; lockRows adds
	// SELECT ... FOR UPDATE on product reads for servers shared with
	// other processes.
	writeMu  sync.Mutex
	lockRows bool
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(logger.Writer{Logger: log.With("component", "sqlstore"), Level: slog.LevelWarn}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", store.ErrStorageUnavailable, cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrStorageUnavailable, err)
	}
	if cfg.Driver == DriverSQLite {
		// One writer at a time; a private :memory: database also lives on a single connection.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxIdleConns(8)
		sqlDB.SetMaxOpenConns(30)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", store.ErrStorageUnavailable, cfg.Driver, err)
	}

	if err := db.WithContext(ctx).AutoMigrate(
		&domain.User{},
		&domain.Product{},
		&domain.Category{},
		&domain.Transaction{},
		&domain.ActivityLog{},
		&domain.Settings{},
		&metaEntry{},
	); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: migrate schema: %v", store.ErrStorageUnavailable, err)
	}

	return &Store{db: db, sqlDB: sqlDB, lockRows: cfg.Driver != DriverSQLite}, nil
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	case DriverPostgres:
		conn, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrStorageUnavailable, err)
		}
		return postgres.New(postgres.Config{Conn: conn}), nil
	case DriverMySQL:
		return mysql.Open(cfg.DSN), nil
	}
	return nil, fmt.Errorf("%w: unsupported driver %q", store.ErrStorageUnavailable, cfg.Driver)
}

func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(store.Guard(&gormTx{db: tx}, nil, true))
	})
}

func (s *Store) Update(ctx context.Context, kinds []store.Kind, fn func(tx store.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(store.Guard(&gormTx{db: tx, lockRows: s.lockRows}, kinds, false))
	})
}

func (s *Store) Close() error {
	return s.sqlDB.Close()
}

// metaEntry holds internal bookkeeping such as the migration marker.
type metaEntry struct {
	Key       string    `gorm:"column:meta_key;primaryKey;size:128"`
	Value     string    `gorm:"column:meta_value;type:text"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (metaEntry) TableName() string {
	return "meta_entries"
}
