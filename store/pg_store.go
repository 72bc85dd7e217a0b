package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	cargoxerrors "github.com/orionop/cargox/errors"
	"github.com/orionop/cargox/models"
)

// PGStore is the transactional object store backed by gorm + postgres,
// configured with viper-driven pool knobs and a gorm logger.Config tuned
// for slow-query reporting.
type PGStore struct {
	db  *gorm.DB
	log *zap.Logger
}

// poolConfig holds the connection pool defaults loaded from environment.
type poolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PrepareStmt     bool
	SlowThreshold   time.Duration
	LogLevel        logger.LogLevel
}

func loadPoolConfig() poolConfig {
	cfg := poolConfig{
		MaxOpenConns:    100,
		MaxIdleConns:    25,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
		PrepareStmt:     true,
		SlowThreshold:   time.Second,
		LogLevel:        logger.Warn,
	}
	if v := viper.GetInt("DB_MAX_OPEN_CONNS"); v > 0 {
		cfg.MaxOpenConns = v
	}
	if v := viper.GetInt("DB_MAX_IDLE_CONNS"); v > 0 {
		cfg.MaxIdleConns = v
	}
	if cfg.MaxIdleConns > cfg.MaxOpenConns {
		cfg.MaxIdleConns = cfg.MaxOpenConns
	}
	return cfg
}

// Open connects to postgres using DATABASE_URL (viper/env) and runs
// AutoMigrate for the core's tables.
func Open(zlog *zap.Logger) (*PGStore, error) {
	viper.AutomaticEnv()

	dsn := viper.GetString("DATABASE_URL")
	if dsn == "" {
		return nil, cargoxerrors.New(cargoxerrors.StoreUnavailable, "DATABASE_URL is not set")
	}

	cfg := loadPoolConfig()

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             cfg.SlowThreshold,
			LogLevel:                  cfg.LogLevel,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   gormLogger,
		PrepareStmt:                              cfg.PrepareStmt,
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	})
	if err != nil {
		return nil, cargoxerrors.Wrap(cargoxerrors.StoreUnavailable, "failed to connect to DB", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, cargoxerrors.Wrap(cargoxerrors.StoreUnavailable, "failed to get sql.DB", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.AutoMigrate(
		&models.Container{},
		&models.Item{},
		&models.LogEvent{},
		&simulationClock{},
	); err != nil {
		return nil, cargoxerrors.Wrap(cargoxerrors.StoreUnavailable, "migration failed", err)
	}

	if zlog == nil {
		zlog = zap.NewNop()
	}
	zlog.Info("database connected",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)

	return &PGStore{db: db, log: zlog}, nil
}

// Close releases the underlying connection pool.
func (s *PGStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// simulationClock is a single-row table holding the durable logical clock:
// it compounds across calls, so it lives in the store like any other
// committed state rather than in process memory.
type simulationClock struct {
	ID   int `gorm:"primaryKey"`
	Date time.Time
}

func (PGStore) clockRow(ctx context.Context, tx *gorm.DB) (*simulationClock, error) {
	var row simulationClock
	err := tx.WithContext(ctx).FirstOrCreate(&row, simulationClock{ID: 1, Date: time.Now().UTC().Truncate(24 * time.Hour)}).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *PGStore) ListContainers(ctx context.Context) ([]*models.Container, error) {
	var out []*models.Container
	if err := s.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, cargoxerrors.Wrap(cargoxerrors.StoreUnavailable, "list containers", err)
	}
	return out, nil
}

func (s *PGStore) GetContainer(ctx context.Context, id string) (*models.Container, error) {
	var c models.Container
	err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, cargoxerrors.New(cargoxerrors.NotFound, "container not found: "+id)
		}
		return nil, cargoxerrors.Wrap(cargoxerrors.StoreUnavailable, "get container", err)
	}
	return &c, nil
}

func (s *PGStore) CreateContainers(ctx context.Context, containers []*models.Container) error {
	if len(containers) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&containers).Error; err != nil {
		return cargoxerrors.Wrap(cargoxerrors.StoreUnavailable, "create containers", err)
	}
	return nil
}

func (s *PGStore) ListItems(ctx context.Context, filter ItemFilter) ([]*models.Item, error) {
	q := s.db.WithContext(ctx).Model(&models.Item{})
	if filter.ContainerID != "" {
		q = q.Where("placement_container_id = ?", filter.ContainerID)
	}
	if filter.Unplaced {
		q = q.Where("placement_container_id IS NULL OR placement_container_id = ''")
	}
	if filter.IsWaste != nil {
		q = q.Where("is_waste = ?", *filter.IsWaste)
	}
	if filter.Zone != "" {
		q = q.Joins("JOIN containers ON containers.id = items.placement_container_id").
			Where("containers.zone = ?", filter.Zone)
	}
	var out []*models.Item
	if err := q.Order("id").Find(&out).Error; err != nil {
		return nil, cargoxerrors.Wrap(cargoxerrors.StoreUnavailable, "list items", err)
	}
	return out, nil
}

func (s *PGStore) GetItem(ctx context.Context, id string) (*models.Item, error) {
	var it models.Item
	err := s.db.WithContext(ctx).First(&it, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, cargoxerrors.New(cargoxerrors.NotFound, "item not found: "+id)
		}
		return nil, cargoxerrors.Wrap(cargoxerrors.StoreUnavailable, "get item", err)
	}
	return &it, nil
}

func (s *PGStore) CreateItems(ctx context.Context, items []*models.Item) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&items).Error; err != nil {
		return cargoxerrors.Wrap(cargoxerrors.StoreUnavailable, "create items", err)
	}
	return nil
}

func applyItemUpdate(tx *gorm.DB, u ItemUpdate) error {
	fields := map[string]interface{}{}
	if u.ClearPlacement {
		fields["placement_container_id"] = nil
		fields["placement_x"] = nil
		fields["placement_y"] = nil
		fields["placement_z"] = nil
		fields["placement_width"] = nil
		fields["placement_height"] = nil
		fields["placement_depth"] = nil
	} else if u.SetPlacement != nil {
		fields["placement_container_id"] = u.SetPlacement.ContainerID
		fields["placement_x"] = u.SetPlacement.X
		fields["placement_y"] = u.SetPlacement.Y
		fields["placement_z"] = u.SetPlacement.Z
		fields["placement_width"] = u.SetPlacement.Width
		fields["placement_height"] = u.SetPlacement.Height
		fields["placement_depth"] = u.SetPlacement.Depth
	}
	if u.UsageCount != nil {
		fields["usage_count"] = *u.UsageCount
	}
	if u.IsWaste != nil {
		fields["is_waste"] = *u.IsWaste
	}
	if u.LastRetrievedAt != nil {
		fields["last_retrieved_at"] = *u.LastRetrievedAt
	}
	if u.LastRetrievedBy != nil {
		fields["last_retrieved_by"] = *u.LastRetrievedBy
	}
	if len(fields) == 0 {
		return nil
	}
	res := tx.Model(&models.Item{}).Where("id = ?", u.ID).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("item not found: %s", u.ID)
	}
	return nil
}

func (s *PGStore) UpdateItem(ctx context.Context, update ItemUpdate) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return applyItemUpdate(tx, update)
	})
	if err != nil {
		return cargoxerrors.Wrap(cargoxerrors.NotFound, "update item", err)
	}
	return nil
}

// BulkUpdateItems applies every update inside a single transaction: a
// ConsistencyViolation in the middle aborts and rolls back the whole
// batch.
func (s *PGStore) BulkUpdateItems(ctx context.Context, updates []ItemUpdate) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if err := applyItemUpdate(tx, u); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return cargoxerrors.Wrap(cargoxerrors.ConsistencyViolation, "bulk update items", err)
	}
	return nil
}

func (s *PGStore) Log(ctx context.Context, event models.LogEvent) (models.LogEvent, error) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return models.LogEvent{}, cargoxerrors.Wrap(cargoxerrors.StoreUnavailable, "append log", err)
	}
	s.log.Debug("event logged",
		zap.String("action", event.Action),
		zap.String("item_id", event.ItemID),
		zap.String("container_id", event.ContainerID),
		zap.String("actor", event.Actor),
	)
	return event, nil
}

func (s *PGStore) ListLogs(ctx context.Context, limit int) ([]models.LogEvent, error) {
	q := s.db.WithContext(ctx).Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.LogEvent
	if err := q.Find(&out).Error; err != nil {
		return nil, cargoxerrors.Wrap(cargoxerrors.StoreUnavailable, "list logs", err)
	}
	return out, nil
}

func (s *PGStore) SimulationClock(ctx context.Context) (time.Time, error) {
	row, err := s.clockRow(ctx, s.db)
	if err != nil {
		return time.Time{}, cargoxerrors.Wrap(cargoxerrors.StoreUnavailable, "read simulation clock", err)
	}
	return row.Date, nil
}

func (s *PGStore) AdvanceSimulationClock(ctx context.Context, days int) (time.Time, error) {
	var newDate time.Time
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.clockRow(ctx, tx)
		if err != nil {
			return err
		}
		row.Date = row.Date.AddDate(0, 0, days)
		newDate = row.Date
		return tx.Save(row).Error
	})
	if err != nil {
		return time.Time{}, cargoxerrors.Wrap(cargoxerrors.ConsistencyViolation, "advance simulation clock", err)
	}
	return newDate, nil
}
