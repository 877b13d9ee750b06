package store

import (
	"context"

	"GemChat/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Open returns the store selected by driver. The memory driver ignores dsn.
func Open(driver, dsn string, log *zap.Logger) (Store, error) {
	if driver == "" || driver == DriverMemory {
		log.Info("using in-memory store")
		return NewMemory(), nil
	}
	db, err := OpenDB(driver, dsn)
	if err != nil {
		return nil, err
	}
	return NewGorm(db, log)
}

// OpenDB opens a gorm connection for one of the sql drivers.
func OpenDB(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, errors.Errorf("unsupported store driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", driver)
	}
	return db, nil
}

// Gorm persists chats and messages through gorm.
type Gorm struct {
	db    *gorm.DB
	log   *zap.Logger
	clock *clock
}

func NewGorm(db *gorm.DB, log *zap.Logger) (*Gorm, error) {
	if err := db.AutoMigrate(&models.Chat{}, &models.Message{}); err != nil {
		return nil, errors.Wrap(err, "migrating chat tables")
	}
	log.Info("gorm store ready", zap.String("dialect", db.Dialector.Name()))
	return &Gorm{db: db, log: log.Named("store"), clock: newClock()}, nil
}

func (g *Gorm) ListChats(ctx context.Context) ([]models.Chat, error) {
	chats := []models.Chat{}
	if err := g.db.WithContext(ctx).Order("updated_at DESC").Find(&chats).Error; err != nil {
		return nil, errors.Wrap(err, "listing chats")
	}
	return chats, nil
}

func (g *Gorm) CreateChat(ctx context.Context, title string) (models.Chat, error) {
	now := g.clock.Now()
	chat := models.Chat{
		ID:        uuid.NewString(),
		Title:     normalizeTitle(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := g.db.WithContext(ctx).Create(&chat).Error; err != nil {
		return models.Chat{}, errors.Wrap(err, "creating chat")
	}
	return chat, nil
}

func (g *Gorm) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	msgs := []models.Message{}
	err := g.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, errors.Wrap(err, "listing messages")
	}
	return msgs, nil
}

func (g *Gorm) AppendMessage(ctx context.Context, chatID string, draft models.MessageDraft) (models.Message, error) {
	if err := checkDraft(chatID, draft); err != nil {
		return models.Message{}, err
	}

	msg := draft.Materialize(uuid.NewString(), chatID, g.clock.Now())
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return errors.Wrap(err, "inserting message")
		}
		// Orphan messages are kept; only a live chat gets its timestamp bumped.
		res := tx.Model(&models.Chat{}).Where("id = ?", chatID).Update("updated_at", msg.CreatedAt)
		if res.Error != nil {
			return errors.Wrap(res.Error, "touching chat")
		}
		return nil
	})
	if err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

func (g *Gorm) DeleteChat(ctx context.Context, chatID string) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", chatID).Delete(&models.Message{}).Error; err != nil {
			return errors.Wrap(err, "deleting messages")
		}
		if err := tx.Where("id = ?", chatID).Delete(&models.Chat{}).Error; err != nil {
			return errors.Wrap(err, "deleting chat")
		}
		return nil
	})
}
