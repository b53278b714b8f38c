// Package mysqlstore 是基于 GORM + MySQL 的用户存储实现。
package mysqlstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"recipebox/internal/model"
	"recipebox/internal/store"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// mysqlDuplicateEntry 是 MySQL 唯一索引冲突的错误码。
const mysqlDuplicateEntry = 1062

// userRow 是 users 表的行结构。
type userRow struct {
	ID           uint            `gorm:"primaryKey"`
	Name         string          `gorm:"type:varchar(191);not null"`
	Email        string          `gorm:"type:varchar(191);uniqueIndex;not null"`
	PasswordHash string          `gorm:"not null"`
	Favorites    model.Favorites `gorm:"type:json"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRow) TableName() string {
	return "users"
}

func (r *userRow) toModel() *model.User {
	favs := r.Favorites
	if favs == nil {
		favs = model.Favorites{}
	}
	return &model.User{
		ID:           strconv.FormatUint(uint64(r.ID), 10),
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Favorites:    favs,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// Store 实现 store.Store。
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// GormConfig 返回本包使用的 GORM 配置。
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:                 gormLogger.Default.LogMode(gormLogger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}
}

// Open 连接 MySQL 并执行自动迁移。
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), GormConfig())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := db.AutoMigrate(&userRow{}); err != nil {
		return nil, fmt.Errorf("migrate users: %w", err)
	}
	return New(db), nil
}

// New 使用已有的 *gorm.DB 创建 Store。
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ValidID(id string) bool {
	_, err := parseID(id)
	return err == nil
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	favs := user.Favorites
	if favs == nil {
		favs = model.Favorites{}
	}
	row := userRow{
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Favorites:    favs,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return store.ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	*user = *row.toModel()
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var row userRow
	if err := s.db.WithContext(ctx).Where("id = ?", uid).First(&row).Error; err != nil {
		return nil, translateFind(err)
	}
	return row.toModel(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&row).Error; err != nil {
		return nil, translateFind(err)
	}
	return row.toModel(), nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, update model.UserUpdate) (*model.User, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if !update.Empty() {
		updates := map[string]interface{}{}
		if update.Name != nil {
			updates["name"] = *update.Name
		}
		if update.Email != nil {
			updates["email"] = *update.Email
		}
		if update.PasswordHash != nil {
			updates["password_hash"] = *update.PasswordHash
		}
		if err := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", uid).Updates(updates).Error; err != nil {
			if isDuplicate(err) {
				return nil, store.ErrDuplicateEmail
			}
			return nil, fmt.Errorf("update user: %w", err)
		}
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) SetFavorites(ctx context.Context, id string, favorites model.Favorites) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	if favorites == nil {
		favorites = model.Favorites{}
	}
	res := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", uid).Update("favorites", favorites)
	if res.Error != nil {
		return fmt.Errorf("update favorites: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close(_ context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func parseID(id string) (uint, error) {
	v, err := strconv.ParseUint(id, 10, 64)
	if err != nil || v == 0 {
		return 0, store.ErrInvalidID
	}
	return uint(v), nil
}

func translateFind(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return fmt.Errorf("query user: %w", err)
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysqldriver.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
