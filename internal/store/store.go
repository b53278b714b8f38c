// Package store 定义用户数据的持久化接口。
//
// 实现负责邮箱唯一约束与 ID 分配；所有方法都是单文档的读或写，不提供跨请求的锁。
package store

import (
	"context"
	"errors"

	"recipebox/internal/model"
)

var (
	// ErrNotFound 表示用户不存在。
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail 表示邮箱已被占用。
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrInvalidID 表示 ID 的格式不是当前后端认可的标识。
	ErrInvalidID = errors.New("invalid user id")
)

// Store 是用户文档的存储接口。
type Store interface {
	// ValidID 判断 id 是否为当前后端的合法标识（不查询数据库）。
	ValidID(id string) bool
	// CreateUser 写入新用户并回填 ID 与时间戳。
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdateUser 应用部分更新并返回更新后的用户。
	UpdateUser(ctx context.Context, id string, update model.UserUpdate) (*model.User, error)
	// SetFavorites 整体覆盖收藏列表（后写覆盖先写）。
	SetFavorites(ctx context.Context, id string, favorites model.Favorites) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
