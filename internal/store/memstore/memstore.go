// Package memstore 是进程内的用户存储，用于本地开发与测试，重启后数据丢失。
package memstore

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"recipebox/internal/model"
	"recipebox/internal/store"
)

// Store 实现 store.Store，ID 为自增十进制字符串。
type Store struct {
	mu             sync.RWMutex
	nextID         uint64
	users          map[string]*model.User
	byEmail        map[string]string
	favoriteWrites int
	now            func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:   make(map[string]*model.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (s *Store) ValidID(id string) bool {
	n, err := strconv.ParseUint(id, 10, 64)
	return err == nil && n > 0
}

func (s *Store) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(user.Email)
	if _, ok := s.byEmail[key]; ok {
		return store.ErrDuplicateEmail
	}
	s.nextID++
	now := s.now().UTC()
	user.ID = strconv.FormatUint(s.nextID, 10)
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Favorites == nil {
		user.Favorites = model.Favorites{}
	}
	s.users[user.ID] = clone(user)
	s.byEmail[key] = user.ID
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if !s.ValidID(id) {
		return nil, store.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(u), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(s.users[id]), nil
}

func (s *Store) UpdateUser(_ context.Context, id string, update model.UserUpdate) (*model.User, error) {
	if !s.ValidID(id) {
		return nil, store.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if update.Email != nil {
		key := emailKey(*update.Email)
		if owner, taken := s.byEmail[key]; taken && owner != id {
			return nil, store.ErrDuplicateEmail
		}
		delete(s.byEmail, emailKey(u.Email))
		s.byEmail[key] = id
		u.Email = *update.Email
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.PasswordHash != nil {
		u.PasswordHash = *update.PasswordHash
	}
	if !update.Empty() {
		u.UpdatedAt = s.now().UTC()
	}
	return clone(u), nil
}

func (s *Store) SetFavorites(_ context.Context, id string, favorites model.Favorites) error {
	if !s.ValidID(id) {
		return store.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Favorites = append(model.Favorites{}, favorites...)
	u.UpdatedAt = s.now().UTC()
	s.favoriteWrites++
	return nil
}

// FavoriteWrites 返回 SetFavorites 成功写入的次数。
func (s *Store) FavoriteWrites() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.favoriteWrites
}

// Stored 返回保存的原始记录（含密码哈希）的副本。
func (s *Store) Stored(id string) (*model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, false
	}
	return clone(u), true
}

func (s *Store) Ping(context.Context) error  { return nil }
func (s *Store) Close(context.Context) error { return nil }

func clone(u *model.User) *model.User {
	cp := *u
	cp.Favorites = append(model.Favorites{}, u.Favorites...)
	return &cp
}

// emailKey 与 MySQL 默认排序规则一致，邮箱唯一性不区分大小写。
func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
