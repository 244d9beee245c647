package memory

import (
	"context"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// userRepository — in-memory реализация UserRepository.
type userRepository struct {
	store *Store
}

// NewUserRepository возвращает in-memory репозиторий пользователей.
func NewUserRepository(store *Store) domain.UserRepository {
	return &userRepository{store: store}
}

// Create сохраняет пользователя; username и token должны быть уникальны.
func (r *userRepository) Create(_ context.Context, user domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.byUsername[user.Username]; exists {
		return domain.ErrUserExists
	}
	if _, exists := r.store.byToken[user.Token]; exists {
		return domain.ErrUserExists
	}
	r.store.users[user.ID] = user
	r.store.byUsername[user.Username] = user.ID
	r.store.byToken[user.Token] = user.ID
	return nil
}

// GetByUsername возвращает пользователя по имени или ErrUserNotFound.
func (r *userRepository) GetByUsername(_ context.Context, username string) (domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.byUsername[username]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return r.store.users[id], nil
}

// GetByToken возвращает владельца токена или ErrUserNotFound.
func (r *userRepository) GetByToken(_ context.Context, token string) (domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.byToken[token]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return r.store.users[id], nil
}

var _ domain.UserRepository = (*userRepository)(nil)
