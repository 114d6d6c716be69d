package progress

import "github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"

// Repository - типизированная коллекция прогресса поверх shared.Store.
// Ключ записи - идентификатор пользователя (см. Key).
type Repository = shared.Collection[UserProgress]

// NewRepository привязывает коллекцию прогресса к хранилищу.
func NewRepository(store shared.Store) Repository {
	return shared.NewCollection[UserProgress](store, shared.CollectionProgress)
}

// Key возвращает ключ хранилища для пользователя.
func Key(userID string) string {
	return userID
}
