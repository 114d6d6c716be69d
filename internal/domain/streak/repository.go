package streak

import "github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"

// Repository - типизированная коллекция серий.
type Repository = shared.Collection[Streak]

// NewRepository привязывает коллекцию серий к хранилищу.
func NewRepository(store shared.Store) Repository {
	return shared.NewCollection[Streak](store, shared.CollectionStreaks)
}

// Key возвращает ключ серии: "<userID>:<type>" с экранированными компонентами.
func Key(userID string, t Type) string {
	return shared.JoinKey(userID, string(t))
}

// UserPrefix возвращает префикс ключей всех серий пользователя.
func UserPrefix(userID string) string {
	return shared.KeyPrefix(userID)
}
