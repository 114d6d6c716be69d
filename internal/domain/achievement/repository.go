package achievement

import "github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"

// Repository - типизированная коллекция достижений.
// Ключ "<userID>:<definitionID>" (компоненты экранированы) гарантирует одну
// запись на определение.
type Repository = shared.Collection[Achievement]

// NewRepository привязывает коллекцию достижений к хранилищу.
func NewRepository(store shared.Store) Repository {
	return shared.NewCollection[Achievement](store, shared.CollectionAchievements)
}

// Key возвращает ключ достижения пользователя.
func Key(userID, definitionID string) string {
	return shared.JoinKey(userID, definitionID)
}

// UserPrefix возвращает префикс ключей всех достижений пользователя.
func UserPrefix(userID string) string {
	return shared.KeyPrefix(userID)
}
