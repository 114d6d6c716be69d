package reward

import "github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"

// Repository - типизированная коллекция наград.
// Ключ "<userID>:<rewardID>" позволяет выбирать награды пользователя по префиксу.
type Repository = shared.Collection[Reward]

// NewRepository привязывает коллекцию наград к хранилищу.
func NewRepository(store shared.Store) Repository {
	return shared.NewCollection[Reward](store, shared.CollectionRewards)
}

// Key возвращает ключ награды пользователя.
func Key(userID, rewardID string) string {
	return shared.JoinKey(userID, rewardID)
}

// UserPrefix возвращает префикс ключей всех наград пользователя.
func UserPrefix(userID string) string {
	return shared.KeyPrefix(userID)
}
