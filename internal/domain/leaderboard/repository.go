package leaderboard

import "github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"

// Repository - типизированная коллекция лидербордов. Ключ - ID лидерборда.
type Repository = shared.Collection[Leaderboard]

// NewRepository привязывает коллекцию лидербордов к хранилищу.
func NewRepository(store shared.Store) Repository {
	return shared.NewCollection[Leaderboard](store, shared.CollectionLeaderboards)
}
