package challenge

import "github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"

// Repository - типизированная коллекция челленджей. Ключ - ID челленджа.
type Repository = shared.Collection[Challenge]

// NewRepository привязывает коллекцию челленджей к хранилищу.
func NewRepository(store shared.Store) Repository {
	return shared.NewCollection[Challenge](store, shared.CollectionChallenges)
}
