package dao

import (
	"context"

	"github.com/aigcbox/genbatch/internal/model/entity"
)

var Key = NewKeyDao()

type KeyDao struct {
	store *AppStore
}

func NewKeyDao(store ...*AppStore) *KeyDao {

	if len(store) == 0 {
		store = append(store, Store)
	}

	return &KeyDao{store: store[0]}
}

func (d *KeyDao) List(ctx context.Context) ([]*entity.KeyEntry, error) {

	doc, err := d.store.Read(ctx)
	if err != nil {
		return nil, err
	}

	return doc.Keys, nil
}

func (d *KeyDao) UpdateLastUsed(ctx context.Context, name string, lastUsed int64) error {

	_, err := d.store.Update(ctx, func(doc *entity.Document) error {

		for _, key := range doc.Keys {
			if key.Name == name {
				key.LastUsed = lastUsed
			}
		}

		return nil
	})

	return err
}
