package dao

import (
	"context"

	"github.com/aigcbox/genbatch/internal/model/entity"
)

var Settings = NewSettingsDao()

type SettingsDao struct {
	store *AppStore
}

func NewSettingsDao(store ...*AppStore) *SettingsDao {

	if len(store) == 0 {
		store = append(store, Store)
	}

	return &SettingsDao{store: store[0]}
}

func (d *SettingsDao) Get(ctx context.Context) (*entity.Settings, error) {

	doc, err := d.store.Read(ctx)
	if err != nil {
		return nil, err
	}

	if doc.Settings == nil {
		return &entity.Settings{}, nil
	}

	return doc.Settings, nil
}

func (d *SettingsDao) ListImages(ctx context.Context) ([]*entity.ImageAsset, error) {

	doc, err := d.store.Read(ctx)
	if err != nil {
		return nil, err
	}

	return doc.Images, nil
}
