package dao

import (
	"context"

	"github.com/aigcbox/genbatch/internal/errors"
	"github.com/aigcbox/genbatch/internal/model/entity"
)

var Prompt = NewPromptDao()

type PromptDao struct {
	store *AppStore
}

func NewPromptDao(store ...*AppStore) *PromptDao {

	if len(store) == 0 {
		store = append(store, Store)
	}

	return &PromptDao{store: store[0]}
}

func (d *PromptDao) List(ctx context.Context) ([]*entity.Prompt, error) {

	doc, err := d.store.Read(ctx)
	if err != nil {
		return nil, err
	}

	return doc.Prompts, nil
}

func (d *PromptDao) FindByIds(ctx context.Context, ids []string) ([]*entity.Prompt, error) {

	doc, err := d.store.Read(ctx)
	if err != nil {
		return nil, err
	}

	hash := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		hash[id] = struct{}{}
	}

	items := make([]*entity.Prompt, 0, len(ids))
	for _, prompt := range doc.Prompts {
		if _, ok := hash[prompt.Id]; ok {
			items = append(items, prompt)
		}
	}

	return items, nil
}

func (d *PromptDao) UpdateById(ctx context.Context, id string, fn func(prompt *entity.Prompt)) error {

	_, err := d.store.Update(ctx, func(doc *entity.Document) error {

		for _, prompt := range doc.Prompts {
			if prompt.Id == id {
				fn(prompt)
				return nil
			}
		}

		return errors.ERR_NOT_FOUND
	})

	return err
}
