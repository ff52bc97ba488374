package dao

import (
	"context"

	"github.com/aigcbox/genbatch/internal/model/entity"
	"github.com/aigcbox/genbatch/utility/util"
	"github.com/gogf/gf/v2/os/gtime"
)

var TaskVideo = NewTaskVideoDao()

type TaskVideoDao struct {
	store *AppStore
}

func NewTaskVideoDao(store ...*AppStore) *TaskVideoDao {

	if len(store) == 0 {
		store = append(store, Store)
	}

	return &TaskVideoDao{store: store[0]}
}

func (d *TaskVideoDao) List(ctx context.Context) ([]*entity.VideoTask, error) {

	doc, err := d.store.Read(ctx)
	if err != nil {
		return nil, err
	}

	return doc.VideoTasks, nil
}

func (d *TaskVideoDao) FindByIds(ctx context.Context, ids []string) ([]*entity.VideoTask, error) {

	doc, err := d.store.Read(ctx)
	if err != nil {
		return nil, err
	}

	hash := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		hash[id] = struct{}{}
	}

	items := make([]*entity.VideoTask, 0, len(ids))
	for _, task := range doc.VideoTasks {
		if _, ok := hash[task.Id]; ok {
			items = append(items, task)
		}
	}

	return items, nil
}

// 按ID更新, 不存在则追加, 新记录缺省ID时分配
func (d *TaskVideoDao) Save(ctx context.Context, task *entity.VideoTask) error {

	_, err := d.store.Update(ctx, func(doc *entity.Document) error {

		task.UpdatedAt = gtime.TimestampMilli()

		if task.Id == "" {
			task.Id = util.GenerateId()
		}

		for i, t := range doc.VideoTasks {
			if t.Id == task.Id {
				doc.VideoTasks[i] = task
				return nil
			}
		}

		if task.CreatedAt == 0 {
			task.CreatedAt = gtime.TimestampMilli()
		}

		doc.VideoTasks = append(doc.VideoTasks, task)

		return nil
	})

	return err
}
