package dao

import (
	"context"
	"sync"

	"github.com/aigcbox/genbatch/internal/config"
	"github.com/aigcbox/genbatch/internal/model/entity"
	"github.com/aigcbox/genbatch/utility/logger"
	"github.com/gogf/gf/v2/encoding/gjson"
	"github.com/gogf/gf/v2/os/gfile"
)

var Store = NewStore()

// 应用状态文档存储, 整体读改写
// 所有写入串行化, 读改写周期内持锁, 写入方不会基于过期读提交
type AppStore struct {
	mu   sync.Mutex
	path string
}

func NewStore(path ...string) *AppStore {

	s := &AppStore{}

	if len(path) > 0 {
		s.path = path[0]
	}

	return s
}

func (s *AppStore) Path() string {

	if s.path != "" {
		return s.path
	}

	return config.Cfg.Store.Path
}

func (s *AppStore) Read(ctx context.Context) (*entity.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readLocked(ctx)
}

func (s *AppStore) Write(ctx context.Context, doc *entity.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeLocked(ctx, doc)
}

// 原子读改写
func (s *AppStore) Update(ctx context.Context, fn func(doc *entity.Document) error) (*entity.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked(ctx)
	if err != nil {
		logger.Error(ctx, err)
		return nil, err
	}

	if err = fn(doc); err != nil {
		return nil, err
	}

	if err = s.writeLocked(ctx, doc); err != nil {
		logger.Error(ctx, err)
		return nil, err
	}

	return doc, nil
}

func (s *AppStore) readLocked(ctx context.Context) (*entity.Document, error) {

	path := s.Path()

	if !gfile.Exists(path) {
		return &entity.Document{}, nil
	}

	doc := &entity.Document{}
	if err := gjson.Unmarshal(gfile.GetBytes(path), doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// 先写临时文件再重命名, 崩溃时不产生半截文档
func (s *AppStore) writeLocked(ctx context.Context, doc *entity.Document) error {

	bytes, err := gjson.Encode(doc)
	if err != nil {
		return err
	}

	path := s.Path()
	tmp := path + ".tmp"

	if err = gfile.PutBytes(tmp, bytes); err != nil {
		return err
	}

	return gfile.Rename(tmp, path)
}
