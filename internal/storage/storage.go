package storage

import (
	"context"

	"github.com/aigcbox/genbatch/internal/config"
	"github.com/aigcbox/genbatch/internal/errors"
	"github.com/aigcbox/genbatch/utility/util"
	"github.com/gogf/gf/v2/os/gfile"
)

// 落盘结果
type SaveResult struct {
	LocalPath string
	Filename  string
}

type Storage interface {
	Download(ctx context.Context, url string) ([]byte, error)
	Save(ctx context.Context, bytes []byte, filename string) (*SaveResult, error)
}

var Default Storage = &localStorage{}

type localStorage struct{}

func (s *localStorage) Download(ctx context.Context, url string) ([]byte, error) {

	bytes := util.HttpDownloadFile(ctx, url)
	if len(bytes) == 0 {
		return nil, errors.ERR_DOWNLOAD_FAILED
	}

	return bytes, nil
}

func (s *localStorage) Save(ctx context.Context, bytes []byte, filename string) (*SaveResult, error) {

	path := gfile.Join(config.Cfg.Storage.OutputDir, filename)

	if err := gfile.PutBytes(path, bytes); err != nil {
		return nil, err
	}

	return &SaveResult{
		LocalPath: path,
		Filename:  filename,
	}, nil
}
