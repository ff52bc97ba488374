package util

import (
	"context"
	"time"

	"github.com/aigcbox/genbatch/internal/config"
	"github.com/aigcbox/genbatch/utility/logger"
	"github.com/gogf/gf/v2/encoding/gjson"
	"github.com/gogf/gf/v2/frame/g"
)

func HttpGet(ctx context.Context, url string, header map[string]string, data g.Map, result interface{}, proxyURL ...string) error {

	logger.Debugf(ctx, "HttpGet url: %s, data: %+v", url, data)

	client := g.Client().Timeout(config.Cfg.Http.Timeout * time.Second)

	if header != nil {
		client.SetHeaderMap(header)
	}

	if len(proxyURL) > 0 {
		client.SetProxy(proxyURL[0])
	} else if config.Cfg.Http.ProxyOpen && config.Cfg.Http.ProxyUrl != "" {
		client.SetProxy(config.Cfg.Http.ProxyUrl)
	}

	response, err := client.Get(ctx, url, data)
	if err != nil {
		logger.Error(ctx, err)
		return err
	}

	defer func() {
		if err := response.Close(); err != nil {
			logger.Error(ctx, err)
		}
	}()

	bytes := response.ReadAll()
	logger.Debugf(ctx, "HttpGet url: %s, statusCode: %d, response: %s", url, response.StatusCode, string(bytes))

	if len(bytes) > 0 && result != nil {
		if err = gjson.Unmarshal(bytes, result); err != nil {
			logger.Error(ctx, err)
			return err
		}
	}

	return nil
}

func HttpPostJson(ctx context.Context, url string, header map[string]string, data, result interface{}, proxyURL ...string) error {

	logger.Debugf(ctx, "HttpPostJson url: %s", url)

	client := g.Client().Timeout(config.Cfg.Http.Timeout * time.Second)

	if header != nil {
		client.SetHeaderMap(header)
	}

	if len(proxyURL) > 0 {
		client.SetProxy(proxyURL[0])
	} else if config.Cfg.Http.ProxyOpen && config.Cfg.Http.ProxyUrl != "" {
		client.SetProxy(config.Cfg.Http.ProxyUrl)
	}

	response, err := client.ContentJson().Post(ctx, url, data)
	if err != nil {
		logger.Error(ctx, err)
		return err
	}

	defer func() {
		if err := response.Close(); err != nil {
			logger.Error(ctx, err)
		}
	}()

	bytes := response.ReadAll()
	logger.Debugf(ctx, "HttpPostJson url: %s, statusCode: %d, response: %s", url, response.StatusCode, string(bytes))

	if len(bytes) > 0 && result != nil {
		if err = gjson.Unmarshal(bytes, result); err != nil {
			logger.Error(ctx, err)
			return err
		}
	}

	return nil
}

// 带状态码返回, 供需要区分瞬时/致命错误的调用方使用
func HttpPostJsonStatus(ctx context.Context, url string, header map[string]string, data, result interface{}, proxyURL ...string) (int, error) {

	client := g.Client().Timeout(config.Cfg.Http.Timeout * time.Second)

	if header != nil {
		client.SetHeaderMap(header)
	}

	if len(proxyURL) > 0 {
		client.SetProxy(proxyURL[0])
	} else if config.Cfg.Http.ProxyOpen && config.Cfg.Http.ProxyUrl != "" {
		client.SetProxy(config.Cfg.Http.ProxyUrl)
	}

	response, err := client.ContentJson().Post(ctx, url, data)
	if err != nil {
		logger.Error(ctx, err)
		return 0, err
	}

	defer func() {
		if err := response.Close(); err != nil {
			logger.Error(ctx, err)
		}
	}()

	bytes := response.ReadAll()
	logger.Debugf(ctx, "HttpPostJsonStatus url: %s, statusCode: %d, response: %s", url, response.StatusCode, string(bytes))

	if len(bytes) > 0 && result != nil {
		if err = gjson.Unmarshal(bytes, result); err != nil {
			logger.Error(ctx, err)
			return response.StatusCode, err
		}
	}

	return response.StatusCode, nil
}

// 带状态码返回的 GET
func HttpGetStatus(ctx context.Context, url string, header map[string]string, data g.Map, result interface{}, proxyURL ...string) (int, error) {

	client := g.Client().Timeout(config.Cfg.Http.Timeout * time.Second)

	if header != nil {
		client.SetHeaderMap(header)
	}

	if len(proxyURL) > 0 {
		client.SetProxy(proxyURL[0])
	} else if config.Cfg.Http.ProxyOpen && config.Cfg.Http.ProxyUrl != "" {
		client.SetProxy(config.Cfg.Http.ProxyUrl)
	}

	response, err := client.Get(ctx, url, data)
	if err != nil {
		logger.Error(ctx, err)
		return 0, err
	}

	defer func() {
		if err := response.Close(); err != nil {
			logger.Error(ctx, err)
		}
	}()

	bytes := response.ReadAll()
	logger.Debugf(ctx, "HttpGetStatus url: %s, statusCode: %d, response: %s", url, response.StatusCode, string(bytes))

	if len(bytes) > 0 && result != nil {
		if err = gjson.Unmarshal(bytes, result); err != nil {
			logger.Error(ctx, err)
			return response.StatusCode, err
		}
	}

	return response.StatusCode, nil
}

func HttpDownloadFile(ctx context.Context, fileURL string, proxyURL ...string) []byte {

	logger.Debugf(ctx, "HttpDownloadFile fileURL: %s", fileURL)

	client := g.Client().Timeout(config.Cfg.Http.Timeout * time.Second)

	if len(proxyURL) > 0 {
		client.SetProxy(proxyURL[0])
	} else if config.Cfg.Http.ProxyOpen && config.Cfg.Http.ProxyUrl != "" {
		client.SetProxy(config.Cfg.Http.ProxyUrl)
	}

	return client.GetBytes(ctx, fileURL)
}
