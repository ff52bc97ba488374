package provider

import (
	"context"

	"github.com/aigcbox/genbatch/internal/consts"
	"github.com/aigcbox/genbatch/internal/errors"
	"github.com/aigcbox/genbatch/utility/util"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/text/gregex"
	"github.com/gogf/gf/v2/text/gstr"
)

const openaiImageDefaultBaseUrl = "https://api.openai.com"

// 聊天式多模态生图接口, 同步返回, 供生图编排器使用
type OpenAIImage struct {
	baseUrl string
	model   string
}

func NewOpenAIImage(baseUrl string) *OpenAIImage {

	if baseUrl == "" {
		baseUrl = openaiImageDefaultBaseUrl
	}

	return &OpenAIImage{
		baseUrl: baseUrl,
		model:   "gpt-4o-image",
	}
}

type chatContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageUrl *struct {
		Url string `json:"url"`
	} `json:"image_url,omitempty"`
}

type chatCompletionRes struct {
	Id      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// 生成请求
type GenerateRequest struct {
	Prompt    string
	RefImages []string // URL 或 data URI
}

// 生成结果, 二选一: 图片地址或 base64 数据
type GenerateResult struct {
	Url    string
	Base64 string
}

// 探测密钥可达性, 提交批次前的预检
func (p *OpenAIImage) Preflight(ctx context.Context, apiKey string) error {

	statusCode, err := util.HttpGetStatus(ctx, p.baseUrl+"/v1/models", p.header(apiKey), nil, nil)
	if err != nil {
		return err
	}

	if statusCode != 200 {
		return errors.NewErrorf(statusCode, consts.ERR_CODE_SUBMIT_FAILED, "genbatch_error", "preflight http %d", statusCode)
	}

	return nil
}

func (p *OpenAIImage) Generate(ctx context.Context, request *GenerateRequest, apiKey string) (*GenerateResult, error) {

	if gstr.Trim(request.Prompt) == "" {
		return nil, errors.NewErrorf(400, consts.ERR_CODE_INVALID_PARAMETER, "genbatch_request_error", "image: prompt is required")
	}

	content := []chatContentPart{{
		Type: "text",
		Text: request.Prompt,
	}}

	for _, ref := range request.RefImages {

		if !isWellFormedRef(ref) {
			return nil, errors.NewErrorf(400, consts.ERR_CODE_INVALID_PARAMETER, "genbatch_request_error", "image: malformed reference image: %s", ref)
		}

		part := chatContentPart{Type: "image_url"}
		part.ImageUrl = &struct {
			Url string `json:"url"`
		}{Url: ref}

		content = append(content, part)
	}

	data := g.Map{
		"model": p.model,
		"messages": []g.Map{{
			"role":    "user",
			"content": content,
		}},
	}

	res := new(chatCompletionRes)

	statusCode, err := util.HttpPostJsonStatus(ctx, p.baseUrl+"/v1/chat/completions", p.header(apiKey), data, res)
	if err != nil {
		return nil, err
	}

	if res.Error != nil {
		return nil, errors.NewErrorf(statusCode, res.Error.Code, "genbatch_error", "image: %s", res.Error.Message)
	}

	if statusCode != 200 {
		return nil, errors.NewErrorf(statusCode, consts.ERR_CODE_SUBMIT_FAILED, "genbatch_error", "image: http %d", statusCode)
	}

	if len(res.Choices) == 0 {
		return nil, errors.ERR_NO_IMAGE_IN_RESULT
	}

	return extractImage(res.Choices[0].Message.Content)
}

// 按优先级从响应文本中提取图片: data URI base64 > markdown 图片 > 裸 URL
func extractImage(content string) (*GenerateResult, error) {

	if match, _ := gregex.MatchString(`data:image/[a-zA-Z]+;base64,([A-Za-z0-9+/=]+)`, content); len(match) > 1 {
		return &GenerateResult{Base64: match[1]}, nil
	}

	if match, _ := gregex.MatchString(`!\[[^\]]*\]\((https?://[^\s)]+)\)`, content); len(match) > 1 {
		return &GenerateResult{Url: match[1]}, nil
	}

	if match, _ := gregex.MatchString(`(https?://[^\s"'<>)]+\.(?:png|jpg|jpeg|webp|gif))`, content); len(match) > 1 {
		return &GenerateResult{Url: match[1]}, nil
	}

	return nil, errors.ERR_NO_IMAGE_IN_RESULT
}

func (p *OpenAIImage) header(apiKey string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + apiKey,
	}
}
