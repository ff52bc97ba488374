package crypto

import (
	"encoding/hex"

	"github.com/tjfoc/gmsm/sm3"
)

func SM3(data string) string {
	h := sm3.New()
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// 任务指纹, 相同的提示词和参考图生成相同的指纹, 用于文件名去重
func Fingerprint(prompt, imageUrl string) string {
	return SM3(prompt + "\n" + imageUrl)
}
