package util

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/bwmarrin/snowflake"
)

var node *snowflake.Node

func init() {

	var err error
	node, err = snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}

}

func GenerateId() string {
	return node.Generate().String()
}

// 生成随机字符串
func Random(length int) string {
	var result []byte
	bytes := []byte("0123456789abcdefghijklmnopqrstuvwxyz")

	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 0; i < length; i++ {
		result = append(result, bytes[r.Intn(len(bytes))])
	}

	return string(result)
}

// 按指纹生成稳定文件名, 相同任务重复执行不产生重复文件
func GenAssetName(fingerprint, ext string) string {
	return fmt.Sprintf("%s.%s", fingerprint, ext)
}

func GenFileName(ext string) string {
	return fmt.Sprintf("%d_%s.%s", time.Now().Unix(), Random(10), ext)
}
