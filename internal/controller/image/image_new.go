// =================================================================================
// This is auto-generated by GoFrame CLI tool only once. Fill this file as you wish.
// =================================================================================

package image

import (
	"github.com/aigcbox/genbatch/api/image"
)

type ControllerV1 struct{}

func NewV1() image.IImageV1 {
	return &ControllerV1{}
}
