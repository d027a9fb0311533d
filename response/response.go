// Package response 统一 HTTP JSON 响应格式，并把 xerrors 映射为状态码.
package response

import (
	"net/http"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"github.com/gin-gonic/gin"
)

// HTTPStatusProvider 能给出 HTTP 状态码的错误.
type HTTPStatusProvider interface {
	HTTPStatus() int
}

// Body 统一响应体.
type Body struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// Success HTTP 200，业务码 0.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Code: 0, Msg: "success", Data: data})
}

// SuccessWithStatus 指定 HTTP 状态码的成功响应.
func SuccessWithStatus(c *gin.Context, status int, data any) {
	c.JSON(status, Body{Code: 0, Msg: "success", Data: data})
}

// SuccessWithRawData 不包装 code 与 msg，用于健康检查等系统接口.
func SuccessWithRawData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Error 识别 *xerrors.Error 并映射状态码与业务码，无法识别时返回 500.
func Error(c *gin.Context, err error) {
	if err == nil {
		Success(c, nil)
		return
	}

	if xe, ok := xerrors.FromError(err); ok {
		c.JSON(xe.HTTPStatus(), Body{Code: xe.Code, Msg: xe.Message, Detail: xe.Detail})
		return
	}

	status := http.StatusInternalServerError
	if p, ok := err.(HTTPStatusProvider); ok {
		status = p.HTTPStatus()
	}
	c.JSON(status, Body{Code: status, Msg: http.StatusText(status), Detail: err.Error()})
}

// ErrorWithStatus 指定状态码、消息与详情的错误响应.
func ErrorWithStatus(c *gin.Context, status int, msg string, detail string) {
	c.JSON(status, Body{Code: status, Msg: msg, Detail: detail})
}
