package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// NewDefaultGinEngine 创建不带默认中间件的引擎，中间件顺序由调用方决定.
func NewDefaultGinEngine(middlewares ...gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.Use(middlewares...)
	return engine
}

func itoa(port int) string {
	return strconv.Itoa(port)
}
