package server

import "context"

// Server 可被统一管理生命周期的服务.
type Server interface {
	// Start 阻塞直到 ctx 取消或出错.
	Start(ctx context.Context) error
	// Stop 优雅停止.
	Stop(ctx context.Context) error
}

var _ Server = (*GinServer)(nil)
