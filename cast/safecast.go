// Package cast 集中处理有符号与无符号整数之间的位宽转换，保持位模式不变.
package cast

import "time"

// Int64ToUint64 按位重解释 int64.
func Int64ToUint64(i int64) uint64 { return uint64(i) } //nolint:gosec // 位模式保持不变

// IntToUint64 按位重解释 int.
func IntToUint64(i int) uint64 { return uint64(i) } //nolint:gosec // 位模式保持不变

// Uint64ToInt64 按位重解释 uint64.
func Uint64ToInt64(u uint64) int64 { return int64(u) } //nolint:gosec // 位模式保持不变

// Uint16ToInt64 无损扩展.
func Uint16ToInt64(u uint16) int64 { return int64(u) }

// DurationToInt64 返回纳秒数.
func DurationToInt64(d time.Duration) int64 { return int64(d) }

// Int64ToUint16 截断到低 16 位，调用方需保证范围.
func Int64ToUint16(i int64) uint16 { return uint16(i & 0xFFFF) } //nolint:gosec // 已掩码
