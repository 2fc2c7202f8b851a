// Package errors 跨 repository / service / handler 共享的错误
// 各业务模块自己的错误仍定义在 service 包内
package errors

import "errors"

var (
	// ErrOptimisticLock version 不匹配，记录已被其他请求修改
	ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

	// ErrBlankInput 必填文本去除首尾空白后为空（通过了 binding 的 min 校验）
	ErrBlankInput = errors.New("必填内容不能为空白")
)

// IsConflict 是否为可由客户端刷新后重试的并发冲突
func IsConflict(err error) bool {
	return errors.Is(err, ErrOptimisticLock)
}
