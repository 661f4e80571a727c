package errors

import "errors"

// SkipMessageError 表示消息应直接跳过且不重试（如重复消费、目标记录已不存在）
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return "skip message: " + e.Reason
}

// IsSkipMessageError 判断错误链上是否为跳过消息错误
func IsSkipMessageError(err error) bool {
	var skip *SkipMessageError
	return errors.As(err, &skip)
}
