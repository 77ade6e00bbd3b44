package inventory

import (
	"errors"
	"fmt"
)

// Reason 远程操作失败的原因码，给调用方（HTTP 层、测试）做结构化展示，
// 替代原型里 alert/console 式的副作用上报。
type Reason string

const (
	ReasonValidation       Reason = "validation"        // 本地校验失败，未发起远程调用
	ReasonNotFound         Reason = "not_found"         // 目标记录不存在
	ReasonStoreUnavailable Reason = "store_unavailable" // 后端表存储调用失败
	ReasonObjectStorage    Reason = "object_storage"    // 对象存储调用失败
)

// OpError 带操作名和原因码的结构化错误。
type OpError struct {
	Op     string // 操作名，如 add_vehicle / upload_vehicle_image
	Reason Reason
	Err    error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func opErr(op string, reason Reason, err error) *OpError {
	return &OpError{Op: op, Reason: reason, Err: err}
}

// ReasonOf 取出错误里的原因码；非 OpError 返回 store_unavailable。
func ReasonOf(err error) Reason {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Reason
	}
	return ReasonStoreUnavailable
}
