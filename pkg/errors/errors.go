package errors

import "errors"

// ErrCodeConflict 条件更新未命中：兑换码已被其他请求使用或分配
var ErrCodeConflict = errors.New("código ya no disponible")
