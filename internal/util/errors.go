package util

import "errors"

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrContentNotFound    = errors.New("content not found")
	ErrModuleNotFound     = errors.New("module not found")
	ErrNotEnrolled        = errors.New("not enrolled in this module")
	ErrAlreadyEnrolled    = errors.New("already enrolled in this module")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrInvalidTransition  = errors.New("invalid progress transition")
)
