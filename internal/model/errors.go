package model

import (
	"errors"
	"fmt"
)

// 错误分类
var (
	ErrInvalidRule     = errors.New("invalid parsing rule")
	ErrRuleNotFound    = errors.New("parsing rule not found")
	ErrDecode          = errors.New("spreadsheet decode failed")
	ErrPersistence     = errors.New("settlement persistence failed")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrBadRequest      = errors.New("bad request")
	ErrUnavailable     = errors.New("collaborator unavailable")
)

// InvalidRuleError 规则配置错误，Path 指向出错位置（如 sheets[1].startRow）
type InvalidRuleError struct {
	Path   string
	Reason string
}

func (e *InvalidRuleError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid parsing rule: %s", e.Reason)
	}
	return fmt.Sprintf("invalid parsing rule: %s: %s", e.Path, e.Reason)
}

func (e *InvalidRuleError) Unwrap() error {
	return ErrInvalidRule
}

// IngestError 导入过程中的硬错误，Kind 为上面的分类之一
type IngestError struct {
	Stage string
	Kind  error
	Err   error
}

func (e *IngestError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *IngestError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewIngestError 创建导入错误
func NewIngestError(stage string, kind, err error) *IngestError {
	return &IngestError{
		Stage: stage,
		Kind:  kind,
		Err:   err,
	}
}
