package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"乐观锁", ErrOptimisticLock, true},
		{"包装后的乐观锁", fmt.Errorf("更新公告: %w", ErrOptimisticLock), true},
		{"空白输入", ErrBlankInput, false},
		{"其他错误", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConflict(tt.err); got != tt.want {
				t.Errorf("IsConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}
