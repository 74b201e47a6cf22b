package trace

import (
	"context"
	"testing"

	"github.com/nalgeon/be"
)

func TestEnsure(t *testing.T) {
	ctx := Ensure(context.Background())
	id := FromContext(ctx)
	be.Equal(t, len(id), 32)

	// 已有 trace_id 时保持不变
	be.Equal(t, FromContext(Ensure(ctx)), id)
	be.Equal(t, FromContext(Ensure(WithContext(context.Background(), "abc"))), "abc")
}

func TestFromContextEmpty(t *testing.T) {
	be.Equal(t, FromContext(context.Background()), "")
}
