package database

import (
	"context"
	"testing"
)

func TestAfterCommitRunsImmediatelyOutsideTx(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func() { ran = true })
	if !ran {
		t.Fatalf("expected the hook to run right away without a transaction")
	}
}

func TestAfterCommitDefersInsideTx(t *testing.T) {
	hooks := &txHooks{}
	ctx := context.WithValue(context.Background(), hookKey{}, hooks)

	var order []string
	AfterCommit(ctx, func() { order = append(order, "first") })
	AfterCommit(ctx, func() { order = append(order, "second") })

	if len(order) != 0 {
		t.Fatalf("hooks must not run before commit, got %v", order)
	}

	// what RunInTx does after a successful commit
	for _, fn := range hooks.fns {
		fn()
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("expected hooks to run in registration order, got %v", order)
	}
}
