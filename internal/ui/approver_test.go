package ui

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestForcedApproverHonorsCancellation(t *testing.T) {
	approver := NewForcedApprover(false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	approved, err := approver.RequestApproval(ctx, "sales")

	assert.False(t, approved)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), ForceApprovalCountdown,
		"cancellation must short-circuit the countdown")
}
