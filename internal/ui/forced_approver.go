package ui

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prismtools/prism/pkg/prism"
)

// ForceApprovalCountdown is how long the forced approver waits before
// proceeding, giving the operator a last chance to abort.
const ForceApprovalCountdown = 5 * time.Second

// ForcedApprover implements the Approver interface for forced
// (non-interactive) approval. It displays a countdown and automatically
// approves after it, used when the --force flag is provided.
type ForcedApprover struct {
	verbose bool
}

// NewForcedApprover creates a new ForcedApprover.
func NewForcedApprover(verbose bool) prism.Approver {
	return &ForcedApprover{verbose: verbose}
}

// RequestApproval displays a countdown and automatically approves after it.
func (a *ForcedApprover) RequestApproval(ctx context.Context, table string) (bool, error) {
	fmt.Fprintf(os.Stderr, "\n⚠️  WARNING: About to TRUNCATE table '%s' without confirmation (--force)\n", table)

	countdownSeconds := int(ForceApprovalCountdown.Seconds())
	for i := countdownSeconds; i > 0; i-- {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
			fmt.Fprintf(os.Stderr, "\rTruncating in: %d seconds... (Press Ctrl+C to cancel)", i)
			time.Sleep(1 * time.Second)
		}
	}

	fmt.Fprintf(os.Stderr, "\r✓ Proceeding with truncate...                              \n")
	return true, nil
}

// Verify ForcedApprover implements the Approver interface at compile time
var _ prism.Approver = (*ForcedApprover)(nil)
