package prism

import "context"

// Approver handles user interaction for approval workflows, particularly
// for destructive operations like truncating a table.
//
// Implementations:
//   - ForcedApprover: Logs a notice and automatically approves
//   - InteractiveApprover: Prompts user to type the table identifier
type Approver interface {
	// RequestApproval prompts for confirmation before a destructive
	// operation against the named resource.
	//
	// Returns:
	//   - bool: true if approved, false if denied
	//   - error: Any error that occurred during the approval process
	RequestApproval(ctx context.Context, resource string) (bool, error)
}
