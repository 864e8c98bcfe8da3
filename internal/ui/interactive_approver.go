// Package ui provides the console approvers guarding destructive
// operations.
package ui

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/prismtools/prism/pkg/prism"
)

// InteractiveApprover implements the Approver interface for console-based
// interactive confirmation. It prompts the user to type the table
// identifier to confirm destructive operations.
type InteractiveApprover struct {
	verbose bool
}

// NewInteractiveApprover creates a new InteractiveApprover.
func NewInteractiveApprover(verbose bool) prism.Approver {
	return &InteractiveApprover{verbose: verbose}
}

// RequestApproval prompts the user to type the table identifier to confirm.
func (a *InteractiveApprover) RequestApproval(ctx context.Context, table string) (bool, error) {
	fmt.Fprintf(os.Stderr, "\n⚠️  WARNING: You are about to TRUNCATE the table '%s'\n", table)
	fmt.Fprintln(os.Stderr, "This will permanently delete all rows in this table!")
	fmt.Fprintf(os.Stderr, "\nTo confirm, type the table identifier '%s' and press Enter: ", table)

	// Read user input with context cancellation support
	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		reader := bufio.NewReader(os.Stdin)
		input, err := reader.ReadString('\n')
		if err != nil {
			errChan <- err
			return
		}
		inputChan <- strings.TrimSpace(input)
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errChan:
		return false, fmt.Errorf("failed to read input: %w", err)
	case input := <-inputChan:
		if input == table {
			fmt.Fprintln(os.Stderr, "✓ Confirmed. Proceeding with truncate...")
			return true, nil
		}
		fmt.Fprintf(os.Stderr, "✗ Input '%s' does not match table identifier '%s'. Operation cancelled.\n", input, table)
		return false, nil
	}
}

// Verify InteractiveApprover implements the Approver interface at compile time
var _ prism.Approver = (*InteractiveApprover)(nil)
