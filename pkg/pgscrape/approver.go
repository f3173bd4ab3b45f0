package pgscrape

import "context"

// Approver confirms destructive operations such as dropping the scrape database.
//
// Implementations:
//   - ForcedApprover: Shows countdown and automatically approves
//   - InteractiveApprover: Prompts user to type database name for confirmation
type Approver interface {
	RequestApproval(ctx context.Context, dbName string) (bool, error)
}
