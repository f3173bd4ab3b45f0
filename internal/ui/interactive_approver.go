package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vvka-141/pgscrape/internal/tui"
	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

// InteractiveApprover asks the user to type the database name before a
// destructive operation.
type InteractiveApprover struct {
	verbose bool
	input   io.Reader
	output  io.Writer
}

func NewInteractiveApprover(verbose bool) pgscrape.Approver {
	return &InteractiveApprover{verbose: verbose, input: os.Stdin, output: os.Stderr}
}

func (a *InteractiveApprover) RequestApproval(ctx context.Context, dbName string) (bool, error) {
	fmt.Fprintf(a.output, "\n%s\n", tui.WarningStyle.Render(fmt.Sprintf("WARNING: You are about to DROP the database '%s'", dbName)))
	fmt.Fprintln(a.output, "This will permanently delete all scraped data in this database!")
	fmt.Fprintf(a.output, "\nTo confirm, type the database name '%s' and press Enter: ", dbName)

	// The read cannot be interrupted, so it runs in its own goroutine.
	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)
	go func() {
		reader := bufio.NewReader(a.input)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			errChan <- err
			return
		}
		inputChan <- strings.TrimSpace(line)
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errChan:
		return false, fmt.Errorf("failed to read input: %w", err)
	case input := <-inputChan:
		if input == dbName {
			fmt.Fprintf(a.output, "%s Confirmed. Proceeding with database reset...\n", tui.SymbolCheck)
			return true, nil
		}
		fmt.Fprintf(a.output, "%s Input '%s' does not match database name '%s'. Operation cancelled.\n", tui.SymbolCross, input, dbName)
		return false, nil
	}
}

var _ pgscrape.Approver = (*InteractiveApprover)(nil)
