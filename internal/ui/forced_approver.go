package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vvka-141/pgscrape/internal/tui"
	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

// ForcedApprover approves after a visible countdown. Used with --force, where
// Ctrl+C during the countdown is the last chance to back out.
type ForcedApprover struct {
	verbose bool
	output  io.Writer
	sleepFn func(time.Duration)
}

func NewForcedApprover(verbose bool) pgscrape.Approver {
	return &ForcedApprover{verbose: verbose, output: os.Stderr, sleepFn: time.Sleep}
}

func (a *ForcedApprover) RequestApproval(ctx context.Context, dbName string) (bool, error) {
	fmt.Fprintln(a.output)
	fmt.Fprintln(a.output, tui.ErrorStyle.Render(fmt.Sprintf("DANGER: database '%s' will be dropped with every scraped row in it.", dbName)))
	fmt.Fprintln(a.output)

	countdownSeconds := int(pgscrape.DefaultForceApprovalCountdown.Seconds())
	for i := countdownSeconds; i > 0; i-- {
		if err := ctx.Err(); err != nil {
			fmt.Fprintln(a.output)
			return false, err
		}
		fmt.Fprintf(a.output, "\rDropping in: %d seconds... (Press Ctrl+C to cancel)", i)
		a.sleepFn(time.Second)
	}
	if err := ctx.Err(); err != nil {
		fmt.Fprintln(a.output)
		return false, err
	}

	fmt.Fprintf(a.output, "\r%s Proceeding with database reset...                              \n", tui.SymbolCheck)
	return true, nil
}

var _ pgscrape.Approver = (*ForcedApprover)(nil)
