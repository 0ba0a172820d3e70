// Package notify posts one-way batch updates to chat channels. Delivery is
// best-effort: a failed notification never fails the batch that sent it.
package notify

import (
	"errors"
	"fmt"
	"time"

	"github.com/lukejeff/swapbench/internal/batch"
)

// Notifier delivers a plain-text message to a channel.
type Notifier interface {
	Notify(text string) error
}

// Multi fans a message out to every notifier and joins the failures.
type Multi []Notifier

func (m Multi) Notify(text string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BatchDone renders the completion message for a finished batch.
func BatchDone(variants string, sum *batch.Summary) string {
	return fmt.Sprintf(
		"Face swap batch finished (%s): %d/%d succeeded (%.0f%%), %d failed, %d skipped, %d remaining, took %s",
		variants, sum.Succeeded, sum.Attempted, sum.SuccessRate()*100,
		sum.Failed, sum.Skipped, sum.Remaining, sum.Elapsed.Round(time.Second))
}
