package evalsrvc

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
)

// pollPhase makes the polling lifecycle explicit: the only suspension
// point is the wait for the next poll, and cancellation is checked
// there.
type pollPhase int

const (
	phaseDispatched pollPhase = iota
	phasePolling
	phaseTerminal
)

var errPollTimeout = fmt.Errorf("polling budget exhausted before all programs finished")

type poller struct {
	client ExecClient
	clock  clockwork.Clock

	initialDelay time.Duration
	multiplier   float64
	maxDelay     time.Duration
	maxRounds    int
}

// run polls the batch until every token is terminal. Delays grow
// exponentially from initialDelay by multiplier, capped at maxDelay;
// after maxRounds incomplete fetches it gives up with errPollTimeout.
func (p *poller) run(ctx context.Context, tokens []string) ([]ExecResult, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.initialDelay
	bo.Multiplier = p.multiplier
	bo.MaxInterval = p.maxDelay
	bo.RandomizationFactor = 0 // deterministic, tests depend on it
	bo.MaxElapsedTime = 0
	bo.Reset()

	phase := phaseDispatched
	var results []ExecResult

	for attempt := 0; attempt < p.maxRounds; attempt++ {
		delay := bo.NextBackOff()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.clock.After(delay):
		}
		phase = phasePolling

		fetched, err := p.client.FetchBatch(ctx, tokens)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch batch results: %w", err)
		}

		// a round only completes when every token is terminal
		if allTerminal(fetched) {
			phase = phaseTerminal
			results = fetched
			break
		}
	}

	if phase != phaseTerminal {
		return nil, errPollTimeout
	}
	return results, nil
}

func allTerminal(results []ExecResult) bool {
	for _, r := range results {
		if !r.Status.Terminal() {
			return false
		}
	}
	return true
}
