package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"
)

// Dispatcher coordinates the fetch engines with staged escalation.
// It starts the cheapest engine first and escalates to heavier engines when
// an earlier one fails or its escalation delay passes.
type Dispatcher struct {
	engines          []Engine
	escalationDelays []time.Duration
	memory           *DomainMemory
	logger           *slog.Logger
}

// NewDispatcher creates a Dispatcher with the given engines and escalation delays.
// engines[i] starts after escalationDelays[i] from the race beginning, or as
// soon as engines[i-1] fails. The first delay should be 0 (immediate start).
func NewDispatcher(engines []Engine, escalationDelays []time.Duration, memory *DomainMemory, logger *slog.Logger) *Dispatcher {
	// Ensure we have at least as many delays as engines.
	delays := make([]time.Duration, len(engines))
	copy(delays, escalationDelays)
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		engines:          engines,
		escalationDelays: delays,
		memory:           memory,
		logger:           logger,
	}
}

// Engines returns the engine names in escalation order.
func (d *Dispatcher) Engines() []string {
	names := make([]string, len(d.engines))
	for i, e := range d.engines {
		names[i] = e.Name()
	}
	return names
}

// Dispatch runs the staged race for the given request and returns the
// first successful result. If all engines fail, it returns the last error.
func (d *Dispatcher) Dispatch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	engines, delays := d.engines, d.escalationDelays
	if req.Only != "" {
		engines, delays = nil, nil
		for _, eng := range d.engines {
			if eng.Name() == req.Only {
				engines, delays = []Engine{eng}, []time.Duration{0}
				break
			}
		}
		if engines == nil {
			return nil, fmt.Errorf("dispatcher: unknown engine %q", req.Only)
		}
	}

	domain := extractDomain(req.URL)

	// Check domain memory for a previously successful engine.
	if remembered := d.memory.Get(domain); remembered != "" && len(engines) > 1 {
		for _, eng := range engines {
			if eng.Name() == remembered {
				d.logger.Debug("domain memory hit", "domain", domain, "engine", remembered)
				result, err := eng.Fetch(ctx, req)
				if err == nil {
					return result, nil
				}
				// Memory entry failed; delete it and fall through to full race.
				d.logger.Info("domain memory miss (engine failed), running full race",
					"domain", domain, "engine", remembered, "error", err)
				d.memory.Delete(domain)
				break
			}
		}
	}

	return d.race(ctx, req, domain, engines, delays)
}

// race runs engines with staged delays and returns the first success.
func (d *Dispatcher) race(ctx context.Context, req *FetchRequest, domain string, engines []Engine, delays []time.Duration) (*FetchResult, error) {
	type raceResult struct {
		result *FetchResult
		err    error
	}

	raceCtx, raceCancel := context.WithCancel(ctx)
	defer raceCancel()

	// gates[i] is closed when engines[i-1] has failed, letting engines[i]
	// skip the rest of its delay.
	gates := make([]chan struct{}, len(engines)+1)
	gateOnce := make([]sync.Once, len(engines)+1)
	for i := range gates {
		gates[i] = make(chan struct{})
	}
	openGate := func(i int) { gateOnce[i].Do(func() { close(gates[i]) }) }

	results := make(chan raceResult, len(engines))
	var wg sync.WaitGroup

	for i, eng := range engines {
		wg.Add(1)
		go func(i int, e Engine, delay time.Duration) {
			defer wg.Done()

			// Wait for the escalation delay, an earlier failure, or cancellation.
			if delay > 0 {
				timer := time.NewTimer(delay)
				defer timer.Stop()
				select {
				case <-raceCtx.Done():
					return
				case <-timer.C:
				case <-gates[i]:
				}
			}

			// Check if another engine already won.
			select {
			case <-raceCtx.Done():
				return
			default:
			}

			d.logger.Debug("engine starting", "engine", e.Name(), "url", req.URL)
			result, err := e.Fetch(raceCtx, req)
			results <- raceResult{result: result, err: err}
			if err != nil {
				d.logger.Debug("engine failed", "engine", e.Name(), "url", req.URL, "error", err)
				openGate(i + 1)
			}
		}(i, eng, delays[i])
	}

	// Close results channel when all goroutines finish.
	go func() {
		wg.Wait()
		close(results)
	}()

	var lastErr error
	for rr := range results {
		if rr.err != nil {
			lastErr = rr.err
			continue
		}
		// First success wins; cancel the other engines.
		raceCancel()
		d.logger.Info("engine won race", "engine", rr.result.EngineName, "url", req.URL)
		d.memory.Set(domain, rr.result.EngineName)
		return rr.result, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("dispatcher: all engines failed for %s", req.URL)
	}
	return nil, lastErr
}

// extractDomain parses the hostname from a URL string.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
