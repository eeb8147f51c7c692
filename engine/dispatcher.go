package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// Dispatcher races engines with staged escalation: engine i starts after
// its delay unless an earlier engine already produced a usable response.
// A response flagged NeedsRendering does not end the race. A Dispatcher is
// itself an Engine.
type Dispatcher struct {
	engines []Engine
	delays  []time.Duration
	memory  *DomainMemory
}

// NewDispatcher creates a Dispatcher. engines[i] starts delays[i] after the
// race begins; missing delays are 0. memory may be nil.
func NewDispatcher(engines []Engine, delays []time.Duration, memory *DomainMemory) *Dispatcher {
	d := make([]time.Duration, len(engines))
	copy(d, delays)
	return &Dispatcher{engines: engines, delays: d, memory: memory}
}

func (d *Dispatcher) Name() string { return "dispatcher" }

// Fetch returns the first response that does not need rendering. When only
// unrendered shells came back the first of them is returned. When every
// engine failed the joined errors are returned.
func (d *Dispatcher) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	host := hostOf(req.URL)
	if res, ok := d.remembered(ctx, req, host); ok {
		return res, nil
	}
	return d.race(ctx, req, host)
}

// remembered tries the engine that last won for host. A failure forgets it.
func (d *Dispatcher) remembered(ctx context.Context, req *FetchRequest, host string) (*FetchResult, bool) {
	if d.memory == nil {
		return nil, false
	}
	name := d.memory.Get(host)
	if name == "" {
		return nil, false
	}
	eng := d.byName(name)
	if eng == nil {
		d.memory.Delete(host)
		return nil, false
	}

	log := req.logger()
	log.Debug("domain memory hit", "host", host, "engine", name)
	res, err := eng.Fetch(ctx, req)
	if err == nil && !res.NeedsRendering {
		return res, true
	}
	log.Info("remembered engine did not deliver, racing all engines", "host", host, "engine", name, "error", err)
	d.memory.Delete(host)
	return nil, false
}

func (d *Dispatcher) byName(name string) Engine {
	for _, e := range d.engines {
		if e.Name() == name {
			return e
		}
	}
	return nil
}

type attempt struct {
	engine string
	res    *FetchResult
	err    error
}

func (d *Dispatcher) race(ctx context.Context, req *FetchRequest, host string) (*FetchResult, error) {
	if len(d.engines) == 0 {
		return nil, errors.New("dispatcher: no engines configured")
	}
	log := req.logger()

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	attempts := make(chan attempt, len(d.engines))
	var wg sync.WaitGroup
	for i, eng := range d.engines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !waitTurn(raceCtx, d.delays[i]) {
				return
			}
			log.Debug("engine starting", "engine", eng.Name())
			res, err := eng.Fetch(raceCtx, req)
			attempts <- attempt{engine: eng.Name(), res: res, err: err}
		}()
	}
	go func() {
		wg.Wait()
		close(attempts)
	}()

	var (
		errs     []error
		fallback *FetchResult
	)
	for a := range attempts {
		switch {
		case a.err != nil:
			log.Debug("engine failed", "engine", a.engine, "error", a.err)
			errs = append(errs, a.err)
		case a.res == nil:
			errs = append(errs, fmt.Errorf("%s: no result", a.engine))
		case a.res.NeedsRendering:
			log.Debug("response needs rendering, escalating", "engine", a.engine)
			if fallback == nil {
				fallback = a.res
			}
		default:
			cancel()
			log.Info("engine won race", "engine", a.engine, "status", a.res.StatusCode)
			if d.memory != nil {
				d.memory.Set(host, a.res.EngineName)
			}
			return a.res, nil
		}
	}

	if fallback != nil {
		log.Info("no engine rendered the page, using unrendered response", "engine", fallback.EngineName)
		return fallback, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		errs = append(errs, ctxErr)
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("dispatcher: no engine ran for %s", req.URL)
	}
	return nil, fmt.Errorf("dispatcher: all engines failed for %s: %w", req.URL, errors.Join(errs...))
}

// waitTurn blocks for delay and reports whether the race is still open.
func waitTurn(ctx context.Context, delay time.Duration) bool {
	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
		}
	}
	return ctx.Err() == nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
