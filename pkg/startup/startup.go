// Package startup brings service dependencies up in dependency order,
// retrying the whole graph with a Fibonacci backoff.
package startup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"
)

type Dependency interface {
	GetName() string
	DependsOn() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Status int

const (
	StatusPending Status = iota
	StatusStarted
	StatusStopped
	StatusFailed
)

// Func adapts plain functions to a Dependency.
type Func struct {
	Name     string
	Requires []string
	StartFn  func(ctx context.Context) error
	StopFn   func(ctx context.Context) error
}

func (f Func) GetName() string { return f.Name }

func (f Func) DependsOn() []string { return f.Requires }

func (f Func) Start(ctx context.Context) error {
	if f.StartFn == nil {
		return nil
	}
	return f.StartFn(ctx)
}

func (f Func) Stop(ctx context.Context) error {
	if f.StopFn == nil {
		return nil
	}
	return f.StopFn(ctx)
}

type Startup struct {
	dependencies map[string]Dependency
	order        []string
	logger       ectologger.Logger
	statuses     map[string]Status
	maxAttempts  int
	// unit scales the backoff; one second outside tests
	unit time.Duration
}

func New(logger ectologger.Logger, maxAttempts int) *Startup {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Startup{
		logger:       logger,
		dependencies: make(map[string]Dependency),
		statuses:     make(map[string]Status),
		maxAttempts:  maxAttempts,
		unit:         time.Second,
	}
}

// WithBackoffUnit changes the base retry delay.
func (s *Startup) WithBackoffUnit(unit time.Duration) *Startup {
	s.unit = unit
	return s
}

func (s *Startup) Add(dependency Dependency) {
	name := dependency.GetName()
	if _, ok := s.dependencies[name]; !ok {
		s.order = append(s.order, name)
	}
	s.dependencies[name] = dependency
}

func (s *Startup) Status(name string) Status {
	return s.statuses[name]
}

// Start starts every dependency, retrying failed attempts until maxAttempts
// is reached. Dependencies started by an earlier attempt are not restarted.
func (s *Startup) Start(ctx context.Context) error {
	if err := s.validate(); err != nil {
		return err
	}

	var lastErr error
	a, b := 1, 1
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		s.logger.WithField("attempt", attempt).Infof("Beginning startup attempt %d", attempt)

		lastErr = nil
		for _, name := range s.order {
			if err := s.startDependency(ctx, s.dependencies[name], nil); err != nil {
				s.logger.WithError(err).Errorf("Startup dependency '%s' attempt %d failed", name, attempt)
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			return nil
		}
		if attempt == s.maxAttempts {
			break
		}

		wait := time.Duration(a) * s.unit
		s.logger.Infof("Retrying in %s (attempt %d/%d)", wait, attempt, s.maxAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		a, b = b, a+b
	}

	return fmt.Errorf("startup failed after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *Startup) validate() error {
	for _, name := range s.order {
		for _, dep := range s.dependencies[name].DependsOn() {
			if _, ok := s.dependencies[dep]; !ok {
				return fmt.Errorf("dependency '%s' requires unknown dependency '%s'", name, dep)
			}
		}
	}
	return nil
}

func (s *Startup) startDependency(ctx context.Context, dependency Dependency, path []string) error {
	name := dependency.GetName()
	if s.statuses[name] == StatusStarted {
		return nil
	}
	for _, seen := range path {
		if seen == name {
			return fmt.Errorf("dependency cycle through '%s'", name)
		}
	}
	path = append(path, name)

	for _, required := range dependency.DependsOn() {
		if err := s.startDependency(ctx, s.dependencies[required], path); err != nil {
			return err
		}
	}

	log := s.logger.WithField("dependency", name)
	log.Infof("Starting dependency '%s'", name)
	s.statuses[name] = StatusPending
	if err := dependency.Start(ctx); err != nil {
		s.statuses[name] = StatusFailed
		log.WithError(err).Errorf("Failed to start dependency '%s'", name)
		return err
	}
	s.statuses[name] = StatusStarted
	return nil
}

// Stop stops started dependencies, dependents before what they depend on.
func (s *Startup) Stop(ctx context.Context) error {
	var firstErr error
	for _, name := range s.stopOrder() {
		if s.statuses[name] != StatusStarted {
			continue
		}
		log := s.logger.WithField("dependency", name)
		log.Infof("Stopping dependency '%s'", name)
		if err := s.dependencies[name].Stop(ctx); err != nil {
			log.WithError(err).Errorf("Failed to stop dependency '%s'", name)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.statuses[name] = StatusStopped
	}
	return firstErr
}

// stopOrder is the reverse of a depth-first start order.
func (s *Startup) stopOrder() []string {
	visited := map[string]bool{}
	var order []string
	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		deps := append([]string(nil), s.dependencies[name].DependsOn()...)
		sort.Strings(deps)
		for _, d := range deps {
			visit(d)
		}
		order = append(order, name)
	}
	for _, name := range s.order {
		visit(name)
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}
