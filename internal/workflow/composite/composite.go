package composite

import (
	"context"
	"sync"

	"cpenv/internal/workflow/request"
	"cpenv/internal/workflow/result"
	appErr "cpenv/pkg/errors"
)

// DefaultMaxWorkers bounds parallel execution when the caller passes zero.
const DefaultMaxWorkers = 4

// Runnable is the capability every composite element must satisfy. Request
// variants satisfy it directly; nested composites satisfy it through their
// summary execution.
type Runnable interface {
	Name() string
	Run(ctx context.Context, drv request.Driver) (*result.OperationResult, error)
}

// Countable is implemented by elements that know their own leaf count.
// Plain requests do not implement it and count as one leaf each.
type Countable interface {
	CountLeafRequests() int
}

// CompositeStructure is an ordered collection of runnables executed together.
type CompositeStructure struct {
	name     string
	elements []Runnable
}

// NewCompositeStructure builds a composite, rejecting nil elements up front so
// a malformed graph fails at construction rather than mid-execution.
func NewCompositeStructure(name string, elements ...Runnable) (*CompositeStructure, error) {
	c := &CompositeStructure{name: name}
	for i, elem := range elements {
		if elem == nil {
			return nil, appErr.Newf(appErr.CompositeInvalid, "composite %q element %d is nil", name, i)
		}
		c.elements = append(c.elements, elem)
	}
	return c, nil
}

// Name returns the composite name.
func (c *CompositeStructure) Name() string { return c.name }

// SetName renames the composite.
func (c *CompositeStructure) SetName(name string) { c.name = name }

// Elements returns the ordered element list.
func (c *CompositeStructure) Elements() []Runnable { return c.elements }

// CountLeafRequests recursively sums leaf requests. Elements exposing a leaf
// count contribute their count; a counter that panics degrades to one leaf,
// since progress reporting must never abort execution.
func (c *CompositeStructure) CountLeafRequests() int {
	total := 0
	for _, elem := range c.elements {
		total += countOne(elem)
	}
	return total
}

func countOne(elem Runnable) (n int) {
	counter, ok := elem.(Countable)
	if !ok {
		return 1
	}
	defer func() {
		if recover() != nil {
			n = 1
		}
	}()
	return counter.CountLeafRequests()
}

// ExecuteSequential runs elements strictly in order. The first failing result
// stops the sequence unless the element allows failure; all results produced
// so far are returned either way. An error indicates a programmer fault
// (e.g. double execution), not a step failure.
func (c *CompositeStructure) ExecuteSequential(ctx context.Context, drv request.Driver) ([]*result.OperationResult, error) {
	results := make([]*result.OperationResult, 0, len(c.elements))
	for _, elem := range c.elements {
		res, err := elem.Run(ctx, drv)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if !res.Success && !res.AllowFailure {
			break
		}
	}
	return results, nil
}

// ExecuteParallel runs elements via a bounded worker pool. The returned slice
// preserves submission order regardless of completion order. Once submitted,
// all elements run to completion; there is no mid-batch cancellation.
func (c *CompositeStructure) ExecuteParallel(ctx context.Context, drv request.Driver, maxWorkers int) ([]*result.OperationResult, error) {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}

	results := make([]*result.OperationResult, len(c.elements))
	errs := make([]error, len(c.elements))
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup

	for i, elem := range c.elements {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, elem Runnable) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i], errs[i] = elem.Run(ctx, drv)
		}(i, elem)
	}
	wg.Wait()

	ordered := make([]*result.OperationResult, 0, len(c.elements))
	var firstErr error
	for i, res := range results {
		if errs[i] != nil && firstErr == nil {
			firstErr = errs[i]
		}
		if res != nil {
			ordered = append(ordered, res)
		}
	}
	return ordered, firstErr
}

// Run executes the composite sequentially and folds the outcome into one
// summary result, letting a composite stand in anywhere a request can.
func (c *CompositeStructure) Run(ctx context.Context, drv request.Driver) (*result.OperationResult, error) {
	results, err := c.ExecuteSequential(ctx, drv)
	if err != nil {
		return nil, err
	}
	summary := &result.OperationResult{Name: c.name, Success: true}
	for _, res := range results {
		if !res.Success && !res.AllowFailure {
			summary.Success = false
			summary.ErrorMessage = res.ErrorOutput()
			break
		}
	}
	return summary, nil
}

// namable is satisfied by elements that accept a name.
type namable interface {
	SetName(name string)
}

// MakeOptimalStructure returns the single element directly when only one is
// given, avoiding a layer of indirection for the common single-step case, and
// wraps multiple elements in a composite.
func MakeOptimalStructure(name string, elements ...Runnable) (Runnable, error) {
	if len(elements) == 0 {
		return nil, appErr.Newf(appErr.CompositeInvalid, "composite %q has no elements", name)
	}
	if len(elements) == 1 {
		elem := elements[0]
		if elem == nil {
			return nil, appErr.Newf(appErr.CompositeInvalid, "composite %q element 0 is nil", name)
		}
		if n, ok := elem.(namable); ok && name != "" {
			n.SetName(name)
		}
		return elem, nil
	}
	return NewCompositeStructure(name, elements...)
}
