package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hrcal/hrcal/internal/calendar"
)

// CompositeSource combines multiple EventSources
type CompositeSource struct {
	sources   []EventSource
	log       zerolog.Logger
	mu        sync.RWMutex
	eventChan chan ChangeEvent
	stopChans []chan struct{}
	wg        sync.WaitGroup
}

// NewCompositeSource creates a new composite event source
func NewCompositeSource(log zerolog.Logger, sources ...EventSource) *CompositeSource {
	return &CompositeSource{
		sources:   sources,
		log:       log,
		eventChan: make(chan ChangeEvent, 10),
	}
}

// AddSource adds a new source to the composite
func (c *CompositeSource) AddSource(source EventSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, source)
}

func (c *CompositeSource) Name() string { return "composite" }

// Events merges the events of every source. An event ID seen twice keeps
// the copy from the earlier source. A failing source is logged and skipped;
// the call only fails when every source failed.
func (c *CompositeSource) Events(ctx context.Context, start, end time.Time) ([]calendar.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var allEvents []calendar.Event
	seen := make(map[string]bool)
	var lastErr error
	failed := 0

	for _, source := range c.sources {
		events, err := source.Events(ctx, start, end)
		if err != nil {
			failed++
			lastErr = fmt.Errorf("%s: %w", source.Name(), err)
			c.log.Error().Err(err).Str("source", source.Name()).Msg("loading events failed")
			continue
		}

		for _, event := range events {
			if seen[event.ID] {
				continue
			}
			seen[event.ID] = true
			allEvents = append(allEvents, event)
		}
	}

	if failed > 0 && failed == len(c.sources) {
		return nil, lastErr
	}

	for _, source := range c.sources {
		if o, ok := source.(Overlay); ok {
			allEvents = o.Apply(allEvents)
		}
	}

	allEvents = calendar.Ingest(allEvents)
	calendar.SortEvents(allEvents)
	return allEvents, nil
}

// Categories returns the legend of the first source that defines one.
func (c *CompositeSource) Categories() ([]calendar.Category, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, source := range c.sources {
		cats, err := source.Categories()
		if err != nil {
			c.log.Warn().Err(err).Str("source", source.Name()).Msg("loading categories failed")
			continue
		}
		if len(cats) > 0 {
			return cats, nil
		}
	}
	return nil, nil
}

// Watch forwards the change notifications of every source that supports
// watching.
func (c *CompositeSource) Watch() (<-chan ChangeEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, source := range c.sources {
		sourceChan, err := source.Watch()
		if err != nil {
			c.log.Warn().Err(err).Str("source", source.Name()).Msg("watching failed")
			continue
		}
		if sourceChan == nil {
			continue // Skip sources that don't support watching
		}

		stopChan := make(chan struct{})
		c.stopChans = append(c.stopChans, stopChan)

		c.wg.Add(1)
		go func(src <-chan ChangeEvent, stop chan struct{}) {
			defer c.wg.Done()
			for {
				select {
				case event, ok := <-src:
					if !ok {
						return
					}
					select {
					case c.eventChan <- event:
					default:
						// Channel full, a reload is already pending.
					}
				case <-stop:
					return
				}
			}
		}(sourceChan, stopChan)
	}

	return c.eventChan, nil
}

// Close stops all forwarding and closes every source.
func (c *CompositeSource) Close() error {
	c.mu.Lock()
	for _, stopChan := range c.stopChans {
		close(stopChan)
	}
	c.stopChans = nil
	sources := c.sources
	c.mu.Unlock()

	c.wg.Wait()

	var firstErr error
	for _, source := range sources {
		if err := source.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.mu.Lock()
	if c.eventChan != nil {
		close(c.eventChan)
		c.eventChan = nil
	}
	c.mu.Unlock()

	return firstErr
}
