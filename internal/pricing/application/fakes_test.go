package application

import (
	"context"
	"sync"

	"github.com/wyfcoding/lsmpricing/internal/pricing/domain"
)

type memoryRepo struct {
	mu           sync.Mutex
	results      []*domain.PricingResult
	reports      map[string]*domain.ConvergenceReport
	quotes       map[string]*domain.SpotQuote
	historyLimit int
	txCount      int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		reports: make(map[string]*domain.ConvergenceReport),
		quotes:  make(map[string]*domain.SpotQuote),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context) error) error {
	r.mu.Lock()
	r.txCount++
	r.mu.Unlock()
	return fn(ctx)
}

func (r *memoryRepo) SavePricingResult(_ context.Context, result *domain.PricingResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	result.ID = uint(len(r.results) + 1)
	r.results = append(r.results, result)
	return nil
}

func (r *memoryRepo) GetLatestPricingResult(_ context.Context, symbol string) (*domain.PricingResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.results) - 1; i >= 0; i-- {
		if r.results[i].Spec.Symbol == symbol {
			return r.results[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) GetPricingResultHistory(_ context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.historyLimit = limit
	var out []*domain.PricingResult
	for i := len(r.results) - 1; i >= 0 && len(out) < limit; i-- {
		if r.results[i].Spec.Symbol == symbol {
			out = append(out, r.results[i])
		}
	}
	return out, nil
}

func (r *memoryRepo) SaveConvergenceReport(_ context.Context, report *domain.ConvergenceReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[report.ID] = report
	return nil
}

func (r *memoryRepo) GetConvergenceReport(_ context.Context, id string) (*domain.ConvergenceReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rep, ok := r.reports[id]; ok {
		return rep, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) SaveQuote(_ context.Context, quote *domain.SpotQuote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotes[quote.Symbol] = quote
	return nil
}

func (r *memoryRepo) GetLatestQuote(_ context.Context, symbol string) (*domain.SpotQuote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.quotes[symbol]; ok {
		return q, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) savedResults() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string]*domain.PricingResult
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string]*domain.PricingResult)}
}

func (c *memoryCache) Get(_ context.Context, key string) (*domain.PricingResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[key], nil
}

func (c *memoryCache) Set(_ context.Context, key string, result *domain.PricingResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = result
	return nil
}

type publishedEvent struct {
	eventType string
	key       string
	event     any
	inTx      bool
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, key string, event any) error {
	p.record(publishedEvent{eventType: eventType, key: key, event: event})
	return nil
}

func (p *recordingPublisher) PublishInTx(_ context.Context, eventType, key string, event any) error {
	p.record(publishedEvent{eventType: eventType, key: key, event: event, inTx: true})
	return nil
}

func (p *recordingPublisher) record(e publishedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) ofType(eventType string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.eventType == eventType {
			out = append(out, e)
		}
	}
	return out
}
