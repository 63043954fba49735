package tenant

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/finreports/internal/reporting"
)

// Store loads and saves settings records.
type Store interface {
	Load(ctx context.Context, tenantID uuid.UUID) (Settings, error)
	Save(ctx context.Context, s Settings) (Settings, error)
}

// Service resolves tenant settings through the cache and implements reporting.PolicySource.
type Service struct {
	store    Store
	cache    *Cache
	defaults reporting.Policy
	validate *validator.Validate
	logger   *slog.Logger

	mu       sync.RWMutex
	watching bool
	local    map[uuid.UUID]reporting.Policy
	// gen counts invalidations per tenant; a read only memoises if no forget ran during it.
	gen map[uuid.UUID]uint64
}

// NewService wires the service. defaults apply to tenants without a settings record.
func NewService(store Store, cache *Cache, defaults reporting.Policy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		cache:    cache,
		defaults: defaults,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		local:    make(map[uuid.UUID]reporting.Policy),
		gen:      make(map[uuid.UUID]uint64),
	}
}

// Settings returns the tenant's record, or ErrNotFound.
func (s *Service) Settings(ctx context.Context, tenantID uuid.UUID) (Settings, error) {
	return s.cache.Fetch(ctx, tenantID, func(ctx context.Context) (Settings, error) {
		return s.store.Load(ctx, tenantID)
	})
}

// Policy implements reporting.PolicySource. Tenants without a record get the defaults; records
// with an unknown schema version fail with ErrUnsupportedVersion.
func (s *Service) Policy(ctx context.Context, tenantID uuid.UUID) (reporting.Policy, error) {
	s.mu.RLock()
	p, ok := s.local[tenantID]
	gen := s.gen[tenantID]
	s.mu.RUnlock()
	if ok {
		return p, nil
	}

	settings, err := s.Settings(ctx, tenantID)
	switch {
	case errors.Is(err, ErrNotFound):
		p = s.defaults
	case err != nil:
		return reporting.Policy{}, err
	default:
		p = settings.Policy(s.defaults)
	}

	s.mu.Lock()
	if s.watching && s.gen[tenantID] == gen {
		s.local[tenantID] = p
	}
	s.mu.Unlock()
	return p, nil
}

// Update validates and stores a new record, then invalidates cached copies.
func (s *Service) Update(ctx context.Context, tenantID uuid.UUID, settings Settings) (Settings, error) {
	settings.TenantID = tenantID
	if err := settings.Validate(s.validate); err != nil {
		return Settings{}, err
	}
	saved, err := s.store.Save(ctx, settings)
	if err != nil {
		return Settings{}, err
	}
	s.forget(tenantID)
	if err := s.cache.Bump(ctx, tenantID); err != nil {
		s.logger.Warn("settings cache bump failed", slog.String("tenant_id", tenantID.String()), slog.Any("error", err))
	}
	return saved, nil
}

// Watch enables the in-process policy memo, kept coherent across processes by the cache's bump
// notifications. It returns once the subscription is live.
func (s *Service) Watch(ctx context.Context) error {
	if s.cache == nil || s.cache.client == nil {
		return nil
	}
	if err := s.cache.Subscribe(ctx, s.forget); err != nil {
		return err
	}
	s.mu.Lock()
	s.watching = true
	s.mu.Unlock()
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.watching = false
		s.local = make(map[uuid.UUID]reporting.Policy)
		s.mu.Unlock()
	}()
	return nil
}

func (s *Service) forget(tenantID uuid.UUID) {
	s.mu.Lock()
	delete(s.local, tenantID)
	s.gen[tenantID]++
	s.mu.Unlock()
}
