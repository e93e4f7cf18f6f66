package app

import (
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/patrickmn/go-cache"

	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/socket"
	"github.com/mommothazaz123/avrae-search-nn/internal/config"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/canon"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/catalog"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/rank"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// Service is the live ranking state: a catalog index and an engine built
// over it, swapped as a pair under an RWMutex on reload. The scorer is fixed
// for the life of the service. Implements socket.Service.
type Service struct {
	cfg     *config.Config
	canon   *canon.Canonicalizer
	source  ports.CatalogSource
	scorer  ports.Scorer
	metrics *Metrics
	log     *log.Logger
	results *cache.Cache // nil when caching is disabled

	mu      sync.RWMutex
	index   *catalog.Index
	engine  *rank.Engine
	reloads int
}

var _ socket.Service = (*Service)(nil)

// NewService loads the catalog from src and builds the first engine. scorer
// and metrics may be nil.
func NewService(cfg *config.Config, src ports.CatalogSource, scorer ports.Scorer, metrics *Metrics, l *log.Logger) (*Service, error) {
	c, err := cfg.Canonicalizer()
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.CacheTTL()
	if err != nil {
		return nil, err
	}
	s := &Service{
		cfg:     cfg,
		canon:   c,
		source:  src,
		scorer:  scorer,
		metrics: metrics,
		log:     l,
	}
	if ttl > 0 {
		s.results = cache.New(ttl, 2*ttl)
	}

	idx, engine, err := s.build()
	if err != nil {
		return nil, err
	}
	s.index, s.engine = idx, engine
	metrics.observeReload(engine.Universe().Size(), nil)
	return s, nil
}

// build loads the catalog and binds an engine over the universe the scorer
// was trained on.
func (s *Service) build() (*catalog.Index, *rank.Engine, error) {
	entries, err := s.source.LoadCatalog()
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	idx, err := catalog.Build(entries)
	if err != nil {
		return nil, nil, fmt.Errorf("build index: %w", err)
	}
	restricted := s.scorer != nil && s.scorer.Descriptor().Restricted()
	engine, err := rank.NewEngine(idx.Universe(restricted), s.canon, s.scorer, s.cfg.RankOptions())
	if err != nil {
		return nil, nil, err
	}
	return idx, engine, nil
}

// Engine returns the current engine.
func (s *Service) Engine() *rank.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Index returns the current catalog index.
func (s *Service) Index() *catalog.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// DefaultStrategy is serve.strategy if set, else ensemble with a scorer and
// fuzzy without one.
func (s *Service) DefaultStrategy() string {
	if s.cfg.Serve.Strategy != "" {
		return s.cfg.Serve.Strategy
	}
	if s.scorer != nil {
		return rank.StrategyEnsemble
	}
	return rank.StrategyFuzzy
}

// Strategies lists the strategies this service can run.
func (s *Service) Strategies() []string {
	if s.scorer != nil {
		return slices.Clone(rank.Strategies)
	}
	return []string{rank.StrategySubstring, rank.StrategyFuzzy}
}

// Rank runs strategy (empty = DefaultStrategy) and returns at most limit
// candidates (0 = the strategy's own limit) along with the strategy used.
func (s *Service) Rank(query, strategy string, limit int) ([]rank.Candidate, string, error) {
	if strategy == "" {
		strategy = s.DefaultStrategy()
	}
	engine, gen := s.snapshot()
	fn, err := engine.Strategy(strategy)
	if err != nil {
		s.metrics.observeRank(strategy, 0, err)
		return nil, strategy, err
	}

	key := cacheKey(gen, strategy, query)
	var cands []rank.Candidate
	if hit, ok := s.cached(key); ok {
		cands = hit
		s.metrics.observeCache(true)
	} else {
		start := time.Now()
		cands, err = fn(query)
		s.metrics.observeRank(strategy, time.Since(start), err)
		if err != nil {
			return nil, strategy, err
		}
		s.metrics.observeCache(false)
		if s.results != nil {
			s.results.Set(key, cands, cache.DefaultExpiration)
		}
	}

	if limit > 0 && limit < len(cands) {
		cands = cands[:limit]
	}
	return slices.Clone(cands), strategy, nil
}

// snapshot returns the current engine and the reload generation it
// belongs to.
func (s *Service) snapshot() (*rank.Engine, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine, s.reloads
}

// cacheKey scopes a result to the engine generation that computed it.
func cacheKey(gen int, strategy, query string) string {
	return strconv.Itoa(gen) + "\x00" + strategy + "\x00" + query
}

func (s *Service) cached(key string) ([]rank.Candidate, bool) {
	if s.results == nil {
		return nil, false
	}
	v, ok := s.results.Get(key)
	if !ok {
		return nil, false
	}
	return v.([]rank.Candidate), true
}

// Complete returns up to limit names from the served universe starting with
// prefix.
func (s *Service) Complete(prefix string, limit int) []string {
	return s.Engine().Complete(prefix, limit)
}

// Health reports the served universe and scorer. Uptime is filled by the
// transport.
func (s *Service) Health() socket.HealthResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := socket.HealthResult{
		Status:      "ok",
		CatalogSize: s.engine.Universe().Size(),
		Strategies:  s.Strategies(),
		Reloads:     s.reloads,
	}
	if s.scorer != nil {
		d := s.scorer.Descriptor()
		h.Scorer = d.Name
		h.Restricted = d.Restricted()
	}
	return h
}

// Reload rebuilds the index and engine from the catalog source. On failure
// the previous engine keeps serving.
func (s *Service) Reload() (socket.ReloadResult, error) {
	start := time.Now()
	idx, engine, err := s.build()
	if err != nil {
		s.metrics.observeReload(0, err)
		return socket.ReloadResult{}, err
	}

	s.mu.Lock()
	s.index, s.engine = idx, engine
	s.reloads++
	s.mu.Unlock()
	if s.results != nil {
		s.results.Flush()
	}

	size := engine.Universe().Size()
	s.metrics.observeReload(size, nil)
	elapsed := time.Since(start)
	if s.log != nil {
		s.log.Info("catalog reloaded", "entries", size, "elapsed", elapsed)
	}
	return socket.ReloadResult{CatalogSize: size, Elapsed: elapsed.String()}, nil
}
