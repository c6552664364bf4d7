package filtering

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/cache"
	f "github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/dynvar"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
	pg "github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/infrastructure"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/schema"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/signals"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/validation"
)

var ErrUnknownCollection = errors.New("unknown collection")

const (
	DefaultFilterCacheSize  = 1024
	DefaultRuleSetCacheSize = 128
)

type Option func(*Service)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithCacheSizes bounds the parsed filter and rule set caches.
func WithCacheSizes(filters, ruleSets int) Option {
	return func(s *Service) {
		s.filterCacheSize = filters
		s.ruleSetCacheSize = ruleSets
	}
}

func WithLimits(limits f.Limits) Option {
	return func(s *Service) {
		s.limits = limits
	}
}

// WithPatterns makes generated rule sets check field patterns.
func WithPatterns() Option {
	return func(s *Service) {
		s.generatorOptions = append(s.generatorOptions, validation.WithPatterns())
	}
}

func WithColumnMapper(mapper pg.ColumnMapper) Option {
	return func(s *Service) {
		s.columns = mapper
	}
}

type filterKey struct {
	collection string
	hash       uint64
	validation bool
}

type ruleSetKey struct {
	collection string
	version    string
}

// Service parses, merges and compiles filters and validates payloads
// against the collections of a schema source. Parsed filters and rule
// sets are cached until the collection they belong to changes.
type Service struct {
	registry  *operators.Registry
	source    *schema.Source
	logger    zerolog.Logger
	limits    f.Limits
	columns   pg.ColumnMapper
	validator *validation.Validator
	generator *validation.Generator

	generatorOptions []validation.GeneratorOption
	filterCacheSize  int
	ruleSetCacheSize int

	filters  *cache.LRU[filterKey, f.Node]
	ruleSets *cache.LRU[ruleSetKey, *validation.RuleSet]
	detach   signals.Detach
}

func NewService(registry *operators.Registry, source *schema.Source, opts ...Option) *Service {
	s := &Service{
		registry:         registry,
		source:           source,
		logger:           zerolog.Nop(),
		limits:           f.DefaultLimits(),
		columns:          pg.QuotedColumns,
		validator:        validation.NewValidator(),
		filterCacheSize:  DefaultFilterCacheSize,
		ruleSetCacheSize: DefaultRuleSetCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.generator = validation.NewGenerator(registry, s.generatorOptions...)
	s.filters = cache.NewLRU[filterKey, f.Node](s.filterCacheSize)
	s.ruleSets = cache.NewLRU[ruleSetKey, *validation.RuleSet](s.ruleSetCacheSize)
	s.detach = source.Changed().Attach(s.invalidate, s)
	return s
}

// Close stops listening to schema changes.
func (s *Service) Close() {
	s.detach()
}

func (s *Service) invalidate(event schema.SnapshotReplaced) {
	changed := make(map[string]struct{}, len(event.Changed))
	for _, name := range event.Changed {
		changed[name] = struct{}{}
	}
	filters := s.filters.RemoveFunc(func(k filterKey) bool {
		_, ok := changed[k.collection]
		return ok
	})
	ruleSets := s.ruleSets.RemoveFunc(func(k ruleSetKey) bool {
		_, ok := changed[k.collection]
		return ok
	})
	s.logger.Info().
		Strs("collections", event.Changed).
		Int("filters", filters).
		Int("rule_sets", ruleSets).
		Msg("schema changed, caches invalidated")
}

func (s *Service) requestLogger(op, collection string) zerolog.Logger {
	return s.logger.With().
		Str("request_id", ulid.Make().String()).
		Str("op", op).
		Str("collection", collection).
		Logger()
}

func (s *Service) collection(collection string) (schema.Collection, schema.CollectionLookup, error) {
	snapshot := s.source.Current()
	c, ok := snapshot.Collection(collection)
	if !ok {
		return schema.Collection{}, schema.CollectionLookup{}, errors.Wrap(ErrUnknownCollection, collection)
	}
	lookup, _ := snapshot.Lookup(collection)
	return c, lookup, nil
}

// ParseFilter parses raw against the fields of collection. Deferred parses
// are cached under the normalized filter; immediate parses depend on vars
// and are not.
func (s *Service) ParseFilter(ctx context.Context, collection string, raw any, mode f.Mode, vars dynvar.Context) (f.Node, error) {
	logger := s.requestLogger("parse", collection)
	node, err := s.parse(ctx, logger, collection, raw, mode, vars, false)
	if err != nil {
		logger.Debug().Err(err).Msg("filter rejected")
		return nil, err
	}
	return node, nil
}

func (s *Service) parse(ctx context.Context, logger zerolog.Logger, collection string, raw any, mode f.Mode, vars dynvar.Context, validation bool) (f.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, lookup, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	opts := []f.ParserOption{f.WithMode(mode), f.WithVariables(vars), f.WithLimits(s.limits)}
	if validation {
		opts = append(opts, f.ForValidation())
	}
	parser := f.NewParser(s.registry, lookup, opts...)
	if mode != f.ResolveDeferred {
		node, err := parser.Parse(raw)
		return node, errors.Wrapf(err, "parse filter on %s", collection)
	}

	// The normalized form only keys the cache; errors locate into raw.
	normalized, err := f.Normalize(raw)
	if err != nil {
		node, err := parser.Parse(raw)
		return node, errors.Wrapf(err, "parse filter on %s", collection)
	}
	hash, err := cache.Keys(c.Version(), normalized)
	if err != nil {
		return nil, errors.Wrap(err, "hash filter")
	}
	key := filterKey{collection: collection, hash: hash, validation: validation}
	if node, ok := s.filters.Get(key); ok {
		logger.Debug().Uint64("key", hash).Msg("filter cache hit")
		return node, nil
	}
	node, err := parser.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse filter on %s", collection)
	}
	s.filters.Add(key, node)
	return node, nil
}

// QueryRequest describes one read: the user's filter and the permission
// filters that apply to the caller, all raw.
type QueryRequest struct {
	Collection  string
	Filter      any
	Permissions []any
	Variables   dynvar.Context
	Mode        f.Mode
}

// BuildQuery parses every filter of req and merges them so that the result
// only matches records every permission filter allows.
func (s *Service) BuildQuery(ctx context.Context, req QueryRequest) (f.Node, error) {
	logger := s.requestLogger("build", req.Collection)
	permissions := make([]f.Node, 0, len(req.Permissions))
	for i, raw := range req.Permissions {
		node, err := s.parse(ctx, logger, req.Collection, raw, req.Mode, req.Variables, false)
		if err != nil {
			logger.Warn().Err(err).Int("permission", i).Msg("permission filter rejected")
			return nil, errors.Wrapf(err, "permission %d", i)
		}
		permissions = append(permissions, node)
	}
	user, err := s.parse(ctx, logger, req.Collection, req.Filter, req.Mode, req.Variables, false)
	if err != nil {
		logger.Debug().Err(err).Msg("filter rejected")
		return nil, err
	}
	merged := f.MergePermissions(permissions, user)
	logger.Debug().Int("conditions", len(f.Conditions(merged))).Msg("query built")
	return merged, nil
}

// CompileSQL renders node as a WHERE fragment for collection, resolving
// any dynamic variable left in the tree against vars.
func (s *Service) CompileSQL(ctx context.Context, collection string, node f.Node, vars dynvar.Context) (string, []any, error) {
	logger := s.requestLogger("compile", collection)
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	_, lookup, err := s.collection(collection)
	if err != nil {
		return "", nil, err
	}
	sql, params, err := pg.Compile(node,
		pg.WithColumnMapper(s.columns),
		pg.WithFieldTypes(lookup),
		pg.WithVariables(vars),
	)
	if err != nil {
		logger.Debug().Err(err).Msg("compile failed")
		return "", nil, errors.Wrapf(err, "compile filter on %s", collection)
	}
	logger.Debug().Int("params", len(params)).Msg("filter compiled")
	return sql, params, nil
}

// Query builds and compiles req in one step.
func (s *Service) Query(ctx context.Context, req QueryRequest) (string, []any, error) {
	node, err := s.BuildQuery(ctx, req)
	if err != nil {
		return "", nil, err
	}
	return s.CompileSQL(ctx, req.Collection, node, req.Variables)
}

// RuleSet returns the rule set of the current version of collection.
func (s *Service) RuleSet(ctx context.Context, collection string) (*validation.RuleSet, error) {
	return s.ruleSet(ctx, s.requestLogger("rules", collection), collection)
}

func (s *Service) ruleSet(ctx context.Context, logger zerolog.Logger, collection string) (*validation.RuleSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snapshot := s.source.Current()
	c, ok := snapshot.Collection(collection)
	if !ok {
		return nil, errors.Wrap(ErrUnknownCollection, collection)
	}
	key := ruleSetKey{collection: collection, version: c.Version()}
	if rs, ok := s.ruleSets.Get(key); ok {
		return rs, nil
	}
	constraints, _ := snapshot.Constraints(collection)
	rs := s.generator.Generate(c.Version(), constraints)
	s.ruleSets.Add(key, rs)
	logger.Debug().Str("version", c.Version()).Int("fields", rs.Len()).Msg("rule set generated")
	return rs, nil
}

type payloadOptions struct {
	filter     any
	variables  dynvar.Context
	requireAll bool
}

type PayloadOption func(*payloadOptions)

// WithValidationFilter also checks the payload against raw, a filter that
// may use validation-only operators such as _regex. Dynamic variables in
// raw resolve against vars.
func WithValidationFilter(raw any, vars dynvar.Context) PayloadOption {
	return func(o *payloadOptions) {
		o.filter = raw
		o.variables = vars
	}
}

// RequireFilterFields makes the fields the validation filter names
// mandatory in the payload.
func RequireFilterFields() PayloadOption {
	return func(o *payloadOptions) {
		o.requireAll = true
	}
}

// ValidatePayload checks payload against the rules of collection and, when
// given, a validation filter. The error is only set when the rules or the
// filter cannot be obtained or evaluated; violations are reported through
// the result.
func (s *Service) ValidatePayload(ctx context.Context, collection string, payload map[string]any, opts ...PayloadOption) (validation.Result, error) {
	logger := s.requestLogger("validate", collection)
	var o payloadOptions
	for _, opt := range opts {
		opt(&o)
	}
	rs, err := s.ruleSet(ctx, logger, collection)
	if err != nil {
		return validation.Result{}, err
	}
	result := s.validator.Validate(payload, rs)

	if o.filter != nil {
		node, err := s.parse(ctx, logger, collection, o.filter, f.ResolveDeferred, dynvar.Context{}, true)
		if err != nil {
			logger.Debug().Err(err).Msg("validation filter rejected")
			return validation.Result{}, errors.Wrap(err, "validation filter")
		}
		evalOpts := []validation.EvaluateOption{validation.WithFilterVariables(o.variables)}
		if o.requireAll {
			evalOpts = append(evalOpts, validation.RequireAll())
		}
		filtered, err := validation.ValidateFilter(payload, node, evalOpts...)
		if err != nil {
			return validation.Result{}, errors.Wrap(err, "validation filter")
		}
		result.Violations = append(result.Violations, filtered.Violations...)
		result.Valid = len(result.Violations) == 0
	}

	if !result.Valid {
		logger.Debug().Int("violations", len(result.Violations)).Msg("payload rejected")
	}
	return result, nil
}

// Stats reports the filter and rule set cache statistics.
func (s *Service) Stats() (filters, ruleSets cache.Stats) {
	return s.filters.Stats(), s.ruleSets.Stats()
}
