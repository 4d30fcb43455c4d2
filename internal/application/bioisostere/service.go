// Package bioisostere exposes fragment-replacement suggestions as an
// application service, layering rule loading and instrumentation over the
// domain logic.
package bioisostere

import (
	"context"
	"time"

	"github.com/molprop/platform/internal/domain/bioisostere"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
)

// Metrics is the sliver of instrumentation the service needs.
type Metrics interface {
	ObserveAnalysis(kind string, start time.Time, err error)
}

// Service generates bioisostere suggestions.
type Service struct {
	logger  logging.Logger
	metrics Metrics
}

// NewService wires a bioisostere service.  metrics may be nil.
func NewService(log logging.Logger, metrics Metrics) *Service {
	return &Service{logger: log.Named("bioisostere"), metrics: metrics}
}

// Run suggests replacements for one query structure.  When the request names
// a rules file its rules are merged over the built-in table.
func (s *Service) Run(ctx context.Context, req analysis.BioisostereRequest) (result *analysis.BioisostereResult, err error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveAnalysis(string(analysis.KindBioisostere), start, err)
		}
	}()
	if err = ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "bioisostere canceled")
	}

	rules := bioisostere.BuiltinRules()
	if req.RulesPath != "" {
		userRules, err := bioisostere.LoadRules(req.RulesPath)
		if err != nil {
			return nil, err
		}
		rules = bioisostere.MergedRules(userRules)
		s.logger.Debug("loaded user rules",
			logging.String("path", req.RulesPath),
			logging.Int("rules", len(userRules)))
	}

	result, err = bioisostere.Suggest(req.SMILES, rules, req.MaxResults)
	if err != nil {
		return nil, err
	}
	s.logger.Info("bioisostere suggestions generated",
		logging.String("query", req.SMILES),
		logging.Int("suggestions", len(result.Suggestions)))
	return result, nil
}
