// Package demotools provides small tools that show dependency resolution,
// result forwarding and recovery end to end.
package demotools

import (
	"errors"

	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
)

// Options tune the demo set.
type Options struct {
	// SimulateFailure makes ai_text_generation fail with this kind.
	SimulateFailure domain.ErrorKind
}

// Registrar is the write side of the catalog.
type Registrar interface {
	Register(tool domain.Tool) error
}

// Tools returns every demo tool.
func Tools(opts Options, logger *zap.Logger) []domain.Tool {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("demotools")
	return []domain.Tool{
		NewDataValidator(logger),
		NewDataProcessor(logger),
		NewReportGenerator(logger),
		NewTextGenerator(opts.SimulateFailure, logger),
		Provider{},
		Conversational{},
	}
}

// Register adds every demo tool to reg.
func Register(reg Registrar, opts Options, logger *zap.Logger) error {
	var errs []error
	for _, tool := range Tools(opts, logger) {
		if err := reg.Register(tool); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
