package demotools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
)

// StateValidationResults and StateProcessingResults are the shared context keys
// the data tools hand results through.
const (
	StateValidationResults = "validation_results"
	StateProcessingResults = "processing_results"
)

// ValidationResults is the payload of the validator.
type ValidationResults struct {
	FormatValid     bool      `json:"formatValid"`
	StructureValid  bool      `json:"structureValid"`
	DataTypesValid  bool      `json:"dataTypesValid"`
	ValidatedAt     time.Time `json:"validatedAt"`
	ValidatedFields []string  `json:"validatedFields"`
}

// ProcessingResults is the payload of the processor.
type ProcessingResults struct {
	ProcessedRecords int       `json:"processedRecords"`
	Transformations  []string  `json:"transformations"`
	ValidationRef    time.Time `json:"validationRef"`
	OutputFormat     string    `json:"outputFormat"`
	QualityScore     float64   `json:"qualityScore"`
}

// Report is the payload of the report generator.
type Report struct {
	Type             string   `json:"type"`
	BasedOnProcessed bool     `json:"basedOnProcessed"`
	RecordsProcessed int      `json:"recordsProcessed,omitempty"`
	QualityScore     float64  `json:"qualityScore,omitempty"`
	Sections         []string `json:"sections"`
}

type DataValidator struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewDataValidator(logger *zap.Logger) *DataValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataValidator{logger: logger.Named("data_validator"), now: time.Now}
}

func (t *DataValidator) Descriptor() domain.ToolDescriptor {
	return domain.ToolDescriptor{
		Name:              "data_validator",
		Version:           "1.0.0",
		Description:       "Validates data formats and structure for other tools",
		Category:          "enhanced",
		Capabilities:      []string{"data_validation", "format_checking", "structure_analysis"},
		Coordination:      domain.CoordinationPreferences{ParallelEligible: true},
		EstimatedDuration: 200 * time.Millisecond,
	}
}

func (t *DataValidator) Execute(ctx context.Context, shared *domain.SharedContext) domain.ExecutionResult {
	if err := ctx.Err(); err != nil {
		return domain.Failed("data_validator", err)
	}
	results := ValidationResults{
		FormatValid:     true,
		StructureValid:  true,
		DataTypesValid:  true,
		ValidatedAt:     t.now().UTC(),
		ValidatedFields: []string{"id", "name", "email", "created_at"},
	}
	shared.Set(StateValidationResults, results)
	return domain.Succeeded("data_validator", results, "Data validation completed. All formats and structures are valid.")
}

type DataProcessor struct {
	logger *zap.Logger
}

func NewDataProcessor(logger *zap.Logger) *DataProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataProcessor{logger: logger.Named("data_processor")}
}

func (t *DataProcessor) Descriptor() domain.ToolDescriptor {
	return domain.ToolDescriptor{
		Name:        "data_processor",
		Version:     "1.1.0",
		Description: "Processes data after validation",
		Category:    "enhanced",
		Dependencies: []domain.Dependency{{
			Target:            "data_validation",
			Kind:              domain.DependencyRequired,
			VersionConstraint: ">=1.0.0",
			FallbackNames:     []string{"data_validator"},
		}},
		EstimatedDuration: 500 * time.Millisecond,
	}
}

// OnDependencyResult copies validator output into the shared state.
func (t *DataProcessor) OnDependencyResult(_ context.Context, result domain.ExecutionResult, shared *domain.SharedContext) error {
	if result.ToolName != "data_validator" || !result.Success {
		return nil
	}
	validation, ok := result.Payload.(ValidationResults)
	if !ok {
		return fmt.Errorf("unexpected validation payload %T", result.Payload)
	}
	shared.Set(StateValidationResults, validation)
	t.logger.Debug("received validation results")
	return nil
}

func (t *DataProcessor) Execute(ctx context.Context, shared *domain.SharedContext) domain.ExecutionResult {
	if err := ctx.Err(); err != nil {
		return domain.Failed("data_processor", err)
	}
	raw, ok := shared.Get(StateValidationResults)
	validation, typed := raw.(ValidationResults)
	if !ok || !typed {
		err := &domain.ToolError{
			Kind:     domain.ErrorKindValidation,
			Severity: domain.SeverityCritical,
			Message:  "no validation results available",
			Cause:    errors.New("dependency data_validation not satisfied"),
		}
		return domain.Failed("data_processor", err)
	}
	results := ProcessingResults{
		ProcessedRecords: 150,
		Transformations:  []string{"normalize", "deduplicate", "enrich"},
		ValidationRef:    validation.ValidatedAt,
		OutputFormat:     "JSON",
		QualityScore:     0.95,
	}
	shared.Set(StateProcessingResults, results)
	out := fmt.Sprintf("Data processing completed. Processed %d records with quality score %.1f%%",
		results.ProcessedRecords, results.QualityScore*100)
	return domain.Succeeded("data_processor", results, out)
}

type ReportGenerator struct {
	logger *zap.Logger
}

func NewReportGenerator(logger *zap.Logger) *ReportGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportGenerator{logger: logger.Named("report_generator")}
}

func (t *ReportGenerator) Descriptor() domain.ToolDescriptor {
	return domain.ToolDescriptor{
		Name:        "report_generator",
		Version:     "2.0.0",
		Description: "Generates reports from processed data",
		Category:    "enhanced",
		Dependencies: []domain.Dependency{
			{Target: "data_processor", Kind: domain.DependencyOptional, VersionConstraint: ">=1.0.0"},
			{Target: "legacy_report_tool", Kind: domain.DependencyConflict},
		},
		Coordination: domain.CoordinationPreferences{
			ParallelEligible:          true,
			MaxParallel:               2,
			ContinueOnOptionalFailure: true,
		},
		EstimatedDuration: 300 * time.Millisecond,
	}
}

func (t *ReportGenerator) OnDependencyResult(_ context.Context, result domain.ExecutionResult, shared *domain.SharedContext) error {
	if result.ToolName != "data_processor" || !result.Success {
		return nil
	}
	if processed, ok := result.Payload.(ProcessingResults); ok {
		shared.Set(StateProcessingResults, processed)
	}
	return nil
}

func (t *ReportGenerator) Execute(ctx context.Context, shared *domain.SharedContext) domain.ExecutionResult {
	if err := ctx.Err(); err != nil {
		return domain.Failed("report_generator", err)
	}
	raw, _ := shared.Get(StateProcessingResults)
	if processed, ok := raw.(ProcessingResults); ok {
		report := Report{
			Type:             "Enhanced Data Report",
			BasedOnProcessed: true,
			RecordsProcessed: processed.ProcessedRecords,
			QualityScore:     processed.QualityScore,
			Sections:         []string{"Executive Summary", "Data Quality", "Processing Results", "Recommendations"},
		}
		return domain.Succeeded("report_generator", report,
			fmt.Sprintf("Enhanced report generated with %d processed records", processed.ProcessedRecords))
	}
	report := Report{
		Type:     "Basic Data Report",
		Sections: []string{"Basic Summary", "Raw Data Overview"},
	}
	return domain.Succeeded("report_generator", report, "Basic report generated (enhanced features require data processing)")
}

var (
	_ domain.Tool               = (*DataValidator)(nil)
	_ domain.DependencyConsumer = (*DataProcessor)(nil)
	_ domain.DependencyConsumer = (*ReportGenerator)(nil)
)
