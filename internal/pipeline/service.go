package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ppiankov/credence/internal/fetch"
	"github.com/ppiankov/credence/internal/fingerprint"
	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/store"
	"github.com/ppiankov/credence/internal/verify"
	"github.com/sirupsen/logrus"
)

// Validation types accepted on a request
const (
	TypeComprehensive      = "comprehensive"
	TypeFactCheck          = "fact_check"
	TypeSourceVerification = "source_verification"
	TypeFullAnalysis       = "full_analysis"
	TypeBiasAnalysis       = "bias_analysis"
)

var knownTypes = []string{TypeComprehensive, TypeFactCheck, TypeSourceVerification, TypeBiasAnalysis, TypeFullAnalysis}

var (
	// ErrNoStore is returned by lookups when no record store is configured
	ErrNoStore = errors.New("validation store is not configured")

	// ErrNotRetryable is returned when retrying a validation that did not fail
	ErrNotRetryable = errors.New("only failed validations can be retried")
)

// ValidationRequest asks for one article to be validated. Content wins over
// the URL when both are given; the URL is then kept as the source locator.
type ValidationRequest struct {
	ArticleURL            string   `json:"article_url,omitempty"`
	ArticleContent        string   `json:"article_content,omitempty"`
	Title                 string   `json:"title,omitempty"`
	ValidationTypes       []string `json:"validation_types,omitempty"`
	IncludeSources        *bool    `json:"include_sources,omitempty"`        // default true
	IncludeContradictions *bool    `json:"include_contradictions,omitempty"` // default true
	IncludeSummary        bool     `json:"include_summary,omitempty"`        // always on for full_analysis
}

// ValidationResponse is returned for every request, successful or not
type ValidationResponse struct {
	Success      bool                    `json:"success"`
	ValidationID string                  `json:"validation_id,omitempty"`
	Status       model.Status            `json:"status,omitempty"`
	Results      *model.ValidationResult `json:"results,omitempty"`
	Error        string                  `json:"error,omitempty"`
}

// HistoryResponse lists every stored validation of one article
type HistoryResponse struct {
	Success     bool                  `json:"success"`
	Fingerprint string                `json:"fingerprint"`
	Validations []*ValidationResponse `json:"validations"`
	Error       string                `json:"error,omitempty"`
}

// ArticleFetcher downloads the readable text behind an article URL
type ArticleFetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Page, error)
}

// RecordStore keeps terminal results by id
type RecordStore interface {
	Save(ctx context.Context, article model.Article, result *model.ValidationResult) error
	Create(ctx context.Context, article model.Article, result *model.ValidationResult) (bool, error)
	Get(ctx context.Context, id string) (*store.Record, error)
	Latest(ctx context.Context, fp string) (*store.Record, error)
	List(ctx context.Context, fp string, limit int) ([]*store.Record, error)
	Count(ctx context.Context) (int, error)
}

// SourceVerifier annotates evidence with the reachability of its source
type SourceVerifier interface {
	Check(ctx context.Context, evidence []model.Evidence)
}

// ArticleAnalyst adds the article-level bias and summary diagnostics
type ArticleAnalyst interface {
	AssessBias(ctx context.Context, article model.Article, result *model.ValidationResult)
	Summarize(ctx context.Context, article model.Article, result *model.ValidationResult)
}

// Service is the entry point shared by the CLI and the HTTP server
type Service struct {
	orchestrator *Orchestrator
	fetcher      ArticleFetcher
	records      RecordStore
	verifier     SourceVerifier
	analyst      ArticleAnalyst
	log          logrus.FieldLogger
}

// NewService creates a service. fetcher and records may be nil, which
// disables URL input and lookups respectively.
func NewService(orchestrator *Orchestrator, fetcher ArticleFetcher, records RecordStore, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		orchestrator: orchestrator,
		fetcher:      fetcher,
		records:      records,
		log:          log,
	}
}

// SetVerifier enables source link checks for source_verification and
// full_analysis requests.
func (s *Service) SetVerifier(verifier SourceVerifier) {
	s.verifier = verifier
}

// SetAnalyst enables bias analysis and summaries
func (s *Service) SetAnalyst(analyst ArticleAnalyst) {
	s.analyst = analyst
}

// Validate runs the pipeline for the request. The response is always
// populated; the error classifies failures for callers that map them to
// exit codes or HTTP statuses.
func (s *Service) Validate(ctx context.Context, req ValidationRequest) (*ValidationResponse, error) {
	result, err := s.run(ctx, req)
	return shape(result, err, req), err
}

// ValidateURL validates the article at url and returns the unshaped result
func (s *Service) ValidateURL(ctx context.Context, url string) (*model.ValidationResult, error) {
	return s.run(ctx, ValidationRequest{ArticleURL: url})
}

// Result looks up a stored validation by id
func (s *Service) Result(ctx context.Context, id string) (*ValidationResponse, error) {
	if s.records == nil {
		return failure(ErrNoStore), ErrNoStore
	}
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return failure(err), err
	}
	return shape(rec.Result, nil, ValidationRequest{}), nil
}

// Latest returns the most recent stored validation of an article fingerprint
func (s *Service) Latest(ctx context.Context, fp string) (*ValidationResponse, error) {
	if s.records == nil {
		return failure(ErrNoStore), ErrNoStore
	}
	rec, err := s.records.Latest(ctx, fp)
	if err != nil {
		return failure(err), err
	}
	return shape(rec.Result, nil, ValidationRequest{}), nil
}

// History returns every stored validation of an article fingerprint, most
// recent first
func (s *Service) History(ctx context.Context, fp string) (*HistoryResponse, error) {
	if s.records == nil {
		return &HistoryResponse{Fingerprint: fp, Error: ErrNoStore.Error()}, ErrNoStore
	}
	records, err := s.records.List(ctx, fp, 0)
	if err == nil && len(records) == 0 {
		err = store.ErrNotFound
	}
	if err != nil {
		return &HistoryResponse{Fingerprint: fp, Error: err.Error()}, err
	}

	resp := &HistoryResponse{
		Success:     true,
		Fingerprint: fp,
		Validations: make([]*ValidationResponse, 0, len(records)),
	}
	for _, rec := range records {
		resp.Validations = append(resp.Validations, shape(rec.Result, nil, ValidationRequest{}))
	}
	return resp, nil
}

// Stored returns the number of stored validations
func (s *Service) Stored(ctx context.Context) (int, error) {
	if s.records == nil {
		return 0, ErrNoStore
	}
	return s.records.Count(ctx)
}

// Retry re-runs a failed validation from its stored article, keeping its id
func (s *Service) Retry(ctx context.Context, id string) (*ValidationResponse, error) {
	if s.records == nil {
		return failure(ErrNoStore), ErrNoStore
	}
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return failure(err), err
	}
	if rec.Result.Status != model.StatusFailed {
		return shape(rec.Result, ErrNotRetryable, ValidationRequest{}), ErrNotRetryable
	}

	s.log.WithFields(logrus.Fields{
		"validation_id": id,
		"retry_count":   rec.Result.RetryCount + 1,
	}).Info("Retrying validation")

	result, err := s.orchestrator.Rerun(ctx, rec.Article, id)
	if result != nil {
		result.ID = id
		result.CreatedAt = rec.Result.CreatedAt
		result.ValidationTypes = rec.Result.ValidationTypes
		result.RetryCount = rec.Result.RetryCount + 1
		if err == nil {
			s.enrich(ctx, rec.Article, result, false)
		}
		if result.Status.IsTerminal() {
			if err := s.records.Save(context.WithoutCancel(ctx), rec.Article, result); err != nil {
				s.log.WithError(err).WithField("validation_id", id).Warn("Failed to store validation")
			}
		}
	}
	return shape(result, err, ValidationRequest{}), err
}

func (s *Service) run(ctx context.Context, req ValidationRequest) (*model.ValidationResult, error) {
	types, err := NormalizeTypes(req.ValidationTypes)
	if err != nil {
		return nil, err
	}
	if err := fingerprint.CheckInput(req.ArticleURL, req.ArticleContent); err != nil {
		return nil, err
	}

	article, err := s.article(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := s.orchestrator.Run(ctx, article)
	if result != nil {
		result.ValidationTypes = types
		if err == nil {
			s.enrich(ctx, article, result, req.IncludeSummary)
		}
		s.create(ctx, article, result)
	}
	return result, err
}

// enrich adds the diagnostics the validation types ask for. None of them
// change the credibility score.
func (s *Service) enrich(ctx context.Context, article model.Article, result *model.ValidationResult, summary bool) {
	if result.Status != model.StatusCompleted {
		return
	}
	wants := func(t string) bool {
		return slices.Contains(result.ValidationTypes, t) || slices.Contains(result.ValidationTypes, TypeFullAnalysis)
	}

	if s.verifier != nil && wants(TypeSourceVerification) && len(result.Evidence) > 0 {
		s.verifier.Check(ctx, result.Evidence)
		result.Signals = append(result.Signals, verify.LivenessSignal(result.Evidence))
	}
	if s.analyst == nil {
		return
	}
	if wants(TypeBiasAnalysis) {
		s.analyst.AssessBias(ctx, article, result)
	}
	if summary || slices.Contains(result.ValidationTypes, TypeFullAnalysis) {
		s.analyst.Summarize(ctx, article, result)
	}
}

func (s *Service) article(ctx context.Context, req ValidationRequest) (model.Article, error) {
	if strings.TrimSpace(req.ArticleContent) != "" {
		return fingerprint.NewArticle(req.ArticleURL, req.Title, req.ArticleContent)
	}

	if s.fetcher == nil {
		return model.Article{}, &model.InputError{Field: "article_url", Message: "URL fetching is disabled"}
	}
	page, err := s.fetcher.Fetch(ctx, req.ArticleURL)
	if err != nil {
		return model.Article{}, err
	}

	title := req.Title
	if title == "" {
		title = page.Title
	}
	return fingerprint.NewArticle(req.ArticleURL, title, page.Text)
}

// create stores a terminal result the first time its id is seen. Cache
// hits and coalesced runs share the id of the original run, whose record
// is left as it was.
func (s *Service) create(ctx context.Context, article model.Article, result *model.ValidationResult) {
	if s.records == nil || !result.Status.IsTerminal() {
		return
	}
	created, err := s.records.Create(context.WithoutCancel(ctx), article, result)
	if err != nil {
		s.log.WithError(err).WithField("validation_id", result.ID).Warn("Failed to store validation")
		return
	}
	if !created {
		s.log.WithField("validation_id", result.ID).Debug("Validation already stored")
	}
}

// NormalizeTypes lower-cases and dedupes validation types. An empty list
// means comprehensive; unknown names are an input error.
func NormalizeTypes(types []string) ([]string, error) {
	if len(types) == 0 {
		return []string{TypeComprehensive}, nil
	}

	var normalized []string
	for _, t := range types {
		name := strings.ToLower(strings.TrimSpace(t))
		if !slices.Contains(knownTypes, name) {
			return nil, &model.InputError{
				Field:   "validation_types",
				Message: fmt.Sprintf("unknown type %q (use %s)", t, strings.Join(knownTypes, ", ")),
			}
		}
		if !slices.Contains(normalized, name) {
			normalized = append(normalized, name)
		}
	}
	return normalized, nil
}

func shape(result *model.ValidationResult, err error, req ValidationRequest) *ValidationResponse {
	if result == nil {
		return failure(err)
	}

	shaped := result.Clone()
	if req.IncludeSources != nil && !*req.IncludeSources {
		shaped.Evidence = []model.Evidence{}
	}
	if req.IncludeContradictions != nil && !*req.IncludeContradictions {
		shaped.Contradictions = []model.Contradiction{}
	}

	resp := &ValidationResponse{
		Success:      err == nil && result.Status == model.StatusCompleted,
		ValidationID: result.ID,
		Status:       result.Status,
		Results:      shaped,
	}
	// a run that never got past extraction has no scores to report
	if !result.Scored() {
		resp.Results = nil
	}
	switch {
	case err != nil:
		resp.Error = err.Error()
	case result.Error != "":
		resp.Error = result.Error
	}
	return resp
}

func failure(err error) *ValidationResponse {
	resp := &ValidationResponse{Success: false}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
