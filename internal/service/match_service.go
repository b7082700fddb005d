package service

import (
	"context"
	"fmt"
	"strings"

	"resume-matcher/internal/domain"
	"resume-matcher/internal/similarity"
	"resume-matcher/internal/storage"
)

// TextExtractor turns a document into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// MatchService scores resumes against job descriptions.
type MatchService interface {
	Match(ctx context.Context, resume []byte, jobDescription string) (*domain.MatchResult, error)
	MatchStored(ctx context.Context, key, jobDescription string) (*domain.MatchResult, error)
}

type matchService struct {
	extractor  TextExtractor
	vectorizer similarity.Vectorizer
	store      storage.ResumeStore
}

// NewMatchService wires the scoring pipeline. store may be nil, in which case
// MatchStored returns ErrStoreNotConfigured.
func NewMatchService(extractor TextExtractor, vectorizer similarity.Vectorizer, store storage.ResumeStore) MatchService {
	return &matchService{
		extractor:  extractor,
		vectorizer: vectorizer,
		store:      store,
	}
}

func (s *matchService) Match(ctx context.Context, resume []byte, jobDescription string) (*domain.MatchResult, error) {
	if len(resume) == 0 {
		return nil, invalidInput("resume is required")
	}
	if strings.TrimSpace(jobDescription) == "" {
		return nil, invalidInput("job_description is required")
	}

	text, err := s.extractor.Extract(ctx, resume)
	if err != nil {
		return nil, &ProcessingError{Stage: StageExtract, Err: err}
	}

	m, err := s.vectorizer.FitTransform(ctx, text, jobDescription)
	if err != nil {
		return nil, &ProcessingError{Stage: StageVectorize, Err: err}
	}

	score := similarity.Percent(similarity.Cosine(m.Rows[0], m.Rows[1]))
	return &domain.MatchResult{
		Score:   score,
		Message: fmt.Sprintf("The resume has a %d%% match with the job description.", score),
	}, nil
}

func (s *matchService) MatchStored(ctx context.Context, key, jobDescription string) (*domain.MatchResult, error) {
	if s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	if strings.TrimSpace(key) == "" {
		return nil, invalidInput("resume_key is required")
	}
	if strings.TrimSpace(jobDescription) == "" {
		return nil, invalidInput("job_description is required")
	}

	data, err := s.store.Fetch(ctx, key)
	if err != nil {
		return nil, &ProcessingError{Stage: StageFetch, Err: err}
	}
	return s.Match(ctx, data, jobDescription)
}
