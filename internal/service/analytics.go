package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/repository"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/storage"
)

// AnalyticsService summarizes recorded admission decisions for the admin
// dashboard. It is a read-side consumer of the decision log; the admission
// core never depends on it.
type AnalyticsService struct {
	db         *storage.Postgres
	repository *repository.AdmissionLogRepository
	usage      *repository.UsageRepository
}

func NewAnalyticsService(db *storage.Postgres, repo *repository.AdmissionLogRepository, usage *repository.UsageRepository) *AnalyticsService {
	return &AnalyticsService{
		db:         db,
		repository: repo,
		usage:      usage,
	}
}

// DecisionSummary aggregates admission outcomes over a time range.
type DecisionSummary struct {
	TotalRequests int64                    `json:"total_requests"`
	Denials       []repository.ReasonCount `json:"denials_by_reason"`
	TopKeys       []repository.KeyCount    `json:"top_keys"`
	DenialRate    float64                  `json:"denial_rate"`
}

func (s *AnalyticsService) GetSummary(ctx context.Context, from, to time.Time) (*DecisionSummary, error) {
	summary := &DecisionSummary{}

	total, err := s.repository.CountByTimeRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	summary.TotalRequests = total

	if total == 0 {
		return summary, nil
	}

	reasons, err := s.repository.CountByReason(ctx, from, to)
	if err != nil {
		return nil, err
	}

	var denied int64
	summary.Denials = make([]repository.ReasonCount, 0, len(reasons))
	for _, rc := range reasons {
		if rc.ReasonCode != "ALLOWED" {
			summary.Denials = append(summary.Denials, rc)
			denied += rc.Count
		}
	}
	summary.DenialRate = float64(denied) / float64(total)

	summary.TopKeys, err = s.repository.TopKeys(ctx, from, to, 10)
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// KeyActivity returns the raw decision trail for one key.
func (s *AnalyticsService) KeyActivity(ctx context.Context, keyID uuid.UUID, from, to time.Time, limit, offset int) ([]models.AdmissionLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	return s.repository.FindByAPIKey(ctx, keyID, from, to, limit, offset)
}

// KeyQuota reports the key's current monthly ledger.
func (s *AnalyticsService) KeyQuota(ctx context.Context, keyID uuid.UUID) (*models.MonthlyUsage, error) {
	month := time.Now().UTC().Format(models.MonthYearLayout)
	return s.usage.FindByKeyAndMonth(ctx, keyID, month)
}
