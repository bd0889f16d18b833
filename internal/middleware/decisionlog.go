package middleware

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/admission"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/repository"
)

// Buffered channel feeding the batch writer. Decisions are dropped, not
// blocked on, when the buffer is full - the decision log is a downstream
// consumer, never part of the admission path.
var decisionChannel chan models.AdmissionLog

// InitDecisionLogger starts the background worker that batch-inserts
// admission decisions.
func InitDecisionLogger(repo *repository.AdmissionLogRepository, bufferSize int) {
	decisionChannel = make(chan models.AdmissionLog, bufferSize)

	go func() {
		batch := make([]models.AdmissionLog, 0, 100)
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case entry := <-decisionChannel:
				batch = append(batch, entry)

				if len(batch) >= 100 {
					insertBatch(repo, batch)
					batch = make([]models.AdmissionLog, 0, 100)
				}
			case <-ticker.C:
				if len(batch) > 0 {
					insertBatch(repo, batch)
					batch = make([]models.AdmissionLog, 0, 100)
				}
			}
		}
	}()
}

func insertBatch(repo *repository.AdmissionLogRepository, batch []models.AdmissionLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := repo.CreateBatch(ctx, batch); err != nil {
		log.Printf("Failed to insert admission logs: %v", err)
	}
}

func logDecision(req admission.Request, result admission.Result) {
	if decisionChannel == nil {
		return
	}

	var keyID *uuid.UUID
	if result.Key != nil {
		id := result.Key.ID
		keyID = &id
	}

	entry := models.AdmissionLog{
		Timestamp:  time.Now(),
		APIKeyID:   keyID,
		Allowed:    result.Allowed,
		ReasonCode: string(result.Reason),
		Domain:     req.Domain,
		IPAddress:  req.ClientIP,
		Method:     req.Method,
		Path:       req.Path,
		UserAgent:  req.UserAgent,
	}

	select {
	case decisionChannel <- entry:
	default:
		// Full buffer: drop rather than stall a live request.
	}
}
