package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"toolcost/internal"
	"toolcost/internal/config"
	"toolcost/internal/metrics"
	"toolcost/internal/storage"
	"toolcost/internal/util"
)

type ProcessingService struct {
	db     *storage.DB
	cfg    config.Config
	logger *zap.Logger
}

func NewProcessingService(db *storage.DB, cfg config.Config, logger *zap.Logger) *ProcessingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessingService{db: db, cfg: cfg, logger: logger}
}

type ProcessResult struct {
	EmailID    int
	Quotations int
}

func (s *ProcessingService) ProcessByProviderMessageID(provider, messageID string) (ProcessResult, error) {
	email, err := s.db.MustEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessEmail(email)
}

// ProcessPending handles up to limit fetched emails and returns how many
// emails and quotations were processed.
func (s *ProcessingService) ProcessPending(limit int, provider string) (int, int, error) {
	pending, err := s.db.ListEmailsByStatus("fetched", provider, limit)
	if err != nil {
		return 0, 0, err
	}
	processedEmails := 0
	quotations := 0
	for _, email := range pending {
		res, err := s.ProcessEmail(email)
		if err != nil {
			return processedEmails, quotations, err
		}
		processedEmails++
		quotations += res.Quotations
	}
	return processedEmails, quotations, nil
}

func (s *ProcessingService) ProcessEmail(email internal.EmailRow) (ProcessResult, error) {
	start := time.Now()
	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}

	subject, found, err := ExtractQuotationsFromEmailRaw(raw)
	if err != nil {
		return ProcessResult{}, err
	}
	subject = util.FirstNonEmpty(subject, email.Subject)

	var quotes []internal.QuotationRow
	for _, q := range found {
		doc := ParseDocument(q.Filename, q.Text)
		observeDocument(s.logger, doc, q.Source)
		if !HasContent(doc) {
			s.logger.Debug("attachment has no quotation modules",
				zap.Int("email_id", email.ID), zap.String("filename", q.Filename))
			continue
		}
		sum := sha256.Sum256([]byte(q.Text))
		quotes = append(quotes, internal.QuotationRow{
			EmailID:  email.ID,
			Source:   string(q.Source),
			Filename: q.Filename,
			Subject:  subject,
			Sender:   email.Sender,
			Content:  q.Text,
			Hash:     hex.EncodeToString(sum[:]),
		})
	}
	stored := len(quotes)

	status := "processed"
	if stored == 0 {
		status = "skipped"
	}
	if err := s.db.ReplaceEmailQuotations(email.ID, quotes, status); err != nil {
		return ProcessResult{}, err
	}

	traceID := uuid.NewString()
	timings := map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())}
	counts := map[string]int{"candidates": len(found), "quotations": stored}
	if err := s.db.InsertRun(traceID, email.ID, timings, counts); err != nil {
		s.logger.Warn("record run", zap.Error(err))
	}
	metrics.EmailsProcessed.WithLabelValues(status).Inc()
	s.logger.Info("email processed",
		zap.String("trace_id", traceID),
		zap.Int("email_id", email.ID),
		zap.String("status", status),
		zap.Int("quotations", stored))

	return ProcessResult{EmailID: email.ID, Quotations: stored}, nil
}
