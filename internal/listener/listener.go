package listener

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"toolcost/internal"
	"toolcost/internal/config"
	"toolcost/internal/connectors"
	gmailconnector "toolcost/internal/connectors/gmail"
	imapconnector "toolcost/internal/connectors/imap"
	"toolcost/internal/metrics"
	"toolcost/internal/pipeline"
	"toolcost/internal/storage"
	"toolcost/internal/util"
)

const compareCountKey = "listener.compare."

type Service struct {
	db     *storage.DB
	cfg    config.Config
	logger *zap.Logger

	// connector overrides the configured provider when set.
	connector connectors.MailConnector
}

func NewService(db *storage.DB, cfg config.Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, cfg: cfg, logger: logger}
}

// NewMailConnector builds the connector for a provider name.
func NewMailConnector(ctx context.Context, provider string, cfg config.Config) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.MailListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	s.logger.Info("mail listener started",
		zap.String("provider", s.provider()),
		zap.String("label", s.cfg.MailListenerLabel),
		zap.Duration("interval", interval))

	for {
		if err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("listener cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			s.logger.Info("mail listener stopped")
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) provider() string {
	return strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
}

// RunCycle fetches new mail, turns it into stored quotations and, when
// enabled, refreshes the comparison workbook of every subject that gained
// quotations.
func (s *Service) RunCycle(ctx context.Context) error {
	provider := s.provider()
	mailConnector := s.connector
	if mailConnector == nil {
		var err error
		mailConnector, err = NewMailConnector(ctx, provider, s.cfg)
		if err != nil {
			return err
		}
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector, s.logger)
	fetchResult, err := fetchService.FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return err
	}

	processor := pipeline.NewProcessingService(s.db, s.cfg, s.logger)
	processedEmails, quotations, err := processor.ProcessPending(s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return err
	}

	exported := 0
	if s.cfg.MailListenerAutoCompare {
		exported, err = s.CompareQuotations()
		if err != nil {
			return err
		}
	}

	s.logger.Info("listener cycle done",
		zap.String("provider", provider),
		zap.Int("fetched", fetchResult.Fetched),
		zap.Int("stored", fetchResult.Stored),
		zap.Int("processed", processedEmails),
		zap.Int("quotations", quotations),
		zap.Int("exported", exported))
	return nil
}

// CompareQuotations exports one workbook per subject that has at least two
// quotations and changed since its last export. Only the newest
// CompareMaxFiles quotations of a subject are compared.
func (s *Service) CompareQuotations() (int, error) {
	stored, err := s.db.ListQuotationsBySubject()
	if err != nil {
		return 0, err
	}

	groups := map[string][]internal.QuotationRow{}
	for subject, rows := range stored {
		key := util.NormalizeSubject(subject)
		groups[key] = append(groups[key], rows...)
	}

	subjects := make([]string, 0, len(groups))
	for subject := range groups {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	exported := 0
	for _, subject := range subjects {
		rows := groups[subject]
		if len(rows) < 2 {
			continue
		}
		count := strconv.Itoa(len(rows))
		last, err := s.db.GetMetadata(compareCountKey + subject)
		if err != nil {
			return exported, err
		}
		if last != nil && *last == count {
			continue
		}

		path, err := s.exportGroup(subject, rows)
		if err != nil {
			return exported, err
		}
		if err := s.db.SetMetadata(compareCountKey+subject, count); err != nil {
			return exported, err
		}
		exported++
		s.logger.Info("comparison exported",
			zap.String("subject", subject),
			zap.Int("quotations", len(rows)),
			zap.String("path", path))
	}
	return exported, nil
}

func (s *Service) exportGroup(subject string, rows []internal.QuotationRow) (string, error) {
	start := time.Now()
	defer func() {
		metrics.ComparisonDuration.WithLabelValues("listener").Observe(time.Since(start).Seconds())
	}()

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	limit := s.cfg.CompareMaxFiles
	if limit <= 0 {
		limit = pipeline.DefaultMaxFiles
	}
	if len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}

	names := displayNames(rows)
	docs := make([]internal.Document, 0, len(rows))
	for i, q := range rows {
		docs = append(docs, pipeline.ParseDocument(names[i], q.Content))
	}

	view, err := pipeline.BuildView(docs)
	if err != nil {
		metrics.ComparisonsTotal.WithLabelValues("listener", "failed").Inc()
		return "", err
	}
	path := filepath.Join(s.cfg.OutputDir, "listener", util.SanitizeFilename(subject)+".xlsx")
	if err := pipeline.ExportViewToXLSX(view, path); err != nil {
		metrics.ComparisonsTotal.WithLabelValues("listener", "failed").Inc()
		return "", err
	}
	metrics.ComparisonsTotal.WithLabelValues("listener", "ok").Inc()
	return path, nil
}

// displayNames labels each quotation by filename, adding the sender when
// several quotations share a filename.
func displayNames(rows []internal.QuotationRow) []string {
	counts := map[string]int{}
	for _, q := range rows {
		counts[q.Filename]++
	}
	names := make([]string, len(rows))
	used := map[string]int{}
	for i, q := range rows {
		name := q.Filename
		if counts[name] > 1 {
			name = fmt.Sprintf("%s (%s)", q.Filename, util.FirstNonEmpty(q.Sender, "#"+strconv.Itoa(q.ID)))
		}
		used[name]++
		if used[name] > 1 {
			name = fmt.Sprintf("%s #%d", name, used[name])
		}
		names[i] = name
	}
	return names
}
