package listener

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"toolcost/internal"
	"toolcost/internal/config"
	"toolcost/internal/storage"
)

type stubConnector struct {
	messages []internal.FetchedMailMessage
}

func (s *stubConnector) FetchInbox(_ context.Context, _ string, _ int) ([]internal.FetchedMailMessage, error) {
	return s.messages, nil
}

func quotationMail(t *testing.T, subject, sender, filename, csv string) []byte {
	t.Helper()
	part, err := enmime.Builder().
		From("Supplier", sender).
		To("Buyer", "buyer@example.com").
		Subject(subject).
		Text([]byte("quotation attached")).
		AddAttachment([]byte(csv), "text/csv", filename).
		Build()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, part.Encode(&buf))
	return buf.Bytes()
}

func TestRunCycleExportsComparisonPerSubject(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "tool_cost.db"))
	require.NoError(t, err)
	defer db.Close()

	cfg := config.Config{
		RawMailDir:               filepath.Join(dir, "raw"),
		OutputDir:                filepath.Join(dir, "out"),
		CompareMaxFiles:          5,
		MailListenerProvider:     "imap",
		MailListenerLabel:        "INBOX",
		MailListenerFetchMax:     10,
		MailListenerProcessBatch: 10,
		MailListenerAutoCompare:  true,
	}
	stub := &stubConnector{messages: []internal.FetchedMailMessage{
		{
			Provider: "imap", MessageID: "<a@x>", Subject: "Quote P100", From: "a@x",
			ReceivedAt: "2024-05-01T00:00:00Z",
			Raw:        quotationMail(t, "Quote P100", "a@x", "quote.csv", "#Cavity\nTotal Cost,1000\n"),
		},
		{
			Provider: "imap", MessageID: "<b@y>", Subject: "RE: Quote P100", From: "b@y",
			ReceivedAt: "2024-05-02T00:00:00Z",
			Raw:        quotationMail(t, "RE: Quote P100", "b@y", "quote.csv", "#Cavity\nTotal Cost,900\n"),
		},
		{
			Provider: "imap", MessageID: "<c@z>", Subject: "Lunch", From: "c@z",
			ReceivedAt: "2024-05-03T00:00:00Z",
			Raw:        quotationMail(t, "Lunch", "c@z", "menu.csv", "no modules here\n"),
		},
	}}

	svc := NewService(db, cfg, zap.NewNop())
	svc.connector = stub
	require.NoError(t, svc.RunCycle(context.Background()))

	lunch, err := db.MustEmailByProviderMessageID("imap", "<c@z>")
	require.NoError(t, err)
	require.Equal(t, "skipped", lunch.Status)

	path := filepath.Join(cfg.OutputDir, "listener", "quote_p100.xlsx")
	require.FileExists(t, path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Comparison")
	require.NoError(t, err)
	require.Contains(t, rows, []string{"Field", "quote.csv (a@x)", "quote.csv (b@y)"})

	// nothing new, nothing re-exported
	exported, err := svc.CompareQuotations()
	require.NoError(t, err)
	require.Zero(t, exported)
}

func TestDisplayNames(t *testing.T) {
	rows := []internal.QuotationRow{
		{ID: 1, Filename: "a.csv", Sender: "x"},
		{ID: 2, Filename: "b.csv", Sender: "y"},
		{ID: 3, Filename: "a.csv", Sender: "x"},
	}
	require.Equal(t, []string{"a.csv (x)", "b.csv", "a.csv (x) #2"}, displayNames(rows))
}
