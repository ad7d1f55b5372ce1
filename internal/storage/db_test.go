package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"toolcost/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "tool_cost.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleRecord() map[string]any {
	return map[string]any{
		"tool_type":       "Injection",
		"program_name":    "P100",
		"part_name":       "Bezel",
		"part_version":    "A",
		"quotation_date":  "2024-05-01",
		"supplier_name":   "Acme Mold",
		"cavity_material": "S136",
	}
}

func TestSaveToolCostRejectsMissingFields(t *testing.T) {
	db := openTestDB(t)
	data := sampleRecord()
	delete(data, "part_name")
	data["supplier_name"] = "  "

	_, err := db.SaveToolCost(data)
	var missing *MissingFieldsError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, []string{"part_name", "supplier_name"}, missing.Fields)
	require.Equal(t, "Missing required fields: part_name, supplier_name", err.Error())
}

func TestSaveToolCostDuplicate(t *testing.T) {
	db := openTestDB(t)
	id, err := db.SaveToolCost(sampleRecord())
	require.NoError(t, err)
	require.Positive(t, id)

	_, err = db.SaveToolCost(sampleRecord())
	require.ErrorIs(t, err, ErrDuplicateRecord)
}

func TestToolCostLookupAndDelete(t *testing.T) {
	db := openTestDB(t)
	_, err := db.SaveToolCost(sampleRecord())
	require.NoError(t, err)
	other := sampleRecord()
	other["supplier_name"] = "Beta Tooling"
	_, err = db.SaveToolCost(other)
	require.NoError(t, err)

	opts, err := db.ToolCostOptions()
	require.NoError(t, err)
	require.Equal(t, []string{"Acme Mold", "Beta Tooling"}, opts["supplier_name"])
	require.Equal(t, []string{"P100"}, opts["program_name"])

	keys := map[string]string{
		"tool_type":      "Injection",
		"program_name":   "P100",
		"part_name":      "Bezel",
		"part_version":   "A",
		"quotation_date": "2024-05-01",
		"supplier_name":  "Beta Tooling",
	}
	rec, err := db.GetToolCost(keys)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "Beta Tooling", rec.SupplierName)
	require.Contains(t, rec.DataJSON, `"cavity_material":"S136"`)

	keys["part_version"] = "B"
	rec2, err := db.GetToolCost(keys)
	require.NoError(t, err)
	require.Nil(t, rec2)

	deleted, err := db.DeleteToolCost(rec.ID)
	require.NoError(t, err)
	require.True(t, deleted)
	deleted, err = db.DeleteToolCost(rec.ID)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestQuotationsGroupedBySubject(t *testing.T) {
	db := openTestDB(t)
	email, err := db.UpsertEmail("imap", "<1@example.com>", "Quote P100", "a@example.com", "2024-05-01T00:00:00Z", "h1", "/tmp/1.eml", "fetched")
	require.NoError(t, err)

	for _, name := range []string{"a.csv", "b.csv"} {
		_, err := db.InsertQuotation(internal.QuotationRow{
			EmailID: email.ID, Source: string(internal.SourceEmailAttch), Filename: name,
			Subject: "Quote P100", Content: "#Cavity\nCost,1", Hash: name,
		})
		require.NoError(t, err)
	}
	// same file twice is stored once
	_, err = db.InsertQuotation(internal.QuotationRow{EmailID: email.ID, Source: "email_attachment", Filename: "a.csv", Subject: "Quote P100", Content: "x", Hash: "a.csv"})
	require.NoError(t, err)

	groups, err := db.ListQuotationsBySubject()
	require.NoError(t, err)
	require.Len(t, groups["Quote P100"], 2)
	require.Equal(t, "a.csv", groups["Quote P100"][0].Filename)

	require.NoError(t, db.ReplaceEmailQuotations(email.ID, nil, "skipped"))
	groups, err = db.ListQuotationsBySubject()
	require.NoError(t, err)
	require.Empty(t, groups)
}

func TestReplaceEmailQuotationsIsAllOrNothing(t *testing.T) {
	db := openTestDB(t)
	email, err := db.UpsertEmail("imap", "<2@example.com>", "Quote P200", "a@example.com", "2024-05-01T00:00:00Z", "h2", "/tmp/2.eml", "fetched")
	require.NoError(t, err)
	_, err = db.InsertQuotation(internal.QuotationRow{EmailID: email.ID, Source: "email_attachment", Filename: "old.csv", Subject: "Quote P200", Content: "#Cavity\nCost,1", Hash: "old"})
	require.NoError(t, err)

	_, err = db.conn.Exec(`
CREATE TRIGGER reject_bad BEFORE INSERT ON quotations
WHEN NEW.filename = 'bad.csv'
BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	quote := func(name string) internal.QuotationRow {
		return internal.QuotationRow{Source: "email_attachment", Filename: name, Subject: "Quote P200", Content: "#Core\nCost,2", Hash: name}
	}
	err = db.ReplaceEmailQuotations(email.ID, []internal.QuotationRow{quote("good.csv"), quote("bad.csv")}, "processed")
	require.Error(t, err)

	groups, err := db.ListQuotationsBySubject()
	require.NoError(t, err)
	require.Len(t, groups["Quote P200"], 1)
	require.Equal(t, "old.csv", groups["Quote P200"][0].Filename)
	stored, err := db.MustEmailByProviderMessageID("imap", "<2@example.com>")
	require.NoError(t, err)
	require.Equal(t, "fetched", stored.Status)

	require.NoError(t, db.ReplaceEmailQuotations(email.ID, []internal.QuotationRow{quote("good.csv")}, "processed"))
	groups, err = db.ListQuotationsBySubject()
	require.NoError(t, err)
	require.Len(t, groups["Quote P200"], 1)
	require.Equal(t, "good.csv", groups["Quote P200"][0].Filename)
	require.Equal(t, email.ID, groups["Quote P200"][0].EmailID)
	stored, err = db.MustEmailByProviderMessageID("imap", "<2@example.com>")
	require.NoError(t, err)
	require.Equal(t, "processed", stored.Status)
}

func TestListEmailsByStatusFiltersProviderBeforeLimit(t *testing.T) {
	db := openTestDB(t)
	for i, provider := range []string{"gmail", "gmail", "imap"} {
		id := fmt.Sprintf("<%d@example.com>", i)
		received := fmt.Sprintf("2024-05-0%dT00:00:00Z", i+1)
		_, err := db.UpsertEmail(provider, id, "Quote", "a@example.com", received, "h", "/tmp/x.eml", "fetched")
		require.NoError(t, err)
	}

	rows, err := db.ListEmailsByStatus("fetched", "imap", 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "imap", rows[0].Provider)

	rows, err = db.ListEmailsByStatus("fetched", "", 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "gmail", rows[0].Provider)
}

func TestMetadataRoundTrip(t *testing.T) {
	db := openTestDB(t)
	v, err := db.GetMetadata("missing")
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, db.SetMetadata("k", "1"))
	require.NoError(t, db.SetMetadata("k", "2"))
	v, err = db.GetMetadata("k")
	require.NoError(t, err)
	require.Equal(t, "2", *v)
}
