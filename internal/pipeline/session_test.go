package pipeline

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"toolcost/internal"
)

func csvUpload(name, content string) Upload {
	return BytesUpload(name, "text/csv", []byte(content))
}

func TestSessionAddFilters(t *testing.T) {
	s := NewSession(3, "test", zap.NewNop())

	require.True(t, s.Add(csvUpload("a.csv", "")))
	require.False(t, s.Add(csvUpload("a.csv", "")), "duplicate name")
	require.False(t, s.Add(BytesUpload("notes.txt", "text/plain", nil)))
	require.True(t, s.Add(BytesUpload("export", "text/csv", nil)), "csv mime without suffix")
	require.True(t, s.Add(BytesUpload("B.CSV", "", nil)), "suffix is case-insensitive")
	require.False(t, s.Add(csvUpload("d.csv", "")), "beyond the cap")
	require.Len(t, s.Uploads(), 3)

	s.Remove(0)
	s.Remove(10)
	require.Len(t, s.Uploads(), 2)
	require.Equal(t, "export", s.Uploads()[0].Name)

	s.Clear()
	require.Empty(t, s.Uploads())
	require.False(t, s.CanCompare())
}

func TestSessionCompareTooFewFiles(t *testing.T) {
	opened := false
	s := NewSession(5, "test", zap.NewNop())
	s.Add(Upload{Name: "a.csv", Open: func() (io.ReadCloser, error) {
		opened = true
		return nil, errors.New("unreachable")
	}})

	_, err := s.Compare()
	require.ErrorIs(t, err, ErrTooFewFiles)
	require.False(t, opened, "files are not read before the count check")
}

func TestSessionCompareKeepsDocumentsOnReadError(t *testing.T) {
	s := NewSession(5, "test", zap.NewNop())
	s.Add(csvUpload("a.csv", "#Cavity\nTotal Cost,1000\n"))
	s.Add(csvUpload("b.csv", "#Cavity\nTotal Cost,1200\n"))

	view, err := s.Compare()
	require.NoError(t, err)
	require.Equal(t, []string{"a.csv", "b.csv"}, view.Filenames)
	require.Len(t, s.Documents(), 2)

	s.Add(Upload{Name: "broken.csv", Open: func() (io.ReadCloser, error) {
		return nil, errors.New("permission denied")
	}})
	_, err = s.Compare()

	var readErr *FileReadError
	require.True(t, errors.As(err, &readErr))
	require.Equal(t, "broken.csv", readErr.Filename)
	require.Contains(t, err.Error(), "failed to read file: broken.csv")

	docs := s.Documents()
	require.Len(t, docs, 2)
	require.Equal(t, "a.csv", docs[0].Filename)
}

func TestSessionCompareEndToEnd(t *testing.T) {
	s := NewSession(DefaultMaxFiles, "test", nil)
	s.Add(csvUpload("a.csv", "#Cavity\n"+ComponentTableHeader+"\nCavity,S136,Nitriding,2,10,20\n"))
	s.Add(csvUpload("b.csv", "\xef\xbb\xbf#Cavity\nCavity,NAK80,,2,15,30\n"))

	view, err := s.Compare()
	require.NoError(t, err)
	require.Len(t, view.Modules, 1)

	var unit internal.ComparisonRow
	for _, row := range view.Modules[0].Rows {
		if row.Label == "Cavity Unit Cost(RMB)" {
			unit = row
		}
	}
	require.Equal(t, "10", unit.Cells[0].Value)
	require.Equal(t, internal.MarkMin, unit.Cells[0].Mark)
	require.Equal(t, "15", unit.Cells[1].Value)
	require.Equal(t, internal.MarkMax, unit.Cells[1].Mark)
}
