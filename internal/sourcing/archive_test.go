package sourcing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/easygopharm/internal/models"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

type fakeS3 struct {
	puts map[string][]byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func TestReportArchive_WritesDatedKey(t *testing.T) {
	client := &fakeS3{}
	archive := NewReportArchive(client, "egp-reports", logging.Discard())
	require.True(t, archive.Enabled())

	report := Report{
		ID:          "r-1",
		DrugName:    "Nitisinone",
		Text:        "report",
		Sources:     []models.GroundingSource{{Title: "FDA", URI: "https://fda.gov"}},
		GeneratedAt: time.Date(2026, 2, 3, 23, 0, 0, 0, time.UTC),
	}
	require.NoError(t, archive.ArchiveReport(context.Background(), report))

	data, ok := client.puts["egp-reports/reports/v1/by-date/2026/02/03/r-1.json"]
	require.True(t, ok)
	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report.Sources, decoded.Sources)
}

func TestReportArchive_DisabledAndErrors(t *testing.T) {
	assert.False(t, NewReportArchive(&fakeS3{}, "", nil).Enabled())
	assert.False(t, NewReportArchive(nil, "bucket", nil).Enabled())
	assert.NoError(t, NewReportArchive(nil, "", nil).ArchiveReport(context.Background(), Report{ID: "x"}))

	failing := NewReportArchive(&fakeS3{err: errors.New("denied")}, "b", logging.Discard())
	assert.ErrorContains(t, failing.ArchiveReport(context.Background(), Report{ID: "x"}), "denied")
}
