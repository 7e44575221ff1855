package sourcing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wolfman30/easygopharm/internal/models"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

// S3API is the subset of the S3 client used by ReportArchive.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Report is the archived form of one analysis.
type Report struct {
	ID          string                   `json:"id"`
	DrugName    string                   `json:"drug_name"`
	Notes       string                   `json:"notes,omitempty"`
	Text        string                   `json:"text"`
	Sources     []models.GroundingSource `json:"sources"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// ReportArchive writes sourcing reports to S3. With no bucket it is a no-op.
type ReportArchive struct {
	bucket string
	client S3API
	logger *logging.Logger
}

var _ Archiver = (*ReportArchive)(nil)

// NewReportArchive creates an archive for the given bucket.
func NewReportArchive(client S3API, bucket string, logger *logging.Logger) *ReportArchive {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReportArchive{bucket: bucket, client: client, logger: logger}
}

// Enabled reports whether both a bucket and a client are configured.
func (a *ReportArchive) Enabled() bool {
	return a != nil && a.bucket != "" && a.client != nil
}

// ReportKey is the object key for a report generated at the given time.
func ReportKey(id string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("reports/v1/by-date/%d/%02d/%02d/%s.json", at.Year(), at.Month(), at.Day(), id)
}

// ArchiveReport stores the report as JSON.
func (a *ReportArchive) ArchiveReport(ctx context.Context, report Report) error {
	if !a.Enabled() {
		return nil
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now().UTC()
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("sourcing: marshal report: %w", err)
	}
	key := ReportKey(report.ID, report.GeneratedAt)

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("sourcing: s3 put %s: %w", key, err)
	}

	a.logger.Info("archived sourcing report", "report_id", report.ID, "s3_key", key, "sources", len(report.Sources))
	return nil
}
