package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/airframesio/databricks-mcp/cmd/formatters"
	"github.com/airframesio/databricks-mcp/cmd/tools"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	awssession "github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

const resultObjectName = "result.json"

// uploader is the part of s3manager.Uploader used by the exporter
type uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// Exporter uploads the artifacts of a comparison run to S3.
type Exporter struct {
	bucket   string
	template *PathTemplate
	uploader uploader
	now      func() time.Time
}

// NewExporter creates an S3 session from the configuration.
func NewExporter(config S3Config) (*Exporter, error) {
	awsConfig := &aws.Config{
		Endpoint:         aws.String(config.Endpoint),
		Credentials:      credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	}
	if config.Region != "" && config.Region != regionAuto {
		awsConfig.Region = aws.String(config.Region)
	} else {
		awsConfig.Region = aws.String("us-east-1")
	}

	sess, err := awssession.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}

	return newExporter(config, s3manager.NewUploader(sess)), nil
}

func newExporter(config S3Config, up uploader) *Exporter {
	template := config.PathTemplate
	if template == "" {
		template = defaultPathTemplate
	}
	return &Exporter{
		bucket:   config.Bucket,
		template: NewPathTemplate(template),
		uploader: up,
		now:      time.Now,
	}
}

// Export uploads both retained snapshots and the JSON response under the
// run's key prefix and returns the uploaded keys.
func (e *Exporter) Export(ctx context.Context, resp *tools.CompareResponse) ([]string, error) {
	prefix := e.template.Generate(resp.RunID, resp.Table1, resp.Table2, e.now())

	var keys []string
	for _, snapshotPath := range []string{resp.CSVPath1, resp.CSVPath2} {
		// removed snapshots are not uploaded
		if _, err := os.Stat(snapshotPath); err != nil {
			continue
		}
		key := path.Join(prefix, filepath.Base(snapshotPath))
		if err := e.uploadFile(ctx, snapshotPath, key); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}

	var buf bytes.Buffer
	if err := writeJSON(&buf, resp); err != nil {
		return keys, err
	}
	key := path.Join(prefix, resultObjectName)
	if err := e.upload(ctx, &buf, key, "application/json"); err != nil {
		return keys, err
	}
	keys = append(keys, key)

	return keys, nil
}

func (e *Exporter) uploadFile(ctx context.Context, filePath, key string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return &formatters.IOError{Op: "open", Path: filePath, Err: err}
	}
	defer f.Close()

	return e.upload(ctx, f, key, contentType(filePath))
}

// contentType uses the formatter's MIME type for plain snapshots. Compressed
// snapshots are opaque.
func contentType(filePath string) string {
	format := strings.TrimPrefix(filepath.Ext(filePath), ".")
	if f, err := formatters.GetFormatter(format); err == nil {
		return f.MIMEType()
	}
	return "application/octet-stream"
}

func (e *Exporter) upload(ctx context.Context, body io.Reader, key, contentType string) error {
	_, err := e.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return &formatters.IOError{Op: "upload", Path: "s3://" + e.bucket + "/" + key, Err: err}
	}
	return nil
}
