// Package archive keeps an immutable copy of every assigned workflow in S3.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/herdline/reprohub/clinical-hub/internal/models"
)

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Archiver writes workflow snapshots to
//
//	s3://<bucket>/<prefix>/workflows/YYYY/MM/DD/<decisionID>.json
//
// dated by the decision timestamp.
type S3Archiver struct {
	bucket   string
	prefix   string
	uploader uploader
}

// NewS3Archiver loads AWS settings from the environment (AWS_REGION,
// AWS_PROFILE, static keys) the way the SDK does by default.
func NewS3Archiver(ctx context.Context, bucket, prefix string) (*S3Archiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	cfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Archiver{
		bucket:   bucket,
		prefix:   prefix,
		uploader: manager.NewUploader(s3.NewFromConfig(cfg)),
	}, nil
}

// ObjectKey is where the snapshot of a decision is stored.
func (s *S3Archiver) ObjectKey(d models.WorkflowDecision) string {
	ts := d.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	year, month, day := ts.UTC().Date()
	return path.Join(s.prefix, "workflows",
		fmt.Sprintf("%04d", year),
		fmt.Sprintf("%02d", int(month)),
		fmt.Sprintf("%02d", day),
		fmt.Sprintf("%s.json", d.ID),
	)
}

func (s *S3Archiver) ArchiveWorkflow(ctx context.Context, status models.WorkflowStatus) error {
	body, err := MarshalCanonical(status)
	if err != nil {
		return err
	}
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(s.ObjectKey(status.Decision)),
		Body:                 bytes.NewReader(body),
		ContentType:          aws.String("application/json"),
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}
	return nil
}
