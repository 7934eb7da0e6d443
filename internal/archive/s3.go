// Package archive keeps a copy of every generated report in object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"attendance-ledger/internal/config"
	"attendance-ledger/internal/models"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

const keyPrefix = "reports"

// Key is the object key a report generated at t is stored under.
func Key(filename string, t time.Time) string {
	return path.Join(keyPrefix, t.Format(models.DateLayout), filename)
}

type S3Archive struct {
	client s3iface.S3API
	bucket string
}

func NewS3Archive(cfg config.Archive) (*S3Archive, error) {
	const op = "archive.NewS3Archive"

	awsCfg := &aws.Config{
		Region:           aws.String(cfg.Region),
		DisableSSL:       aws.Bool(!cfg.UseSSL),
		S3ForcePathStyle: aws.Bool(true),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &S3Archive{client: s3.New(sess), bucket: cfg.Bucket}, nil
}

// Store uploads data under key.
func (a *S3Archive) Store(ctx context.Context, key, contentType string, data []byte) error {
	const op = "archive.S3Archive.Store"

	_, err := a.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
