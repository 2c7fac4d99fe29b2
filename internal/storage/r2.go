package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// R2Config is the Cloudflare R2 (S3-compatible) bucket used for archives.
type R2Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// Enabled reports whether every field is set.
func (c R2Config) Enabled() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

// ObjectPutter is the slice of the S3 API the archive needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Archive writes generation transcripts as JSON objects.
type R2Archive struct {
	client ObjectPutter
	bucket string
	now    func() time.Time
}

func NewR2Archive(ctx context.Context, cfg R2Config) (*R2Archive, error) {
	if !cfg.Enabled() {
		return nil, errors.New("r2 archive: endpoint, access key, secret key and bucket are required")
	}

	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				"",
			),
		),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return NewArchive(client, cfg.Bucket), nil
}

// NewArchive wraps any S3-compatible client.
func NewArchive(client ObjectPutter, bucket string) *R2Archive {
	return &R2Archive{client: client, bucket: bucket, now: time.Now}
}

// Archive stores doc under generations/YYYY/MM/DD/<cycleID>.json and
// returns the object key. A nil cycle ID gets a fresh one.
func (r *R2Archive) Archive(ctx context.Context, cycleID uuid.UUID, doc []byte) (string, error) {
	if cycleID == uuid.Nil {
		cycleID = uuid.New()
	}

	key := fmt.Sprintf(
		"generations/%s/%s.json",
		r.now().UTC().Format("2006/01/02"),
		cycleID.String(),
	)

	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(doc),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}

	return key, nil
}
