package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// R2Options configures the Cloudflare R2 (S3 API) backend.
type R2Options struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	Prefix          string
	// Endpoint overrides the account endpoint (S3-compatible test servers).
	Endpoint string
}

// R2Store keeps each collection as one JSON object. The object's ETag is the
// version; writes are conditional puts (If-Match / If-None-Match).
type R2Store struct {
	client *s3.Client
	bucket string
	prefix string
}

func OpenR2(ctx context.Context, opts R2Options) (*R2Store, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", opts.AccountID)
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID, opts.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return &R2Store{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

func (s *R2Store) objectKey(collection string) string {
	return s.prefix + collection + ".json"
}

func (s *R2Store) ReadAll(ctx context.Context, collection string) (Snapshot, error) {
	if err := checkCollection(collection); err != nil {
		return Snapshot{}, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(collection)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) || apiErrorCode(err) == "NotFound" {
			return Snapshot{}, nil
		}
		return Snapshot{}, unavailable("get "+collection, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return Snapshot{}, unavailable("read body "+collection, err)
	}
	records, err := unmarshalPayload(body)
	if err != nil {
		return Snapshot{}, unavailable("decode "+collection, err)
	}
	return Snapshot{Records: records, Version: Version(aws.ToString(out.ETag))}, nil
}

func (s *R2Store) WriteAll(ctx context.Context, collection string, records []json.RawMessage, expected Version) (Version, error) {
	if err := checkCollection(collection); err != nil {
		return "", err
	}
	payload, err := marshalPayload(records)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", collection, err)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(collection)),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	}
	if expected == "" {
		input.IfNoneMatch = aws.String("*")
	} else {
		input.IfMatch = aws.String(string(expected))
	}

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		switch apiErrorCode(err) {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return "", ErrConflict
		}
		return "", unavailable("put "+collection, err)
	}
	return Version(aws.ToString(out.ETag)), nil
}

func (s *R2Store) Close() error { return nil }

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
