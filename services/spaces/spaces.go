// Package spaces reads and writes dataset files on DigitalOcean Spaces (or
// any S3 compatible store).
package spaces

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

const schemePrefix = "s3://"

var (
	// ErrNotObjectURL is returned for locations without the s3:// scheme
	ErrNotObjectURL = errors.New("not an s3:// object url")
)

// SpacesClient handles DigitalOcean Spaces operations
type SpacesClient struct {
	s3Client *s3.S3
	endpoint string
}

// SpacesConfig holds configuration for Spaces client
type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string
	// PathStyle addresses buckets as endpoint/bucket (MinIO, local fakes)
	PathStyle bool
}

// NewSpacesClient creates a new Spaces client
func NewSpacesClient(config SpacesConfig) (*SpacesClient, error) {
	awsConfig := &aws.Config{
		Region:           aws.String(config.Region),
		S3ForcePathStyle: aws.Bool(config.PathStyle),
	}
	if config.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, "")
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spaces session: %w", err)
	}

	return &SpacesClient{
		s3Client: s3.New(sess),
		endpoint: config.Endpoint,
	}, nil
}

// IsObjectURL reports whether location names an object (s3://bucket/key)
func IsObjectURL(location string) bool {
	return strings.HasPrefix(location, schemePrefix)
}

// ParseObjectURL splits s3://bucket/key into bucket and key
func ParseObjectURL(location string) (bucket, key string, err error) {
	if !IsObjectURL(location) {
		return "", "", fmt.Errorf("%w: %q", ErrNotObjectURL, location)
	}
	rest := strings.TrimPrefix(location, schemePrefix)
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid object url %q: expected s3://bucket/key", location)
	}
	return bucket, key, nil
}

// Open streams an object. The caller closes the returned reader.
func (s *SpacesClient) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, err := ParseObjectURL(location)
	if err != nil {
		return nil, err
	}

	result, err := s.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", location, err)
	}
	return result.Body, nil
}

// UploadBytes writes data to location
func (s *SpacesClient) UploadBytes(ctx context.Context, location string, data []byte, contentType string) error {
	bucket, key, err := ParseObjectURL(location)
	if err != nil {
		return err
	}

	_, err = s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", location, err)
	}
	return nil
}

// FileExists checks if an object exists
func (s *SpacesClient) FileExists(ctx context.Context, location string) (bool, error) {
	bucket, key, err := ParseObjectURL(location)
	if err != nil {
		return false, err
	}

	_, err = s.s3Client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.RequestFailure
		if errors.As(err, &aerr) && aerr.StatusCode() == 404 {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", location, err)
	}
	return true, nil
}
