package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"promise-tracker/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// HostedMedia beschreibt ein hochgeladenes Objekt.
type HostedMedia struct {
	URL        string
	ExternalID string
	Kind       string
}

// S3API ist der Teil des S3-Clients, den der MediaHost benötigt.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewS3Client erstellt einen S3-Client für einen S3-kompatiblen Endpunkt.
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.S3URL,
				SigningRegion:     cfg.S3Region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3Key, cfg.S3Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg), nil
}

// S3MediaHost legt Beweismedien in einem Bucket ab.
type S3MediaHost struct {
	Client  S3API
	Bucket  string
	BaseURL string
	Prefix  string
}

func NewS3MediaHost(client S3API, bucket, baseURL string) *S3MediaHost {
	return &S3MediaHost{Client: client, Bucket: bucket, BaseURL: strings.TrimRight(baseURL, "/"), Prefix: "evidence"}
}

// Upload lädt eine Datei ins S3 hoch und gibt den öffentlichen Link zurück.
// kind ist die grobe Ressourcenart (image, video, raw).
func (h *S3MediaHost) Upload(ctx context.Context, data []byte, contentType, ext, kind string) (*HostedMedia, error) {
	key := path.Join(h.Prefix, kind, uuid.NewString()+ext)
	_, err := h.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 upload %s: %w", key, err)
	}
	return &HostedMedia{
		URL:        fmt.Sprintf("%s/%s", h.BaseURL, key),
		ExternalID: key,
		Kind:       kind,
	}, nil
}

// Delete entfernt ein Objekt. kind ist bei S3 bereits im Schlüssel enthalten.
func (h *S3MediaHost) Delete(ctx context.Context, externalID, kind string) error {
	_, err := h.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.Bucket),
		Key:    aws.String(externalID),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s (%s): %w", externalID, kind, err)
	}
	return nil
}
