package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string
	Bucket    string
}

// TranscriptRecord is the archived form of a transcript.
type TranscriptRecord struct {
	VideoID   string    `json:"video_id"`
	URL       string    `json:"url"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Archive stores transcripts outside the database.
type Archive interface {
	SaveTranscript(ctx context.Context, record TranscriptRecord) error
	GetTranscript(ctx context.Context, videoID string) (*TranscriptRecord, error)
}

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// SpacesClient archives transcripts in an S3-compatible bucket such as DigitalOcean Spaces.
type SpacesClient struct {
	client objectAPI
	bucket string
}

func NewSpacesClient(ctx context.Context, cfg SpacesConfig) (*SpacesClient, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &SpacesClient{client: client, bucket: cfg.Bucket}, nil
}

func transcriptKey(videoID string) string {
	return fmt.Sprintf("transcripts/%s.json", videoID)
}

func (s *SpacesClient) SaveTranscript(ctx context.Context, record TranscriptRecord) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	jsonData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(transcriptKey(record.VideoID)),
		Body:        bytes.NewReader(jsonData),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to save to Spaces: %w", err)
	}

	return nil
}

func (s *SpacesClient) GetTranscript(ctx context.Context, videoID string) (*TranscriptRecord, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(transcriptKey(videoID)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get from Spaces: %w", err)
	}
	defer result.Body.Close()

	var record TranscriptRecord
	if err := json.NewDecoder(result.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to decode transcript: %w", err)
	}

	return &record, nil
}
