package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/boatlog/internal/common"
	sc "github.com/dmitrijs2005/boatlog/internal/server/config"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// PhotoService hands out presigned S3 PUT URLs so clients upload photo files
// straight to object storage.
type PhotoService struct {
	config *sc.Config
	expiry time.Duration
}

func NewPhotoService(cfg *sc.Config) *PhotoService {
	expiry := cfg.PhotoURLExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &PhotoService{config: cfg, expiry: expiry}
}

// PhotoKey is the object key of a user's photo. Uploading the same photo
// twice overwrites the object.
func PhotoKey(userID, photoID string) string {
	return fmt.Sprintf("users/%s/photos/%s", userID, photoID)
}

func (s *PhotoService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// UploadURL returns the object key and a presigned PUT URL for the photo.
func (s *PhotoService) UploadURL(ctx context.Context, userID, photoID string) (string, string, error) {
	if strings.TrimSpace(photoID) == "" || strings.ContainsAny(photoID, "/\\") {
		return "", "", fmt.Errorf("%w: invalid photo id", common.ErrValidation)
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := PhotoKey(userID, photoID)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}
