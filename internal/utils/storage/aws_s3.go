package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"

	"github.com/nocap-app/nocap-backend/internal/utils"
)

var (
	AllowImage = []string{"image/jpeg", "image/png", "image/webp"}
	AllowVideo = []string{"video/mp4", "video/webm"}
	AllowMedia = append(append([]string{}, AllowImage...), AllowVideo...)
)

// MaxUploadSize caps scan uploads at 50 MiB.
const MaxUploadSize = 50 << 20

var (
	ErrContentTypeNotAllowed = fmt.Errorf("content type not allowed")
	ErrFileTooLarge          = fmt.Errorf("file exceeds maximum upload size")
)

type (
	AwsS3 interface {
		UploadFile(fileName string, file *multipart.FileHeader, folder string, allowedTypes ...string) (string, error)
		UpdateFile(objectKey string, file *multipart.FileHeader, allowedTypes ...string) (string, error)
		DeleteFile(objectKey string) error
		GetPublicLinkKey(objectKey string) string
		GetObjectKeyFromLink(link string) string
	}

	awsS3 struct {
		client *s3.Client
		bucket string
		region string
	}
)

func NewAwsS3() AwsS3 {
	utils.LoadConfig()
	region := utils.GetConfig("AWS_S3_REGION")

	cfg, err := awsconfig.LoadDefaultConfig(
		context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			utils.GetConfig("AWS_ACCESS_KEY"),
			utils.GetConfig("AWS_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		log.Fatalf("error loading AWS config: %v", err)
	}

	return &awsS3{
		client: s3.NewFromConfig(cfg),
		bucket: utils.GetConfig("AWS_S3_BUCKET"),
		region: region,
	}
}

func checkContentType(file *multipart.FileHeader, allowedTypes []string) (string, error) {
	contentType := file.Header.Get("Content-Type")
	if len(allowedTypes) == 0 {
		return contentType, nil
	}
	for _, allowed := range allowedTypes {
		if contentType == allowed {
			return contentType, nil
		}
	}
	return "", ErrContentTypeNotAllowed
}

func (a *awsS3) putObject(objectKey string, file *multipart.FileHeader, contentType string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	_, err = a.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(objectKey),
		Body:          src,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(file.Size),
	})
	return err
}

func (a *awsS3) UploadFile(fileName string, file *multipart.FileHeader, folder string, allowedTypes ...string) (string, error) {
	if file.Size > MaxUploadSize {
		return "", ErrFileTooLarge
	}

	contentType, err := checkContentType(file, allowedTypes)
	if err != nil {
		return "", err
	}

	ext := filepath.Ext(file.Filename)
	objectKey := fmt.Sprintf("%s/%s-%d%s", folder, fileName, time.Now().UnixMilli(), ext)

	if err := a.putObject(objectKey, file, contentType); err != nil {
		return "", err
	}
	return objectKey, nil
}

func (a *awsS3) UpdateFile(objectKey string, file *multipart.FileHeader, allowedTypes ...string) (string, error) {
	if file.Size > MaxUploadSize {
		return "", ErrFileTooLarge
	}

	contentType, err := checkContentType(file, allowedTypes)
	if err != nil {
		return "", err
	}

	if err := a.putObject(objectKey, file, contentType); err != nil {
		return "", err
	}
	return objectKey, nil
}

func (a *awsS3) DeleteFile(objectKey string) error {
	_, err := a.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objectKey),
	})
	return err
}

func (a *awsS3) GetPublicLinkKey(objectKey string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", a.bucket, a.region, objectKey)
}

func (a *awsS3) GetObjectKeyFromLink(link string) string {
	prefix := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", a.bucket, a.region)
	if !strings.HasPrefix(link, prefix) {
		return ""
	}
	return strings.TrimPrefix(link, prefix)
}
