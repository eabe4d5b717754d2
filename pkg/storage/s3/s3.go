package s3

import (
    "context"
    "fmt"
    "io"

    "github.com/aws/aws-sdk-go-v2/aws"
    awsconfig "github.com/aws/aws-sdk-go-v2/config"
    "github.com/aws/aws-sdk-go-v2/credentials"
    "github.com/aws/aws-sdk-go-v2/service/s3"

    "github.com/moyuteach/lessongen/pkg/logger"
)

// Config S3 连接配置
type Config struct {
    Endpoint  string
    AccessKey string
    SecretKey string
    Bucket    string
    Region    string
}

type S3Storage struct {
    client     *s3.Client
    bucketName string
    region     string
    logger     logger.Logger
}

// New 创建 S3 存储并验证桶存在
func New(cfg *Config, log logger.Logger) (*S3Storage, error) {
    // AWS SDK 配置
    awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
        awsconfig.WithRegion(cfg.Region),
        awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
            cfg.AccessKey,
            cfg.SecretKey,
            "",
        )),
    )
    if err != nil {
        return nil, fmt.Errorf("failed to load AWS config: %w", err)
    }

    client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
        // 自建或兼容网关走自定义 endpoint
        if cfg.Endpoint != "" {
            o.BaseEndpoint = aws.String(cfg.Endpoint)
            o.UsePathStyle = true
        }
    })

    // 验证 bucket 是否存在
    _, err = client.HeadBucket(context.Background(), &s3.HeadBucketInput{
        Bucket: aws.String(cfg.Bucket),
    })
    if err != nil {
        return nil, fmt.Errorf("failed to verify bucket existence: %w", err)
    }

    return &S3Storage{
        client:     client,
        bucketName: cfg.Bucket,
        region:     cfg.Region,
        logger:     log,
    }, nil
}

// Store 实现 Storage 接口的 Store 方法
func (s *S3Storage) Store(ctx context.Context, reader io.Reader, size int64, key, contentType string) error {
    input := &s3.PutObjectInput{
        Bucket:        aws.String(s.bucketName),
        Key:           aws.String(key),
        Body:          reader,
        ContentLength: aws.Int64(size),
    }
    if contentType != "" {
        input.ContentType = aws.String(contentType)
    }

    _, err := s.client.PutObject(ctx, input)
    if err != nil {
        s.logger.Error("Failed to store file to S3",
            logger.String("bucket", s.bucketName),
            logger.String("key", key),
            logger.Error(err),
        )
        return fmt.Errorf("failed to store file: %w", err)
    }

    return nil
}

// Get 实现 Storage 接口的 Get 方法
func (s *S3Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
    input := &s3.GetObjectInput{
        Bucket: aws.String(s.bucketName),
        Key:    aws.String(key),
    }

    result, err := s.client.GetObject(ctx, input)
    if err != nil {
        s.logger.Error("Failed to get file from S3",
            logger.String("bucket", s.bucketName),
            logger.String("key", key),
            logger.Error(err),
        )
        return nil, fmt.Errorf("failed to get file: %w", err)
    }

    return result.Body, nil
}

// Delete 实现 Storage 接口的 Delete 方法
func (s *S3Storage) Delete(ctx context.Context, key string) error {
    input := &s3.DeleteObjectInput{
        Bucket: aws.String(s.bucketName),
        Key:    aws.String(key),
    }

    _, err := s.client.DeleteObject(ctx, input)
    if err != nil {
        s.logger.Error("Failed to delete file from S3",
            logger.String("bucket", s.bucketName),
            logger.String("key", key),
            logger.Error(err),
        )
        return fmt.Errorf("failed to delete file: %w", err)
    }

    return nil
}
