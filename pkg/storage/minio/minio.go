package minio

import (
    "context"
    "fmt"
    "io"

    "github.com/minio/minio-go/v7"
    "github.com/minio/minio-go/v7/pkg/credentials"

    "github.com/moyuteach/lessongen/pkg/logger"
)

// Config MinIO 连接配置
type Config struct {
    Endpoint  string
    AccessKey string
    SecretKey string
    Bucket    string
    Region    string
    UseSSL    bool
}

type MinioStorage struct {
    client     *minio.Client
    bucketName string
    logger     logger.Logger
}

// New 创建 MinIO 存储, 桶不存在时自动建桶
func New(cfg *Config, log logger.Logger) (*MinioStorage, error) {
    client, err := minio.New(cfg.Endpoint, &minio.Options{
        Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
        Secure: cfg.UseSSL,
        Region: cfg.Region,
    })
    if err != nil {
        return nil, fmt.Errorf("failed to create MinIO client: %w", err)
    }

    exists, err := client.BucketExists(context.Background(), cfg.Bucket)
    if err != nil {
        return nil, fmt.Errorf("failed to check bucket existence: %w", err)
    }

    if !exists {
        err = client.MakeBucket(context.Background(), cfg.Bucket, minio.MakeBucketOptions{
            Region: cfg.Region,
        })
        if err != nil {
            return nil, fmt.Errorf("failed to create bucket: %w", err)
        }
    }

    return &MinioStorage{
        client:     client,
        bucketName: cfg.Bucket,
        logger:     log,
    }, nil
}

// Store implements Storage.Store
func (m *MinioStorage) Store(ctx context.Context, reader io.Reader, size int64, key, contentType string) error {
    _, err := m.client.PutObject(ctx, m.bucketName, key, reader, size, minio.PutObjectOptions{
        ContentType: contentType,
    })
    if err != nil {
        m.logger.Error("Failed to store file to MinIO",
            logger.String("bucket", m.bucketName),
            logger.String("key", key),
            logger.Error(err),
        )
        return fmt.Errorf("failed to store file: %w", err)
    }

    return nil
}

// Get implements Storage.Get
func (m *MinioStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
    obj, err := m.client.GetObject(ctx, m.bucketName, key, minio.GetObjectOptions{})
    if err != nil {
        m.logger.Error("Failed to get file from MinIO",
            logger.String("bucket", m.bucketName),
            logger.String("key", key),
            logger.Error(err),
        )
        return nil, fmt.Errorf("failed to get file: %w", err)
    }

    return obj, nil
}

// Delete implements Storage.Delete
func (m *MinioStorage) Delete(ctx context.Context, key string) error {
    err := m.client.RemoveObject(ctx, m.bucketName, key, minio.RemoveObjectOptions{})
    if err != nil {
        m.logger.Error("Failed to delete file from MinIO",
            logger.String("bucket", m.bucketName),
            logger.String("key", key),
            logger.Error(err),
        )
        return fmt.Errorf("failed to delete file: %w", err)
    }

    return nil
}
