package storage

import (
    "context"
    "fmt"
    "io"

    "github.com/moyuteach/lessongen/pkg/logger"
    "github.com/moyuteach/lessongen/pkg/storage/minio"
    "github.com/moyuteach/lessongen/pkg/storage/s3"
)

// StorageType 定义存储类型
type StorageType string

const (
    StorageTypeS3    StorageType = "s3"
    StorageTypeMinio StorageType = "minio"
)

// Config 对象存储配置, 由调用方注入
type Config struct {
    Type      string `yaml:"type"`
    Endpoint  string `yaml:"endpoint"`
    AccessKey string `yaml:"accessKey"`
    SecretKey string `yaml:"secretKey"`
    Bucket    string `yaml:"bucket"`
    Region    string `yaml:"region"`
    UseSSL    bool   `yaml:"useSSL"`
}

// Storage 接口定义
type Storage interface {
    // Store 按给定的对象键写入文件
    Store(ctx context.Context, reader io.Reader, size int64, key, contentType string) error
    // Get 获取文件
    Get(ctx context.Context, key string) (io.ReadCloser, error)
    // Delete 删除文件
    Delete(ctx context.Context, key string) error
}

// NewStorage 创建存储实例的工厂方法
func NewStorage(cfg *Config, log logger.Logger) (Storage, error) {
    switch StorageType(cfg.Type) {
    case StorageTypeS3:
        return s3.New(&s3.Config{
            Endpoint:  cfg.Endpoint,
            AccessKey: cfg.AccessKey,
            SecretKey: cfg.SecretKey,
            Bucket:    cfg.Bucket,
            Region:    cfg.Region,
        }, log)
    case StorageTypeMinio:
        return minio.New(&minio.Config{
            Endpoint:  cfg.Endpoint,
            AccessKey: cfg.AccessKey,
            SecretKey: cfg.SecretKey,
            Bucket:    cfg.Bucket,
            Region:    cfg.Region,
            UseSSL:    cfg.UseSSL,
        }, log)
    default:
        return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
    }
}
