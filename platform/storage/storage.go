package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"go_datachat_backend/config"
	"go_datachat_backend/models"
	"go_datachat_backend/pkg/logging"
	"go_datachat_backend/utils"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
)

// Service stores conversation share snapshots in MinIO or S3.
type Service struct {
	Client       *minio.Client
	Config       *minio.Options
	Bucket       string
	StorageType  string
	KeyGenerator *utils.ShareKeyGenerator
}

func InitStorageService(cfg *config.Config) (*Service, error) {
	var minioClient *minio.Client
	var err error

	switch cfg.StorageType {
	case "minio":
		minioClient, err = utils.CreateMinIOClient(cfg)
	case "s3":
		minioClient, err = utils.CreateS3Client(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
	}
	if err != nil {
		logging.Logger.Error("fail InitStorageService", "error", err)
		return nil, err
	}

	keyGenerator := utils.NewShareKeyGenerator(utils.StrategyDateBased, "shares")
	ss := &Service{
		Client:       minioClient,
		Config:       &minio.Options{Region: cfg.BucketRegion},
		Bucket:       cfg.BucketName,
		StorageType:  cfg.StorageType,
		KeyGenerator: keyGenerator,
	}
	if err := ss.EnsureBucketExists(); err != nil {
		logging.Logger.Error("fail InitStorageService", "error", err)
		return nil, err
	}
	logging.Logger.Info("Storage service initialized",
		"type", cfg.StorageType,
		"bucket", cfg.BucketName,
		"region", cfg.BucketRegion,
	)
	return ss, nil
}

func (ss *Service) EnsureBucketExists() error {
	ctx := context.Background()
	exists, err := ss.Client.BucketExists(ctx, ss.Bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	err = ss.Client.MakeBucket(ctx, ss.Bucket, minio.MakeBucketOptions{
		Region: ss.Config.Region,
	})
	if err != nil {
		if ss.StorageType == "s3" {
			logging.Logger.Warn("Could not create S3 bucket (might exist or no permission)",
				"bucket", ss.Bucket, "error", err)
			return nil
		}
		return err
	}
	return nil
}

// PutSnapshot writes a share snapshot and returns its object key.
func (ss *Service) PutSnapshot(ctx context.Context, snapshot *models.ShareSnapshot) (string, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	key := ss.KeyGenerator.GenerateKey(snapshot.ConvoID)
	_, err = ss.Client.PutObject(ctx, ss.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		logging.Logger.Error("fail PutSnapshot", "error", err)
		return "", err
	}
	return key, nil
}

// GetSnapshot reads a share snapshot back by its object key.
func (ss *Service) GetSnapshot(ctx context.Context, key string) (*models.ShareSnapshot, error) {
	obj, err := ss.Client.GetObject(ctx, ss.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer func(obj *minio.Object) {
		if err := obj.Close(); err != nil {
			logging.Logger.Error("fail GetSnapshot close", "error", err)
		}
	}(obj)

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, err
	}
	var snapshot models.ShareSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

// GeneratePresignedGetDownload returns a temporary public URL for a snapshot.
func (ss *Service) GeneratePresignedGetDownload(key string, expiration time.Time) (string, error) {
	duration := time.Until(expiration)
	if duration <= 0 {
		return "", fmt.Errorf("expiration error")
	}
	presignedURL, err := ss.Client.PresignedGetObject(
		context.Background(),
		ss.Bucket,
		key,
		duration,
		nil,
	)
	if err != nil {
		logging.Logger.Error("fail GeneratePresignedGetDownload", "error", err)
		return "", err
	}
	return presignedURL.String(), nil
}
