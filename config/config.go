package config

import (
	"os"
	"time"
)

type Config struct {
	HttpPort string

	// remote analytics / job service
	JobServiceURL  string
	JobServiceAuth string // "user:password"
	PollInterval   time.Duration
	FillerInterval time.Duration

	// S3/MinIO (share snapshots)
	BucketEndpoint  string
	BucketAccessID  string
	BucketAccessKey string
	BucketName      string
	BucketRegion    string
	UseSSL          bool   // MinIO: false, S3: true
	StorageType     string //"minio" or "s3"

	// Redis
	RedisURL      string
	RedisPassword string

	// Postgres
	Host     string
	User     string
	Password string
	DBName   string
	Port     string

	// others
	RequestTimeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		HttpPort:        os.Getenv("PORT"),
		JobServiceURL:   os.Getenv("JOB_SERVICE_URL"),
		JobServiceAuth:  os.Getenv("JOB_SERVICE_AUTH"),
		PollInterval:    time.Second,
		FillerInterval:  10 * time.Second,
		BucketEndpoint:  os.Getenv("BUCKET_ENDPOINT"),
		BucketAccessID:  os.Getenv("BUCKET_ACCESS_ID"),
		BucketAccessKey: os.Getenv("BUCKET_ACCESS_KEY"),
		BucketName:      os.Getenv("BUCKET_NAME"),
		BucketRegion:    os.Getenv("BUCKET_REGION"),
		UseSSL:          os.Getenv("BUCKET_USE_SSL") == "true",
		StorageType:     os.Getenv("STORAGE_TYPE"),
		RedisURL:        os.Getenv("REDIS_URL"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		Host:            os.Getenv("PG_HOST"),
		User:            os.Getenv("PG_USER"),
		Password:        os.Getenv("PG_PASSWORD"),
		DBName:          os.Getenv("PG_DB"),
		Port:            os.Getenv("PG_PORT"),
		RequestTimeout:  30 * time.Second,
	}
}
