package s3

import (
	"context"
	"testing"

	"seedcore/internal/blob/core"
)

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("missing bucket should fail")
	}
}

func TestOpenFromEnvRequiresBucket(t *testing.T) {
	t.Setenv("SEEDCORE_BLOB_S3_BUCKET", "")
	if _, err := OpenFromEnv(context.Background()); err == nil {
		t.Fatalf("missing bucket env should fail")
	}
}

func TestNewBuildsClientWithStaticCredentials(t *testing.T) {
	// Client construction is local; no request is issued here.
	s, err := New(context.Background(), Config{
		Bucket:          "snapshots",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio-secret",
		PathStyle:       true,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Driver() != core.DriverS3 {
		t.Fatalf("driver: %s", s.Driver())
	}
}

func TestOpenFromEnvReadsConfiguration(t *testing.T) {
	t.Setenv("SEEDCORE_BLOB_S3_BUCKET", "snapshots")
	t.Setenv("SEEDCORE_BLOB_S3_REGION", "eu-west-1")
	t.Setenv("SEEDCORE_BLOB_S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("SEEDCORE_BLOB_S3_PATH_STYLE", "true")
	s, err := OpenFromEnv(context.Background())
	if err != nil {
		t.Fatalf("open from env: %v", err)
	}
	if s.bucket != "snapshots" {
		t.Fatalf("bucket: %q", s.bucket)
	}
}
