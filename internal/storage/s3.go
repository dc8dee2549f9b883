package storage

import (
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Config holds the settings for an S3-compatible backend
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// S3Disk stores objects in an S3-compatible bucket (AWS or MinIO)
type S3Disk struct {
	name     string
	bucket   string
	svc      *s3.S3
	uploader *s3manager.Uploader
}

func NewS3Disk(name string, cfg S3Config) (*S3Disk, error) {
	sess, err := session.NewSession(&aws.Config{
		Endpoint:         aws.String(cfg.Endpoint),
		Region:           aws.String(cfg.Region),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}

	svc := s3.New(sess)
	return &S3Disk{
		name:     name,
		bucket:   cfg.Bucket,
		svc:      svc,
		uploader: s3manager.NewUploaderWithClient(svc),
	}, nil
}

func (d *S3Disk) Name() string {
	return d.name
}

func (d *S3Disk) Put(ctx context.Context, path string, reader io.Reader) error {
	_, err := d.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(path),
		Body:   reader,
	})
	return err
}

func (d *S3Disk) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	out, err := d.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return out.Body, nil
}

func (d *S3Disk) Delete(ctx context.Context, path string) error {
	_, err := d.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(path),
	})
	return err
}

func (d *S3Disk) URL(path string) string {
	return joinURL(d.svc.Endpoint, d.bucket, path)
}

// SignedURL mints a presigned GET for the object, valid for the given
// duration.
func (d *S3Disk) SignedURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	req, _ := d.svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(path),
	})
	return req.Presign(expires)
}
