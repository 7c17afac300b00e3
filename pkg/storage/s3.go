package storage

import (
	"context"
	stderrors "errors"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/textsumlab/sumpipe/pkg/errors"
)

type S3Options struct {
	URL       string `json:"url,omitempty"`
	Region    string `json:"region,omitempty"`
	Bucket    string `json:"bucket,omitempty"`
	AccessKey string `json:"accessKey,omitempty"`
	SecretKey string `json:"secretKey,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty"`
}

func NewDefaultS3Options() *S3Options {
	return &S3Options{
		Bucket:    "",
		URL:       "",
		Region:    os.Getenv("AWS_REGION"),
		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		PathStyle: true,
	}
}

var _ Backend = &S3Backend{}

// S3Backend stores pipeline artifacts in an S3 bucket.
type S3Backend struct {
	Bucket string
	Prefix string
	Client *s3.Client
}

func NewS3Backend(ctx context.Context, options *S3Options) (*S3Backend, error) {
	loadopts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(options.Region),
	}
	if options.AccessKey != "" {
		loadopts = append(loadopts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(options.AccessKey, options.SecretKey, ""),
		))
	}
	if options.URL != "" {
		loadopts = append(loadopts, awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(
				func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{URL: options.URL}, nil
				},
			),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadopts...)
	if err != nil {
		return nil, errors.NewStorageFailedError(err)
	}
	s3cli := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = options.PathStyle
	})
	return &S3Backend{
		Bucket: options.Bucket,
		Prefix: options.Prefix,
		Client: s3cli,
	}, nil
}

func (m *S3Backend) Put(ctx context.Context, key string, content ObjectContent) error {
	uploadobj := &s3.PutObjectInput{
		Bucket:        aws.String(m.Bucket),
		Key:           m.prefixedKey(key),
		Body:          content.Body,
		ContentLength: content.ContentLength,
		ContentType:   aws.String(content.ContentType),
	}
	if _, err := manager.NewUploader(m.Client).Upload(ctx, uploadobj); err != nil {
		return errors.NewStorageFailedError(err)
	}
	return nil
}

func (m *S3Backend) Get(ctx context.Context, key string) (*ObjectContent, error) {
	getobjout, err := m.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.Bucket),
		Key:    m.prefixedKey(key),
	})
	if err != nil {
		return nil, errors.NewStorageFailedError(err)
	}
	return &ObjectContent{
		Body:          getobjout.Body,
		ContentType:   stringDeref(getobjout.ContentType),
		ContentLength: getobjout.ContentLength,
	}, nil
}

func (m *S3Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.Bucket),
		Key:    m.prefixedKey(key),
	})
	if err != nil {
		if IsS3NotFound(err) {
			return false, nil
		}
		return false, errors.NewStorageFailedError(err)
	}
	return true, nil
}

func (m *S3Backend) Stat(ctx context.Context, key string) (ObjectMeta, error) {
	headobjout, err := m.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.Bucket),
		Key:    m.prefixedKey(key),
	})
	if err != nil {
		if IsS3NotFound(err) {
			return ObjectMeta{}, os.ErrNotExist
		}
		return ObjectMeta{}, errors.NewStorageFailedError(err)
	}
	return ObjectMeta{
		Key:          key,
		Size:         headobjout.ContentLength,
		LastModified: timeDeref(headobjout.LastModified),
		ContentType:  stringDeref(headobjout.ContentType),
	}, nil
}

func (m *S3Backend) List(ctx context.Context, prefix string, recursive bool) ([]ObjectMeta, error) {
	keyprefix := *m.prefixedKey(prefix)
	if !strings.HasSuffix(keyprefix, "/") {
		keyprefix += "/"
	}
	listinput := &s3.ListObjectsInput{
		Bucket: aws.String(m.Bucket),
		Prefix: aws.String(keyprefix),
	}
	if !recursive {
		listinput.Delimiter = aws.String("/")
	}
	var result []ObjectMeta
	for {
		listobjout, err := m.Client.ListObjects(ctx, listinput)
		if err != nil {
			return nil, errors.NewStorageFailedError(err)
		}
		for _, obj := range listobjout.Contents {
			result = append(result, ObjectMeta{
				Key:          strings.TrimPrefix(*obj.Key, keyprefix),
				Size:         obj.Size,
				LastModified: timeDeref(obj.LastModified),
			})
		}
		if !listobjout.IsTruncated {
			return result, nil
		}
		listinput.Marker = listobjout.NextMarker
	}
}

func (m *S3Backend) Remove(ctx context.Context, key string) error {
	_, err := m.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.Bucket),
		Key:    m.prefixedKey(key),
	})
	if err != nil {
		return errors.NewStorageFailedError(err)
	}
	return nil
}

func (m *S3Backend) RemovePrefix(ctx context.Context, prefix string) error {
	keyprefix := m.prefixedKey(prefix)
	if !strings.HasSuffix(*keyprefix, "/") {
		*keyprefix += "/"
	}
	output, err := m.Client.ListObjects(ctx, &s3.ListObjectsInput{
		Bucket: aws.String(m.Bucket),
		Prefix: keyprefix,
	})
	if err != nil {
		return errors.NewStorageFailedError(err)
	}
	if len(output.Contents) == 0 {
		return nil
	}
	objectsids := make([]s3types.ObjectIdentifier, 0, len(output.Contents))
	for _, object := range output.Contents {
		objectsids = append(objectsids, s3types.ObjectIdentifier{Key: object.Key})
	}
	_, err = m.Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(m.Bucket),
		Delete: &s3types.Delete{Objects: objectsids},
	})
	if err != nil {
		return errors.NewStorageFailedError(err)
	}
	return nil
}

func (m *S3Backend) URI(key string) string {
	return "s3://" + m.Bucket + "/" + *m.prefixedKey(key)
}

func (m *S3Backend) prefixedKey(key string) *string {
	return aws.String(path.Join(m.Prefix, key))
}

func IsS3NotFound(err error) bool {
	var apie *smithyhttp.ResponseError
	if stderrors.As(err, &apie) {
		return apie.HTTPStatusCode() == 404
	}
	return false
}

func stringDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timeDeref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
