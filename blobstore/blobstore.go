package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/zstd"
)

const mediaTypeZstd = "application/zstd"

// BlobStore stores zstd-compressed documents in an S3 bucket. Challenge
// documents are too large for a DynamoDB row, so the row keeps the
// queryable metadata and points at a blob here.
type BlobStore struct {
	client *s3.Client
	bucket string
	region string
}

func NewBlobStore(region string, bucket string) (*BlobStore, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &BlobStore{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		region: region,
	}, nil
}

// Put compresses content with zstd and uploads it under key.
func (bs *BlobStore) Put(ctx context.Context, key string, content []byte) error {
	compressed, err := compressWithZstd(content)
	if err != nil {
		return fmt.Errorf("failed to compress blob: %w", err)
	}
	mediaType := mediaTypeZstd
	_, err = bs.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bs.bucket,
		Key:         &key,
		Body:        bytes.NewReader(compressed),
		ContentType: &mediaType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// Get downloads the object under key and decompresses it.
func (bs *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	output, err := bs.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bs.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download object: %w", err)
	}
	defer output.Body.Close()
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(output.Body); err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return decompressWithZstd(buf.Bytes())
}

func (bs *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := bs.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &bs.bucket,
		Key:    &key,
	})
	if err != nil {
		var responseError *awshttp.ResponseError
		if errors.As(err, &responseError) && responseError.ResponseError.HTTPStatusCode() == 404 {
			log.Printf("Key: %s does not exist in S3 bucket: %s", key, bs.bucket)
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

func compressWithZstd(body []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer encoder.Close()
	return encoder.EncodeAll(body, nil), nil
}

func decompressWithZstd(body []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer decoder.Close()
	out, err := decoder.DecodeAll(body, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress blob: %w", err)
	}
	return out, nil
}
