// Package store publishes produced part files to S3 so batch runs over a
// corpus can land their outputs somewhere durable.
package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

func newClient() (*s3.S3, error) {
	sess, err := session.NewSession(&aws.Config{})
	if err != nil {
		return nil, fmt.Errorf("Could not create an S3 session because %s", err.Error())
	}
	return s3.New(sess), nil
}

// UploadParts pushes every path to bucket under prefix, keeping base
// filenames.
func UploadParts(bucket string, prefix string, paths []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	for _, path := range paths {
		dat, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("Could not read part %s because %s", path, err.Error())
		}
		key := filepath.Join(prefix, filepath.Base(path))
		_, err = client.PutObject(&s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(dat),
		})
		if err != nil {
			return fmt.Errorf("Could not upload %s because %s", path, err.Error())
		}
	}
	return nil
}
