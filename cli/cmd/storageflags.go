package cmd

import (
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"
	"github.com/wkalt/dynconn/storage"
)

var (
	// Directory storage provider options
	dataDir string

	// S3 storage provider options
	s3Endpoint  string
	s3AccessKey string
	s3SecretKey string
	s3Bucket    string
	s3UseTLS    bool
	s3Region    string

	archivePrefix string
)

func addStorageFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "Data directory (for directory storage)")
	cmd.PersistentFlags().StringVar(&s3Endpoint, "s3-endpoint", "", "S3 endpoint (for S3 storage)")
	cmd.PersistentFlags().StringVar(&s3AccessKey, "s3-access-key-id", "", "S3 access key ID (for S3 storage)")
	cmd.PersistentFlags().StringVar(&s3SecretKey, "s3-secret-key", "", "S3 secret key (for S3 storage)")
	cmd.PersistentFlags().StringVar(&s3Bucket, "s3-bucket", "", "S3 bucket (for S3 storage)")
	cmd.PersistentFlags().BoolVarP(&s3UseTLS, "s3-tls", "t", false, "Use TLS (for S3 storage)")
	cmd.PersistentFlags().StringVar(&s3Region, "s3-region", "", "S3 region")
	cmd.PersistentFlags().StringVar(&archivePrefix, "prefix", "samples", "key prefix of the archive")
}

// openStore builds the storage provider selected by the storage flags.
func openStore() storage.Provider {
	s3requested := s3Endpoint != "" ||
		s3AccessKey != "" ||
		s3SecretKey != "" ||
		s3Bucket != ""
	if dataDir != "" && s3requested {
		bailf("cannot specify both --data-dir and S3 options")
	}
	if dataDir == "" && !s3requested {
		bailf("must specify either --data-dir or S3 options")
	}
	if dataDir != "" {
		store, err := storage.NewDirectoryStore(dataDir)
		if err != nil {
			bailf("error creating directory store: %s", err)
		}
		return store
	}
	mc, err := minio.New(s3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s3AccessKey, s3SecretKey, ""),
		Secure: s3UseTLS,
		Region: s3Region,
	})
	if err != nil {
		bailf("error creating S3 client: %s", err)
	}
	return storage.NewS3Store(mc, s3Bucket)
}
