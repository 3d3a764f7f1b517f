package minioutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/minio/madmin-go"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	minio "github.com/minio/minio/cmd"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/dynconn/util/testutils"
)

const (
	testBucket      = "recordings"
	accessKeyID     = "minioadmin"
	secretAccessKey = "minioadmin"
)

// NewServer starts a minio server on an open port backed by a temporary
// directory, and returns a client and the name of an empty bucket. The server
// is stopped when the test finishes.
func NewServer(t *testing.T) (*mclient.Client, string) {
	t.Helper()
	ctx := context.Background()
	port, err := testutils.GetOpenPort()
	require.NoError(t, err)
	addr := fmt.Sprintf("localhost:%d", port)

	madm, err := madmin.New(addr, accessKeyID, secretAccessKey, false)
	require.NoError(t, err)

	dir := t.TempDir()
	go func() {
		minio.Main([]string{"minio", "server", "--quiet", "--address", addr, dir})
	}()

	deadline := time.Now().Add(10 * time.Second)
	for {
		if _, err := madm.ServerInfo(ctx); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timeout waiting for minio server to start")
		}
		time.Sleep(100 * time.Millisecond)
	}
	mc, err := mclient.New(addr, &mclient.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: false,
	})
	require.NoError(t, err)
	require.NoError(t, mc.MakeBucket(ctx, testBucket, mclient.MakeBucketOptions{}))

	// minio calls os.Exit when it stops, so stop it after the test binary has
	// had time to finish rather than inside cleanup.
	t.Cleanup(func() {
		go func() {
			time.Sleep(5 * time.Second)
			if err := madm.ServiceStop(ctx); err != nil {
				t.Log(err)
			}
		}()
	})
	return mc, testBucket
}
