package blob

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "assets/abc123", objectKey("abc123"))
}

func TestSignedDownloadURL_BadKey(t *testing.T) {
	c := &Client{
		bucket:         "test-bucket",
		serviceAccount: "svc@project.iam.gserviceaccount.com",
		privateKey:     "not-a-pem-key",
	}
	_, err := c.SignedDownloadURL("abc123")
	assert.Error(t, err)
}
