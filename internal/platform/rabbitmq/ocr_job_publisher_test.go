package rabbitmq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legaldesk/internal/ocr"
)

func TestEncodeDecodeJob(t *testing.T) {
	job := ocr.Job{
		PhotoID:     "p1",
		CaseID:      "c1",
		StoredName:  "p1-scan.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("large image"),
	}

	payload, err := EncodeJob(job)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "large image")

	decoded, err := DecodeJob(payload)
	require.NoError(t, err)
	assert.Equal(t, "p1", decoded.PhotoID)
	assert.Equal(t, "p1-scan.jpg", decoded.StoredName)
	assert.Nil(t, decoded.Data)
}

func TestDecodeJob_Invalid(t *testing.T) {
	_, err := DecodeJob([]byte("{"))
	assert.Error(t, err)

	_, err = DecodeJob([]byte(`{"photo_id":"p1"}`))
	assert.Error(t, err)
}
