package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBucket serves HEAD and ranged GET requests for a path-style bucket.
func fakeBucket(t *testing.T, bucket string, objects map[string]string) *s3.Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/"+bucket+"/")
		body, ok := objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method != http.MethodHead {
				fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			}
			return
		}

		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.WriteHeader(http.StatusOK)
			return
		}

		start, end := 0, len(body)-1
		if rng := r.Header.Get("Range"); rng != "" {
			var s, e int
			if _, err := fmt.Sscanf(rng, "bytes=%d-%d", &s, &e); err == nil {
				start = s
				if e < end {
					end = e
				}
			}
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(body)))
		w.Header().Set("Content-Length", strconv.Itoa(end-start+1))
		w.WriteHeader(http.StatusPartialContent)
		fmt.Fprint(w, body[start:end+1])
	}))
	t.Cleanup(srv.Close)

	return s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
		Credentials:  aws.AnonymousCredentials{},
	})
}

func TestS3Store_Fetch(t *testing.T) {
	client := fakeBucket(t, "resumes", map[string]string{"u1/cv.txt": "Go developer"})
	store := NewS3Store(client, "resumes", 1024)

	data, err := store.Fetch(context.Background(), "/u1/cv.txt")
	require.NoError(t, err)
	assert.Equal(t, "Go developer", string(data))
}

func TestS3Store_TooLarge(t *testing.T) {
	client := fakeBucket(t, "resumes", map[string]string{"big.txt": strings.Repeat("x", 64)})
	store := NewS3Store(client, "resumes", 16)

	_, err := store.Fetch(context.Background(), "big.txt")
	assert.ErrorIs(t, err, ErrObjectTooLarge)
}

func TestS3Store_Missing(t *testing.T) {
	client := fakeBucket(t, "resumes", nil)
	store := NewS3Store(client, "resumes", 0)

	_, err := store.Fetch(context.Background(), "nope.pdf")
	assert.Error(t, err)
}

func TestS3Store_Validation(t *testing.T) {
	_, err := NewS3Store(nil, "", 0).Fetch(context.Background(), "k")
	assert.Error(t, err)

	_, err = NewS3Store(nil, "b", 0).Fetch(context.Background(), "  ")
	assert.Error(t, err)
}
