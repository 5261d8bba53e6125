package export

import (
	"context"
	"io"
	"time"
)

// ObjectStorage stores finished export files
type ObjectStorage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// PresignGet returns a time-limited download URL. fileName becomes the
	// Content-Disposition of the download.
	PresignGet(ctx context.Context, key, fileName string, expiresIn time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Stream receives a synchronous export. Start is called once, before the
// first write, with the download file name.
type Stream interface {
	io.Writer
	Start(fileName string)
	Flush()
}
