package report

import "context"

// Renderer port (document engine: turns blocks into a file at path)
type Renderer interface {
	Render(ctx context.Context, doc Document, path string) error
}

// Mailer port (delivery of the rendered report)
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// ArtifactStore port (archive of rendered reports)
type ArtifactStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
	UploadAndCleanup(ctx context.Context, localPath, key string) (string, error)
}
