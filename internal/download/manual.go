package download

import (
	"context"
	"fmt"
)

// AddOrUpdate downloads one file outside a crawl and records it.
//
// It behaves like a single DownloadAll attempt except that an unnamed URL is
// saved as manual_<unix seconds><ext>. The chosen filename is returned even
// when the attempt fails.
func (d *Downloader) AddOrUpdate(ctx context.Context, rawURL string) (string, error) {
	if d.store == nil {
		return "", ErrNoStore
	}

	task := d.newTask(rawURL, FilenameFor(rawURL, fmt.Sprintf("manual_%d", d.now().Unix())))
	if err := d.download(ctx, task); err != nil {
		return task.Filename, err
	}
	return task.Filename, nil
}
