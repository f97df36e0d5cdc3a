/*
Package filesystem wraps file operations with retry logic for NFS stale
file handle errors.

Timeline documents and the media they reference often live on network
mounts. When a file is replaced on the server while a client holds a
cached handle, os.Stat and os.Open fail with ESTALE until the handle is
refreshed. StatWithRetry, OpenWithRetry and ReadFileWithRetry retry only
that error, with exponential backoff:

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())

The defaults are 3 retries starting at 50ms and capped at 500ms. All other
errors are returned immediately.

Operations are labelled with a volume name for metrics. Set the mapping
from paths to volumes once at startup:

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
	    "timeline": filepath.Dir(timelinePath),
	}))
*/
package filesystem
