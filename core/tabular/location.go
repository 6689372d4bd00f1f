package tabular

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"sheet-reconciler/core/storage"
)

const s3Scheme = "s3://"

// ErrWorkbookExists is returned when saving over an existing file without overwrite.
var ErrWorkbookExists = errors.New("workbook already exists")

// Location addresses a workbook either on the local filesystem or in object storage.
type Location struct {
	Path   string
	Bucket string
	Object string
}

// ParseLocation parses s3://bucket/object or a filesystem path.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, errors.New("empty workbook location")
	}
	if !strings.HasPrefix(strings.ToLower(raw), s3Scheme) {
		return Location{Path: raw}, nil
	}
	bucket, object, ok := strings.Cut(raw[len(s3Scheme):], "/")
	if !ok || bucket == "" || object == "" {
		return Location{}, fmt.Errorf("invalid object location %q, expected s3://bucket/object", raw)
	}
	return Location{Bucket: bucket, Object: object}, nil
}

// IsRemote reports whether the location is in object storage.
func (l Location) IsRemote() bool {
	return l.Bucket != ""
}

func (l Location) String() string {
	if l.IsRemote() {
		return s3Scheme + l.Bucket + "/" + l.Object
	}
	return l.Path
}

// Open opens the workbook at loc. client may be nil for local locations.
func Open(ctx context.Context, client storage.Client, loc Location) (*Workbook, error) {
	if !loc.IsRemote() {
		return OpenWorkbook(loc.Path)
	}
	if client == nil {
		return nil, fmt.Errorf("no storage client configured for %s", loc)
	}
	data, err := storage.Download(ctx, client, loc.Bucket, loc.Object)
	if err != nil {
		return nil, err
	}
	return ReadWorkbook(bytes.NewReader(data))
}

// Save writes wb to loc. Local files are only replaced when overwrite is set;
// objects in storage are always replaced.
func Save(ctx context.Context, client storage.Client, loc Location, wb *Workbook, overwrite bool) error {
	if !loc.IsRemote() {
		if _, err := os.Stat(loc.Path); err == nil && !overwrite {
			return fmt.Errorf("%w: %s", ErrWorkbookExists, loc.Path)
		}
		return wb.SaveAs(loc.Path)
	}
	if client == nil {
		return fmt.Errorf("no storage client configured for %s", loc)
	}
	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		return err
	}
	return storage.Upload(ctx, client, loc.Bucket, loc.Object, buf.Bytes(), storage.ContentTypeXLSX)
}
