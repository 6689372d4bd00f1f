// Package storage provides the object storage backend for workbooks and reports.
//
// It wraps the MinIO Go client behind a small Client interface so that workbooks addressed
// as s3://bucket/object can be downloaded before an import and uploaded after an export.
// Both AWS S3 and self-hosted MinIO instances are supported.
//
// Tests mock the interface with core/storage/mocks.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	data, err := storage.Download(ctx, client, "workbooks", "inventory.xlsx")
package storage
