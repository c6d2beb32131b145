// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// MimePDF is the only MIME type the PDF metadata processor accepts.
const MimePDF = "application/pdf"

// ObjectVersion is one immutable version of a stored file.
type ObjectVersion struct {
	// VersionID uniquely identifies this version (a UUID).
	VersionID string `json:"version_id" yaml:"version_id"`

	// Bucket groups versions; it has no meaning to the processors.
	Bucket string `json:"bucket" yaml:"bucket"`

	// Key is the logical file name within the bucket.
	Key string `json:"key" yaml:"key"`

	// URI is the local filesystem path of the file content.
	URI string `json:"uri" yaml:"uri"`

	// MimeType is the declared content type (e.g. "application/pdf").
	MimeType string `json:"mimetype" yaml:"mimetype"`

	// Size is the content length in bytes.
	Size int64 `json:"size" yaml:"size"`

	// Checksum is "sha256:" followed by the hex digest of the content.
	Checksum string `json:"checksum" yaml:"checksum"`

	// CreatedAt is when the version was registered.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
