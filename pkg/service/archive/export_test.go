package archive

// NewObjectNamer builds a GCS archive without a client for object name tests
func NewObjectNamer(bucket, prefix string) *GCS {
	return &GCS{bucket: bucket, prefix: prefix}
}
