package config

// NewAppForTest creates an App config for testing purposes
func NewAppForTest(path, defaultOrg string) *App {
	return &App{path: path, defaultOrg: defaultOrg}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend string) *Repository {
	return &Repository{backend: backend}
}

// NewArchiveForTest creates an Archive config for testing purposes
func NewArchiveForTest(bucket, prefix string) *Archive {
	return &Archive{bucket: bucket, prefix: prefix}
}
