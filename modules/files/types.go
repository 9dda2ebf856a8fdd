package files

// StoreFileRequest represents a file upload request.
type StoreFileRequest struct {
	Name        string `json:"name"`
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
}

// StoreFileResponse represents a file upload response.
type StoreFileResponse struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// FetchFileRequest represents a request for a stored file.
type FetchFileRequest struct {
	Name string `json:"name"`
}

// FetchFileResponse carries a stored file's bytes and content type.
type FetchFileResponse struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
	Found       bool   `json:"found"`
}
