package domain

// Metadata is the canonical record extracted from a fetched page.
// Empty string means absent; all values are trimmed.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	IconURL     string `json:"icon,omitempty"`
	ImageURL    string `json:"image,omitempty"`
}

// IngestResult is what a completed ingestion hands back to the caller:
// the extracted metadata plus whichever local artifacts were written.
type IngestResult struct {
	Metadata

	ContentPath string `json:"content_path,omitempty"`
	IconPath    string `json:"icon_path,omitempty"`
	ImagePath   string `json:"image_path,omitempty"`
}
