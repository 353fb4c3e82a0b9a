package app

// ExportedFile is a serialized document handed to the frontend for a
// browser-style download.
type ExportedFile struct {
	FileName string `json:"fileName"`
	Contents string `json:"contents"`
}
