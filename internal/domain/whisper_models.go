package domain

// WhisperModelOption describes one known whisper.cpp model preset.
type WhisperModelOption struct {
	ID          string
	Name        string
	FileName    string
	URL         string
	SizeLabel   string
	Description string
	Downloaded  bool
	LocalPath   string
}
