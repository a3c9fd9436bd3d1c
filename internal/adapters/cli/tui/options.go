package tui

// TranscribeChoices are the per-run options picked in the interactive flow
type TranscribeChoices struct {
	Segments bool
	NoCache  bool
	SaveSRT  bool
}

// RunTranscribeOptions asks for per-run options. Returns nil when cancelled.
func RunTranscribeOptions(defaults TranscribeChoices) (*TranscribeChoices, error) {
	options := []CheckboxOption{
		{Label: "Include timestamps (segments)", Value: "segments", Checked: defaults.Segments},
		{Label: "Save subtitles (.srt) next to the media", Value: "srt", Checked: defaults.SaveSRT},
		{Label: "Ignore cached transcript", Value: "no-cache", Checked: defaults.NoCache},
	}

	result, err := RunCheckbox("Transcription options", options)
	if err != nil || result == nil {
		return nil, err
	}

	return &TranscribeChoices{
		Segments: result.Checked("segments") || result.Checked("srt"),
		SaveSRT:  result.Checked("srt"),
		NoCache:  result.Checked("no-cache"),
	}, nil
}
