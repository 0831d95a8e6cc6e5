package domain

// IndexedText is one AI-extracted text keyed by the 1-based position of the
// media item it describes, counted over the backend's pre-filter gallery
// ordering.
type IndexedText struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Video bool   `json:"is_video,omitempty"`
	URL   string `json:"url,omitempty"`
}

// AttachExtractedText merges transcription output onto media items by
// original index. Correlation is positional, never content-based: when the
// validator dropped an item, the survivors kept their original indices, so
// the lookup still lands on the right item. Items without a matching pair
// get an empty string.
func AttachExtractedText(items []MediaItem, texts []IndexedText) {
	byIndex := make(map[int]string, len(texts))
	for _, t := range texts {
		byIndex[t.Index] = t.Text
	}
	for i := range items {
		items[i].ExtractedText = byIndex[items[i].OriginalIndex]
	}
}
