package netease

// SearchResponse represents the response from the NetEase web search API
type SearchResponse struct {
	Code   int `json:"code"`
	Result struct {
		SongCount int    `json:"songCount"`
		Songs     []Song `json:"songs"`
	} `json:"result"`
}

// Song is one search hit
type Song struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Duration int64    `json:"duration"` // milliseconds
	Artists  []Artist `json:"artists"`
	Album    struct {
		Name string `json:"name"`
	} `json:"album"`
}

// Artist is a credited artist on a song
type Artist struct {
	Name string `json:"name"`
}

// LyricResponse represents the response from the NetEase lyric API
type LyricResponse struct {
	Code int `json:"code"`

	// Lrc is the original lyric track
	Lrc struct {
		Lyric string `json:"lyric"`
	} `json:"lrc"`

	// Tlyric is the translated track, often empty
	Tlyric struct {
		Lyric string `json:"lyric"`
	} `json:"tlyric"`

	// Yrc is the word-timed track; not used since its format is proprietary
	Yrc struct {
		Lyric string `json:"lyric"`
	} `json:"yrc"`

	Uncollected bool `json:"uncollected"`
	NoLyric     bool `json:"nolyric"`
}
