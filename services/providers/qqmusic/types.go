package qqmusic

// searchRequest is the musicu.fcg request envelope
type searchRequest struct {
	Comm map[string]interface{} `json:"comm"`
	Req  searchModule           `json:"req"`
}

type searchModule struct {
	Module string      `json:"module"`
	Method string      `json:"method"`
	Param  searchParam `json:"param"`
}

type searchParam struct {
	Query      string `json:"query"`
	SearchType int    `json:"search_type"`
	NumPerPage int    `json:"num_per_page"`
	PageNum    int    `json:"page_num"`
	NqcFlag    int    `json:"nqc_flag"`
	Grp        int    `json:"grp"`
}

// SearchResponse represents the response from the QQ Music search API
type SearchResponse struct {
	Code int `json:"code"`
	Req  struct {
		Code int `json:"code"`
		Data struct {
			Body struct {
				ItemSong []Song `json:"item_song"`
			} `json:"body"`
		} `json:"data"`
	} `json:"req"`
}

// Song is one search hit. The lite search reports either title/album or
// songname/albumname depending on the client version.
type Song struct {
	ID        int64    `json:"id"`
	MID       string   `json:"mid"`
	Title     string   `json:"title"`
	Name      string   `json:"name"`
	SongName  string   `json:"songname"`
	AlbumName string   `json:"albumname"`
	Interval  int      `json:"interval"` // seconds
	Singer    []Singer `json:"singer"`
	Album     struct {
		Name string `json:"name"`
	} `json:"album"`
}

// Singer is a credited artist on a song
type Singer struct {
	Name string `json:"name"`
}

// DisplayTitle returns the first non-empty title field
func (s Song) DisplayTitle() string {
	for _, v := range []string{s.Title, s.Name, s.SongName} {
		if v != "" {
			return v
		}
	}
	return ""
}

// DisplayAlbum returns the first non-empty album field
func (s Song) DisplayAlbum() string {
	if s.Album.Name != "" {
		return s.Album.Name
	}
	return s.AlbumName
}

// LyricResponse represents the response from the QQ Music lyric API
type LyricResponse struct {
	RetCode int    `json:"retcode"`
	Code    int    `json:"code"`
	Lyric   string `json:"lyric"`
	Trans   string `json:"trans"`
}
