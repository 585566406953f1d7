package kugou

// SearchResponse is the lyrics search reply
type SearchResponse struct {
	Status     int               `json:"status"`
	Info       string            `json:"info"`
	ErrCode    int               `json:"errcode"`
	ErrMsg     string            `json:"errmsg"`
	Keyword    string            `json:"keyword"`
	Candidates []LyricsCandidate `json:"candidates"`
}

// LyricsCandidate is one lyrics match offered by the search
type LyricsCandidate struct {
	ID          string `json:"id"`
	ProductFrom string `json:"product_from"`
	AccessKey   string `json:"accesskey"`
	Singer      string `json:"singer"`
	Song        string `json:"song"`
	Duration    int    `json:"duration"` // milliseconds
	Language    string `json:"language"`
	KRCType     int    `json:"krctype"` // 1 = synced
	Score       int    `json:"score"`
}

// DownloadResponse carries the base64 LRC body
type DownloadResponse struct {
	Status    int    `json:"status"`
	Info      string `json:"info"`
	ErrorCode int    `json:"error_code"`
	Fmt       string `json:"fmt"`
	Charset   string `json:"charset"`
	Content   string `json:"content"`
}

// SongSearchResponse is the song search reply; the hash is needed for lyrics search
type SongSearchResponse struct {
	Status  int `json:"status"`
	ErrCode int `json:"errcode"`
	Data    struct {
		Total int        `json:"total"`
		Info  []SongInfo `json:"info"`
	} `json:"data"`
}

// SongInfo is one song from the search results
type SongInfo struct {
	Hash       string `json:"hash"`
	SQHash     string `json:"sqhash"`
	Hash320    string `json:"320hash"`
	SongName   string `json:"songname"`
	SingerName string `json:"singername"`
	AlbumName  string `json:"album_name"`
	Duration   int    `json:"duration"` // seconds
}
