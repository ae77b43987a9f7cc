package model

import "time"

// AnalysisResult is the outcome of BPM/key detection for one track.
type AnalysisResult struct {
	BPM        int     `json:"bpm"`
	Key        string  `json:"key"`
	Confidence float64 `json:"confidence"`
}

// FallbackAnalysis is returned when a remote source could not be analysed.
func FallbackAnalysis() AnalysisResult {
	return AnalysisResult{BPM: DefaultBPM, Key: DefaultKey, Confidence: 0.1}
}

// TrackAnalysis 已分析曲目记录，按内容哈希去重
type TrackAnalysis struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ContentHash string    `gorm:"size:64;uniqueIndex;not null" json:"contentHash"`
	Title       string    `gorm:"size:255" json:"title"`
	Artist      string    `gorm:"size:255" json:"artist"`
	Album       string    `gorm:"size:255" json:"album"`
	Genre       string    `gorm:"size:128" json:"genre"`
	Source      string    `gorm:"size:32" json:"source"`
	AudioURL    string    `gorm:"size:1024" json:"audioUrl"`
	BPM         int       `json:"bpm"`
	MusicalKey  string    `gorm:"column:musical_key;size:16" json:"key"`
	Confidence  float64   `json:"confidence"`
	Duration    float64   `json:"duration"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (TrackAnalysis) TableName() string {
	return "track_analyses"
}

// Result 转换为分析结果
func (a *TrackAnalysis) Result() AnalysisResult {
	return AnalysisResult{BPM: a.BPM, Key: a.MusicalKey, Confidence: a.Confidence}
}
