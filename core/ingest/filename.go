package ingest

import (
	"strings"

	"DHX/model"
)

const mp3Ext = ".mp3"

// ParseFileName 从 "艺人 - 标题.mp3" 解析艺人和标题
// 没有分隔符时整个文件名作为标题
func ParseFileName(name string) (artist, title string) {
	stem := name
	if strings.HasSuffix(strings.ToLower(stem), mp3Ext) {
		stem = stem[:len(stem)-len(mp3Ext)]
	}
	parts := strings.Split(stem, " - ")
	if len(parts) > 1 {
		return parts[0], parts[1]
	}
	return model.UnknownArtist, stem
}

// IsMP3 根据 MIME 类型或扩展名判断
func IsMP3(name, contentType string) bool {
	switch contentType {
	case "audio/mp3", "audio/mpeg":
		return true
	}
	return strings.HasSuffix(strings.ToLower(name), mp3Ext)
}
