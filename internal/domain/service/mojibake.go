package service

import "strings"

// mojibakeRepairs UTF-8をLatin-1として二重解釈した文字化けの固定修復表。
// 一部の上流レジストリは歴史的経緯で壊れたエンコーディングのレコードを含む。
var mojibakeRepairs = strings.NewReplacer(
	"Ã¦", "æ",
	"Ã¸", "ø",
	"Ã¥", "å",
	"Ã†", "Æ",
	"Ã˜", "Ø",
	"Ã…", "Å",
	"Ã©", "é",
	"Ã¨", "è",
	"Ã¤", "ä",
	"Ã¶", "ö",
	"Ã¼", "ü",
	"â€“", "–",
	"â€™", "’",
)

// RepairMojibake 名前・説明文に混入した既知の文字化けパターンを修復する
func RepairMojibake(s string) string {
	return mojibakeRepairs.Replace(s)
}
