package model

import "errors"

// エラー分類。アダプター境界でキャッチされ「空の結果＋警告」へ変換される。
var (
	// ErrSourceUnavailable ネットワーク障害・タイムアウト・5xx・リトライ後の429
	ErrSourceUnavailable = errors.New("データソースが利用できません")

	// ErrRateLimited HTTP 429（1回のリトライ後もなお429ならErrSourceUnavailableに昇格）
	ErrRateLimited = errors.New("レート制限に達しました")

	// ErrParseError 不正なXML/JSONレスポンス
	ErrParseError = errors.New("レスポンスのパースに失敗しました")
)
