package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Call level messages (info)
		"Extracting %d frames (%s)":                 "%d フレームを抽出中 (%s)",
		"Extracting %d frames (%s) with %d workers": "%d フレーム (%s) を %d ワーカーで抽出中",
		"Streaming %d frames (%s) as %s":            "%d フレーム (%s) をストリーム %s として配信中",
		"Extracted %d frames in %s":                 "%d フレームを %s で抽出しました",
		"Extracting %d thumbnails at %dpx":          "サムネイル %d 枚を幅 %dpx で抽出中",
		"Found %d keyframes (average GOP %.1f)":     "%d 個のキーフレームを検出しました (平均GOP %.1f)",
		"Progress: %d/%d frames (%.0f%%), ETA %s":   "進捗: %d/%d フレーム (%.0f%%), 残り %s",
		"Saved %d frames to %s":                     "%d フレームを %s に保存しました",
		"Contact sheet with %d frames saved to %s":  "%d フレームのコンタクトシートを %s に保存しました",
		"Report saved to %s":                        "レポートを %s に保存しました",
		"Audio saved to %s":                         "音声を %s に保存しました",
		"Extracted %s of audio (%d Hz, %d ch)":      "%s の音声を抽出しました (%d Hz, %d ch)",
		"Detected %d scene changes in %s":           "%d 個のシーン切り替えを検出しました (%s)",
		"Serving metrics on %s":                     "%s でメトリクスを公開中",
		"Interrupted, shutting down...":             "中断されました。シャットダウン中...",

		// Engine and coordinator details (debug)
		"Executing %d frames in %d runs":                           "%d フレームを %d ランで実行中",
		"Decoding %d frames in %d runs with %d workers":            "%d フレームを %d ランに分け %d ワーカーでデコード中",
		"Run %d..%d: %d frames":                                    "ラン %d..%d: %d フレーム",
		"Frame %d is behind cached position %d, reopening decoder": "フレーム %d はキャッシュ位置 %d より前のため、デコーダーを開き直します",
		"Stream %s: %d frames, buffer %d":                          "ストリーム %s: %d フレーム, バッファ %d",
		"Stream %s stopped: %v":                                    "ストリーム %s が停止しました: %v",

		// Container and analysis details (debug)
		"Parsed %s track: %d samples, %dx%d, %s fps":    "%s トラックを解析: %d サンプル, %dx%d, %s fps",
		"Found %d keyframes in %d packets":              "%d 個のキーフレームを検出 (%d パケット中)",
		"VFR scan: %d samples, mean %.3f fps, cv %.4f":  "VFR検査: %d サンプル, 平均 %.3f fps, 変動係数 %.4f",
		"Using ffmpeg at %s":                            "ffmpeg を使用: %s",
		"Started ffmpeg at %.3fs (pid %d)":              "%.3f 秒の位置から ffmpeg を開始しました (pid %d)",
		"Started ffmpeg audio decode at %.3fs (pid %d)": "%.3f 秒の位置から ffmpeg の音声デコードを開始しました (pid %d)",
		"Detecting scenes with threshold %.1f":          "しきい値 %.1f でシーン切り替えを検出中",

		// Warnings
		"Extraction stopped after %d frames: %v":         "%d フレームで抽出が停止しました: %v",
		"Frame %d was not produced by the decoder":       "フレーム %d はデコーダーから出力されませんでした",
		"Ignoring track %d: unsupported %s sample entry": "トラック %d を無視します: 未対応のサンプルエントリ %s",
		"Progress callback panicked: %v":                 "進捗コールバックでパニックが発生しました: %v",
		"Failed to set GOMAXPROCS: %v":                   "GOMAXPROCS の設定に失敗しました: %v",
		"Metrics server stopped: %v":                     "メトリクスサーバーが停止しました: %v",

		// Errors
		"Failed to write report: %s": "レポートの書き込みに失敗しました: %s",
	})
}
