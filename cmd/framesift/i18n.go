// Package main provides localization for the framesift CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Configuration": "設定",
		"Decoding":      "デコード",
		"Logging":       "ログ",
		"Output":        "出力",
		"Selection":     "フレーム選択",
		"Layout":        "レイアウト",

		// Root command
		"Extract frames from video files by index, time or keyframe":                                                               "動画ファイルからインデックス・時刻・キーフレームでフレームを抽出",
		"framesift decodes only the frames you ask for: one keyframe seek per cluster of requested frames, then forward decoding.": "framesiftは要求されたフレームだけをデコードします。近接するフレームの集まりごとにキーフレームへ1回シークし、そこから前方へデコードします。",

		// Version command
		"Show version information": "バージョン情報を表示",
		"framesift version %s":     "framesift バージョン %s",

		// Global flags
		"YAML configuration file":                                  "YAML設定ファイル",
		"Path to the ffmpeg executable (default: search PATH)":     "ffmpeg実行ファイルのパス（デフォルト: PATHから検索）",
		"Parallel decoder count (default: CPU count)":              "並列デコーダー数（デフォルト: CPU数）",
		"Frame gap above which a new keyframe seek is issued":      "新たにキーフレームへシークするフレーム間隔のしきい値",
		"Frames buffered ahead of a streaming consumer":            "ストリーミング時に先行してバッファするフレーム数",
		"Do not keep a decoder open between single-frame requests": "単一フレーム取得の間でデコーダーを保持しない",
		"Log level (debug, info, warn, error)":                     "ログレベル（debug, info, warn, error）",
		"Log format (console, json)":                               "ログ形式（console, json）",
		"Suppress all log output":                                  "全てのログ出力を抑制",
		"Serve Prometheus metrics on this address (e.g. :9090)":    "このアドレスでPrometheusメトリクスを公開（例: :9090）",

		// Extract command
		"Extract selected frames to image files":                    "選択したフレームを画像ファイルとして抽出",
		"Frame index to extract (repeatable)":                       "抽出するフレーム番号（複数指定可）",
		"Inclusive frame range, e.g. 100-200":                       "フレーム範囲（両端を含む、例: 100-200）",
		"Every N-th frame from frame 0":                             "フレーム0からNフレームごと",
		"Inclusive time range, e.g. 1.5s-3s or 00:01..00:03":        "時間範囲（両端を含む、例: 1.5s-3s または 00:01..00:03）",
		"Time step between frames, e.g. 500ms":                      "フレーム間の時間間隔（例: 500ms）",
		"Start time for --every":                                    "--every の開始時刻",
		"Comma separated time ranges, e.g. 0s-1s,5s-6s":             "カンマ区切りの時間範囲（例: 0s-1s,5s-6s）",
		"Extract keyframes only":                                    "キーフレームのみ抽出",
		"Output directory (required)":                               "出力ディレクトリ（必須）",
		"Image format (png, jpg)":                                   "画像形式（png, jpg）",
		"JPEG quality (1-100)":                                      "JPEG品質（1-100）",
		"Write an extraction report (.md, .yaml or .txt)":           "抽出レポートを出力（.md, .yaml, .txt）",
		"Execution mode (sequential, parallel, stream, iterate)":    "実行モード（sequential, parallel, stream, iterate）",
		"Output pixel format (rgb24, rgba, gray)":                   "出力ピクセル形式（rgb24, rgba, gray）",
		"Output width in pixels (0 = source)":                       "出力幅（ピクセル、0 = 元のサイズ）",
		"Output height in pixels (0 = source)":                      "出力高さ（ピクセル、0 = 元のサイズ）",
		"Keep the source size for the dimension that was not given": "指定しなかった辺は元のサイズのままにする",
		"Log progress while decoding":                               "デコード中に進捗をログ出力",
		"Frames between progress reports":                           "進捗を報告するフレーム間隔",

		// Thumbnails command
		"Render evenly spaced frames as a contact sheet": "等間隔のフレームをコンタクトシートとして描画",
		"Output PNG file (required)":                     "出力PNGファイル（必須）",
		"Grid columns":                                   "グリッドの列数",
		"Grid rows":                                      "グリッドの行数",
		"Thumbnail width in pixels":                      "サムネイルの幅（ピクセル）",
		"Do not print frame labels":                      "フレームのラベルを表示しない",
		"TrueType font for labels":                       "ラベル用のTrueTypeフォント",

		// Analysis commands
		"List keyframes and GOP statistics":            "キーフレームとGOP統計を表示",
		"Detect variable frame rate":                   "可変フレームレートを検出",
		"Show stream information":                      "ストリーム情報を表示",
		"Include keyframe and frame rate analysis":     "キーフレームとフレームレートの分析を含める",
		"List compressed packets in decode order":      "圧縮パケットをデコード順に表示",
		"Stop after this many packets (0 = all)":       "表示するパケット数の上限（0 = 全て）",
		"Report format (text, markdown, yaml)":         "レポート形式（text, markdown, yaml）",
		"Write the report to a file instead of stdout": "標準出力の代わりにファイルへレポートを書き込む",

		// Validation, scenes and audio commands
		"Check the file for structural problems": "ファイルの構造上の問題を検査",
		"Detect scene changes":                   "シーンの切り替えを検出",
		"Minimum scene change score (0-100)":     "シーン切り替えとみなす最小スコア（0-100）",
		"Extract the audio track as a WAV file":  "音声トラックをWAVファイルとして抽出",
		"Output WAV file (required)":             "出力WAVファイル（必須）",
		"Start time, e.g. 1.5s or 00:01":         "開始時刻（例: 1.5s または 00:01）",
		"End time (default: end of track)":       "終了時刻（デフォルト: トラックの終わり）",
		"Output sample rate in Hz (0 = source)":  "出力サンプルレート（Hz、0 = 元のまま）",
		"Output channel count (0 = source)":      "出力チャンネル数（0 = 元のまま）",

		// Error messages
		"Error: %s": "エラー: %s",
	})
}
