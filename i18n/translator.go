package i18n

import "strings"

// Translator retrieves localized messages for error and warning codes.
// data provides optional values substituted into "{name}" placeholders (for
// example "key" or "count").
type Translator interface {
	Message(code string, data map[string]string) string
}

var catalog = map[string]map[string]string{
	"en": {
		"format_error":    "malformed input document",
		"io_error":        "input or output failure",
		"schema_error":    "could not build the schema document",
		"no_array":        "document root has no array member",
		"root_not_object": "document root is not an object",
		"duplicate_key":   "duplicate key {key}",
		"max_depth":       "nesting deeper than {limit}",
		"truncated":       "input exceeds {limit} bytes",
		"dropped_field":   "field {key} first seen in row {row}; {count} value(s) dropped",
	},
	"ja": {
		"format_error":    "入力ドキュメントの形式が不正です",
		"io_error":        "入出力エラー",
		"schema_error":    "スキーマを生成できません",
		"no_array":        "ルートに配列のメンバーがありません",
		"root_not_object": "ルートがオブジェクトではありません",
		"duplicate_key":   "キー {key} が重複しています",
		"max_depth":       "ネストが {limit} を超えています",
		"truncated":       "入力が {limit} バイトを超えています",
		"dropped_field":   "フィールド {key} は {row} 行目で初出のため {count} 件の値を破棄しました",
	},
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := catalog[t.lang][code]
	if !ok {
		return code
	}
	if len(data) == 0 || !strings.Contains(msg, "{") {
		return msg
	}
	pairs := make([]string, 0, 2*len(data))
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if _, ok := catalog[lang]; !ok {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
