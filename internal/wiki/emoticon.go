package wiki

// emoticonGlyphs maps source emoticon names to the short glyphs Jira wiki
// markup understands. The table is closed; unrecognized names render as a
// bracketed literal tag so nothing is silently dropped.
var emoticonGlyphs = map[string]string{
	"smile":        ":)",
	"sad":          ":(",
	"wink":         ";)",
	"laugh":        ":D",
	"cheeky":       ":P",
	"thumbs-up":    "(y)",
	"thumbs-down":  "(n)",
	"information":  "(i)",
	"tick":         "(/)",
	"cross":        "(x)",
	"warning":      "(!)",
	"plus":         "(+)",
	"minus":        "(-)",
	"question":     "(?)",
	"light-on":     "(on)",
	"light-off":    "(off)",
	"star-yellow":  "(*)",
	"star-red":     "(*r)",
	"star-green":   "(*g)",
	"star-blue":    "(*b)",
	"heart":        "(heart)",
	"broken-heart": "(broken heart)",
}

// emoticonGlyph resolves an emoticon name against the closed table.
func emoticonGlyph(name string) string {
	if glyph, ok := emoticonGlyphs[name]; ok {
		return glyph
	}
	return "[emoticon:" + name + "]"
}
