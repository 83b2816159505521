package extract

import "go-wod-trmnl/internal/rules"

// isRestDay 整页文本（小写）包含 "rest day" 即为休息日。
func isRestDay(text string, p rules.Preset) bool {
	return containsAny(text, p.RestDay)
}

// isHero 需同时满足：出现军衔、出现纪念用语、且没有"类似某英雄训练"之类的引用说法。
func isHero(text string, p rules.Preset) bool {
	return containsAny(text, p.RankTokens) &&
		containsAny(text, p.MemorialPhrases) &&
		!containsAny(text, p.ReferencePhrases)
}
