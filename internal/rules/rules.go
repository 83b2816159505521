// 包 rules 提供训练页解析所用的标记短语与选择器（rules.yaml），
// 以预设名组织；未在 YAML 中给出的字段回退到内置默认值。
package rules

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules 表示全部规则集合：键为预设名，值为具体规则。
type Rules struct {
	Presets map[string]Preset `yaml:",inline"`
}

// Preset 为单个站点版式的解析规则。
// 所有短语均按小写子串匹配。
type Preset struct {
	// 选择器
	Bold     string `yaml:"bold"`
	Headings string `yaml:"headings"`
	Strip    string `yaml:"strip"`
	// CommentClass：class 中含此子串的节点整棵移除
	CommentClass string `yaml:"comment_class"`

	// 标题
	PromoPhrases   []string `yaml:"promo_phrases"`
	TitleKeywords  []string `yaml:"title_keywords"`
	HeadingSkip    []string `yaml:"heading_skip"`
	HeadingAccepts []string `yaml:"heading_accepts"`

	// 训练正文
	WorkoutStart []string `yaml:"workout_start"`
	BodyStop     []string `yaml:"body_stop"`
	BodySkip     []string `yaml:"body_skip"`

	// 分节
	Scaling  Section `yaml:"scaling"`
	Options  Section `yaml:"options"`
	Stimulus Section `yaml:"stimulus"`

	// 整页信号
	RestDay          []string `yaml:"rest_day"`
	RankTokens       []string `yaml:"rank_tokens"`
	MemorialPhrases  []string `yaml:"memorial_phrases"`
	ReferencePhrases []string `yaml:"reference_phrases"`
}

// Section 描述一个分节：Open 为起始标记，Close 为终止标记。
type Section struct {
	Open  []string `yaml:"open"`
	Close []string `yaml:"close"`
}

// Default 返回内置预设。
func Default() Preset {
	return Preset{
		Bold:         "strong, b",
		Headings:     "h1, h2, h3",
		Strip:        "script, style, noscript",
		CommentClass: "comment",

		PromoPhrases:  []string{"watch now", "are live", "shop", "buy", "sale", "click here", "subscribe"},
		TitleKeywords: []string{"games", "hero", "benchmark"},
		HeadingSkip: []string{
			"workout of the day", "wod", "scaling", "stimulus", "strategy",
			"coaching", "resources", "post", "compare", "intermediate option", "beginner option",
			"comments",
		},
		HeadingAccepts: []string{"games", "event"},

		WorkoutStart: []string{"for time:", "amrap", "emom", "rounds for time:", "complete:"},
		BodyStop: []string{
			"stimulus", "scaling", "intermediate option", "beginner option",
			"coaching", "resources", "comments", "post time",
		},
		BodySkip: []string{"commented on:"},

		Scaling: Section{
			Open:  []string{"scaling:"},
			Close: []string{"intermediate option:", "beginner option:", "coaching", "resources", "stimulus"},
		},
		Options: Section{
			Open:  []string{"intermediate option:", "beginner option:"},
			Close: []string{"option:", "coaching", "resources", "stimulus", "comments"},
		},
		Stimulus: Section{
			Open:  []string{"stimulus and strategy:", "stimulus:"},
			Close: []string{"scaling:", "intermediate option:", "beginner option:", "coaching", "resources"},
		},

		RestDay: []string{"rest day"},
		RankTokens: []string{
			"lt.", "lieutenant", "sgt.", "sergeant", "cpl.", "corporal",
			"pfc.", "private", "captain", "major", "colonel",
		},
		MemorialPhrases:  []string{"fallen", "killed in action", "kia", "memorial", "died", "gave his life", "gave her life"},
		ReferencePhrases: []string{"reminiscent of a hero workout", "similar to", "like the hero workout"},
	}
}

// WithDefaults 用内置默认值补齐空字段。
func (p Preset) WithDefaults() Preset {
	d := Default()
	str := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	list := func(v *[]string, def []string) {
		if len(*v) == 0 {
			*v = def
		}
	}
	sec := func(v *Section, def Section) {
		list(&v.Open, def.Open)
		list(&v.Close, def.Close)
	}
	str(&p.Bold, d.Bold)
	str(&p.Headings, d.Headings)
	str(&p.Strip, d.Strip)
	str(&p.CommentClass, d.CommentClass)
	list(&p.PromoPhrases, d.PromoPhrases)
	list(&p.TitleKeywords, d.TitleKeywords)
	list(&p.HeadingSkip, d.HeadingSkip)
	list(&p.HeadingAccepts, d.HeadingAccepts)
	list(&p.WorkoutStart, d.WorkoutStart)
	list(&p.BodyStop, d.BodyStop)
	list(&p.BodySkip, d.BodySkip)
	sec(&p.Scaling, d.Scaling)
	sec(&p.Options, d.Options)
	sec(&p.Stimulus, d.Stimulus)
	list(&p.RestDay, d.RestDay)
	list(&p.RankTokens, d.RankTokens)
	list(&p.MemorialPhrases, d.MemorialPhrases)
	list(&p.ReferencePhrases, d.ReferencePhrases)
	return p
}

func Load(path string) (*Rules, error) {
	// 从文件加载 YAML 到 Rules.Presets
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var r Rules
	if err := yaml.Unmarshal(b, &r.Presets); err != nil {
		return nil, fmt.Errorf("unmarshal rules %s: %w", path, err)
	}
	return &r, nil
}

// GetPreset 按名称获取预设（不区分大小写），若为空或不存在则回退到 "default"，
// 最终回退到内置预设。返回值已补齐默认字段；第二个返回值表示是否命中文件中的预设。
func (r *Rules) GetPreset(name string) (Preset, bool) {
	if r == nil || len(r.Presets) == 0 {
		return Default(), false
	}
	if name == "" {
		name = "default"
	}
	if p, ok := r.Presets[name]; ok {
		return p.WithDefaults(), true
	}
	lower := strings.ToLower(name)
	for k, v := range r.Presets {
		if strings.ToLower(k) == lower {
			return v.WithDefaults(), true
		}
	}
	if p, ok := r.Presets["default"]; ok {
		return p.WithDefaults(), true
	}
	return Default(), false
}
