package tags

import "unicode"

// specialSingleChars are single-character tags that carry meaning on their
// own. Membership is fixed data; do not derive it.
var specialSingleChars = runeSet(
	// metals
	'铜', '铁', '铝', '锌', '锡', '镍', '银', '金', '钢', '铅',
	// chemicals and energy
	'油', '气', '煤', '盐', '酸', '碱', '硫', '氯', '氢', '氧',
	// industries
	'医', '药', '食', '酒', '茶', '糖', '米', '面', '奶', '肉',
	// technology
	'芯', '屏', '网', '云', '链', '币', '电', '光', '波', '磁',
	// regions
	'沪', '深', '京', '港', '台', '粤', '苏', '浙', '鲁', '川',
	// other
	'新', '老', '大', '小', '高', '低', '强', '弱', '快', '慢',
)

var meaninglessPunct = runeSet('?', '!', '@', '#', '$', '%', '^', '&', '*', '+', '=', '|', '\\', '/', '<', '>')

// isMeaninglessSingle reports whether r alone is a junk tag: an ASCII letter
// (either case), an ASCII digit or one of meaninglessPunct.
func isMeaninglessSingle(r rune) bool {
	if r < 0x80 {
		lr := unicode.ToLower(r)
		if lr >= 'a' && lr <= 'z' {
			return true
		}
		if r >= '0' && r <= '9' {
			return true
		}
	}
	_, ok := meaninglessPunct[r]
	return ok
}

// SpecialSingleChars returns the allowlisted single-character tags.
func SpecialSingleChars() []rune {
	out := make([]rune, 0, len(specialSingleChars))
	for r := range specialSingleChars {
		out = append(out, r)
	}
	return out
}

func runeSet(rs ...rune) map[rune]struct{} {
	m := make(map[rune]struct{}, len(rs))
	for _, r := range rs {
		m[r] = struct{}{}
	}
	return m
}
