package internal

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// CharacterRune checks that str is exactly one character.
func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}

// SplitList splits a comma separated value, dropping blanks and duplicates.
func SplitList(value string) []string {
	items := lo.Map(strings.Split(value, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	return lo.Uniq(lo.Compact(items))
}
