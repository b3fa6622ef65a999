package platform

import (
	"fmt"
	"strconv"
	"strings"
)

// parseMoneyMinor переводит денежную строку API ("12.34") в минорные единицы.
// Все внутренние суммы — int64 в минорных единицах, float не используется.
func parseMoneyMinor(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	switch len(frac) {
	case 0:
		frac = "00"
	case 1:
		frac += "0"
	case 2:
	default:
		return 0, fmt.Errorf("money value %q has more than two decimal places", s)
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse money value %q: %w", s, err)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse money value %q: %w", s, err)
	}

	minor := units*100 + cents
	if negative {
		minor = -minor
	}
	return minor, nil
}

// feeByRate считает комиссию площадки в минорных единицах.
// rateBps — ставка в базисных пунктах, fixedMinor — фиксированная часть.
func feeByRate(totalMinor int64, rateBps int64, fixedMinor int64) int64 {
	if totalMinor <= 0 {
		return 0
	}
	return totalMinor*rateBps/10000 + fixedMinor
}
