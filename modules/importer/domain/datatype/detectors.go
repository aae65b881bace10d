package datatype

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ().\-]{5,18}[0-9]$`)
	digitPattern = regexp.MustCompile(`[0-9]`)
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02.01.2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	time.RFC3339,
}

var currencySymbols = []string{"$", "€", "£", "¥", "₹"}

func looksLikeEmail(s string) bool {
	return emailPattern.MatchString(s)
}

func looksLikePhone(s string) bool {
	if !phonePattern.MatchString(s) {
		return false
	}
	return len(digitPattern.FindAllString(s, -1)) >= 7
}

func looksLikeDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func looksLikeCurrency(s string) bool {
	v := strings.TrimSpace(s)
	hasSymbol := false
	for _, sym := range currencySymbols {
		if strings.HasPrefix(v, sym) || strings.HasSuffix(v, sym) {
			v = strings.TrimSuffix(strings.TrimPrefix(v, sym), sym)
			hasSymbol = true
			break
		}
	}
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if v == "" {
		return false
	}
	if _, err := decimal.NewFromString(v); err != nil {
		return false
	}
	// A bare integer without a symbol or decimal point is too ambiguous.
	return hasSymbol || strings.Contains(v, ".")
}

func looksLikeURL(s string) bool {
	v := s
	if !strings.Contains(v, "://") {
		if !strings.HasPrefix(v, "www.") {
			return false
		}
		v = "https://" + v
	}
	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && strings.Contains(u.Host, ".")
}
