// Package format renders numbers, sizes, durations and names for API payloads and emails.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

const rupee = "₹"

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// Currency formats an INR amount with Indian digit grouping and at most two decimals.
func Currency(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	raw := trimDecimals(strconv.FormatFloat(amount, 'f', 2, 64))
	intPart, fracPart, hasFrac := strings.Cut(raw, ".")

	out := rupee + sign + groupIndian(intPart)
	if hasFrac {
		out += "." + fracPart
	}
	return out
}

// groupIndian groups the last three digits, then every two digits before them.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(groups, ",") + "," + tail
}

// FileSize renders a byte count using binary units up to GB.
func FileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	value := float64(bytes)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	rounded := math.Round(value*100) / 100
	return trimDecimals(strconv.FormatFloat(rounded, 'f', 2, 64)) + " " + sizeUnits[unit]
}

// Duration renders seconds as "1h 1m 5s", omitting zero components.
func Duration(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	parts := make([]string, 0, 3)
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if s > 0 {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}
	return strings.Join(parts, " ")
}

// Percentage formats value with the given number of decimals, one by default.
func Percentage(value float64, decimals ...int) string {
	d := 1
	if len(decimals) > 0 && decimals[0] >= 0 {
		d = decimals[0]
	}
	return strconv.FormatFloat(value, 'f', d, 64) + "%"
}

// CompactNumber abbreviates large numbers as 1.2K, 3.4M or 5.6B.
func CompactNumber(n float64) string {
	abs := math.Abs(n)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.1fB", n/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.1fM", n/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.1fK", n/1e3)
	default:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
}

// Truncate cuts text to max runes and appends an ellipsis when anything was removed.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if max < 0 || len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

// Name title-cases every space separated word, keeping the original spacing.
func Name(name string) string {
	words := strings.Split(name, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// Initials returns up to two upper-case initials.
func Initials(name string) string {
	fields := strings.Fields(name)
	if len(fields) > 2 {
		fields = fields[:2]
	}
	var b strings.Builder
	for _, f := range fields {
		r := []rune(f)[0]
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// PhoneNumber formats Indian mobile numbers as "+91 98765 43210".
// Anything that is not a 10 digit number or a 12 digit number with the 91 prefix is returned as is.
func PhoneNumber(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	switch {
	case len(digits) == 10:
		return "+91 " + digits[:5] + " " + digits[5:]
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		return "+91 " + digits[2:7] + " " + digits[7:]
	default:
		return phone
	}
}

func trimDecimals(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
