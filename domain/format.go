package domain

import (
	"fmt"
	"time"
)

const (
	shortPlaceholder = "--:--"
	longPlaceholder  = "--:--:--"
)

// FormatShort форматирует длительность как "MM:SS" с отбрасыванием долей секунды.
// Минуты не переносятся в часы: 90 минут дают "90:00".
func FormatShort(d *time.Duration) string {
	if d == nil || *d < 0 {
		return shortPlaceholder
	}
	total := int64(*d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// FormatLong форматирует длительность как "HH:MM:SS"
func FormatLong(d *time.Duration) string {
	if d == nil || *d < 0 {
		return longPlaceholder
	}
	total := int64(*d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// FormatPeriodName возвращает название периода или "No Class"
func FormatPeriodName(p *Period) string {
	if p == nil {
		return "No Class"
	}
	return p.Name
}

// FormatPeriodTimeRange возвращает интервал периода вида "7:25 - 8:52"
func FormatPeriodTimeRange(p *Period) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%s - %s", p.StartTime, p.EndTime)
}
