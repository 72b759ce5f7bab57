package utils

import "time"

// time.go - работа с суточными границами для дневных счётчиков.
// Все границы считаются в UTC: смена суток на бирже не зависит
// от локального часового пояса сервера.

// GetDayStart возвращает начало текущих суток (00:00:00 UTC)
func GetDayStart() time.Time {
	return GetDayStartFrom(time.Now())
}

// GetDayStartFrom возвращает начало суток для заданного момента
func GetDayStartFrom(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// GetDayEnd возвращает конец текущих суток (23:59:59.999999999 UTC)
func GetDayEnd() time.Time {
	return GetDayEndFrom(time.Now())
}

// GetDayEndFrom возвращает конец суток для заданного момента
func GetDayEndFrom(t time.Time) time.Time {
	return GetDayStartFrom(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
