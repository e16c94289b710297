package domain

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Date календарная дата без времени и часового пояса; в JSON пишется как YYYY-MM-DD
type Date = civil.Date

// ParseDate разбирает дату в формате YYYY-MM-DD и отвергает несуществующие даты
func ParseDate(s string) (Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

// DateOf берёт календарную дату из момента времени в его часовом поясе
func DateOf(t time.Time) Date {
	return civil.DateOf(t)
}
