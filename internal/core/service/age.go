package service

import "time"

const MinimumAge = 18

// AgeOn returns the age in whole years on the given day. The year difference
// is reduced by one when the birthday has not yet occurred that year.
func AgeOn(birthDate, today time.Time) int {
	age := today.Year() - birthDate.Year()
	if today.Month() < birthDate.Month() ||
		(today.Month() == birthDate.Month() && today.Day() < birthDate.Day()) {
		age--
	}
	return age
}

func IsOfAge(birthDate, today time.Time, minAge int) bool {
	return AgeOn(birthDate, today) >= minAge
}
