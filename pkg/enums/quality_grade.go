package enums

import "fmt"

// QualityGrade is the harvest-time grade assigned by the farmer.
type QualityGrade string

const (
	GradeA QualityGrade = "A"
	GradeB QualityGrade = "B"
	GradeC QualityGrade = "C"
)

var validQualityGrades = []QualityGrade{GradeA, GradeB, GradeC}

// String implements fmt.Stringer.
func (g QualityGrade) String() string {
	return string(g)
}

// IsValid reports whether the value is a known QualityGrade.
func (g QualityGrade) IsValid() bool {
	for _, candidate := range validQualityGrades {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseQualityGrade converts raw input into a QualityGrade.
func ParseQualityGrade(value string) (QualityGrade, error) {
	for _, candidate := range validQualityGrades {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quality grade %q", value)
}
