package monitor

import "github.com/edgegate/edgegate/internal/models"

var (
	highThreatTypes = map[string]bool{
		models.AttackSQLInjection:  true,
		"rce":                      true,
		models.AttackPathTraversal: true,
		models.AttackFileInclusion: true,
	}
	mediumThreatTypes = map[string]bool{
		models.AttackXSS:                true,
		models.AttackDirectoryTraversal: true,
		"csrf":                          true,
	}
	lowThreatTypes = map[string]bool{
		models.AttackScanning:   true,
		"probing":               true,
		"information_gathering": true,
	}

	threatScores = map[string]int{
		models.ThreatHigh:    5,
		models.ThreatMedium:  3,
		models.ThreatLow:     1,
		models.ThreatUnknown: 2,
	}
)

// ThreatLevel maps an attack type to its severity level.
func ThreatLevel(attackType string) string {
	switch {
	case highThreatTypes[attackType]:
		return models.ThreatHigh
	case mediumThreatTypes[attackType]:
		return models.ThreatMedium
	case lowThreatTypes[attackType]:
		return models.ThreatLow
	default:
		return models.ThreatUnknown
	}
}

// ThreatScore returns the score increment for an attack type, derived from
// its threat level.
func ThreatScore(attackType string) int {
	return threatScores[ThreatLevel(attackType)]
}
