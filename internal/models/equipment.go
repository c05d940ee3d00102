package models

import "strings"

// Canonical equipment categories used by progression rules.
const (
	EquipmentBarbell    = "barbell"
	EquipmentDumbbell   = "dumbbell"
	EquipmentKettlebell = "kettlebell"
	EquipmentBodyweight = "bodyweight"
	EquipmentCable      = "cable"
	EquipmentMachine    = "machine"
)

// equipmentMap maps lowercased equipment labels, as written by the program
// template and by Alpha Progression exports (English and German app
// locales), to a canonical category.
var equipmentMap = map[string]string{
	"barbell":       EquipmentBarbell,
	"barbells":      EquipmentBarbell,
	"ez bar":        EquipmentBarbell,
	"ez-bar":        EquipmentBarbell,
	"trap bar":      EquipmentBarbell,
	"langhantel":    EquipmentBarbell,
	"sz-stange":     EquipmentBarbell,
	"dumbbell":      EquipmentDumbbell,
	"dumbbells":     EquipmentDumbbell,
	"db":            EquipmentDumbbell,
	"kurzhantel":    EquipmentDumbbell,
	"kurzhanteln":   EquipmentDumbbell,
	"kettlebell":    EquipmentKettlebell,
	"kettlebells":   EquipmentKettlebell,
	"bodyweight":    EquipmentBodyweight,
	"body weight":   EquipmentBodyweight,
	"körpergewicht": EquipmentBodyweight,
	"cable":         EquipmentCable,
	"cables":        EquipmentCable,
	"cable tower":   EquipmentCable,
	"kabelzug":      EquipmentCable,
	"machine":       EquipmentMachine,
	"smith machine": EquipmentMachine,
	"maschine":      EquipmentMachine,
	"multipresse":   EquipmentMachine,
}

// NormalizeEquipment maps an equipment label to its canonical category.
// Returns the canonical name and true if recognized, or the lowercased,
// trimmed input and false if unknown.
func NormalizeEquipment(raw string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := equipmentMap[lower]; ok {
		return canonical, true
	}
	return lower, false
}
