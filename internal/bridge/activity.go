package bridge

// activityTags maps native numeric workout-type codes to canonical tags.
// Unknown codes read as "other". Immutable; built once at process start.
var activityTags = map[uint32]string{
	1:    "americanFootball",
	2:    "archery",
	3:    "australianFootball",
	4:    "badminton",
	5:    "baseball",
	6:    "basketball",
	7:    "bowling",
	8:    "boxing",
	9:    "climbing",
	10:   "cricket",
	11:   "crossTraining",
	12:   "curling",
	13:   "cycling",
	14:   "dance",
	15:   "danceInspiredTraining",
	16:   "elliptical",
	17:   "equestrianSports",
	18:   "fencing",
	19:   "fishing",
	20:   "functionalStrengthTraining",
	21:   "golf",
	22:   "gymnastics",
	23:   "handball",
	24:   "hiking",
	25:   "hockey",
	26:   "hunting",
	27:   "lacrosse",
	28:   "martialArts",
	29:   "mindAndBody",
	30:   "mixedMetabolicCardioTraining",
	31:   "paddleSports",
	32:   "play",
	33:   "preparationAndRecovery",
	34:   "racquetball",
	35:   "rowing",
	36:   "rugby",
	37:   "running",
	38:   "sailing",
	39:   "skatingSports",
	40:   "snowSports",
	41:   "soccer",
	42:   "softball",
	43:   "squash",
	44:   "stairClimbing",
	45:   "surfingSports",
	46:   "swimming",
	47:   "tableTennis",
	48:   "tennis",
	49:   "trackAndField",
	50:   "traditionalStrengthTraining",
	51:   "volleyball",
	52:   "walking",
	53:   "waterFitness",
	54:   "waterPolo",
	55:   "waterSports",
	56:   "wrestling",
	57:   "yoga",
	58:   "barre",
	59:   "coreTraining",
	60:   "crossCountrySkiing",
	61:   "downhillSkiing",
	62:   "flexibility",
	63:   "highIntensityIntervalTraining",
	64:   "jumpRope",
	65:   "kickboxing",
	66:   "pilates",
	67:   "snowboarding",
	68:   "stairs",
	69:   "stepTraining",
	70:   "wheelchairWalkPace",
	71:   "wheelchairRunPace",
	72:   "taiChi",
	73:   "mixedCardio",
	74:   "handCycling",
	75:   "discSports",
	76:   "fitnessGaming",
	77:   "cardioDance",
	78:   "socialDance",
	79:   "pickleball",
	80:   "cooldown",
	82:   "swimBikeRun",
	83:   "transition",
	84:   "underwaterDiving",
	3000: "other",
}

const activityCodeOther = 3000

// ActivityTag returns the canonical tag for a native workout-type code,
// defaulting to "other".
func ActivityTag(code uint32) string {
	if tag, ok := activityTags[code]; ok {
		return tag
	}
	return "other"
}

// activityCodes is the write-direction table used by the save-workout path.
// It covers only the save vocabulary; every tag it produces must exist in
// activityTags' tag set (or alias one that does).
var activityCodes = map[string]uint32{
	"rock-climbing":     9,
	"climbing":          9,
	"hiking":            24,
	"running":           37,
	"walking":           52,
	"cycling":           13,
	"biking":            13,
	"strength-training": 50,
	"yoga":              57,
	"other":             activityCodeOther,
}

// ActivityCode returns the native workout-type code for a save-vocabulary
// tag, defaulting to the "other" code.
func ActivityCode(tag string) uint32 {
	if code, ok := activityCodes[tag]; ok {
		return code
	}
	return activityCodeOther
}
