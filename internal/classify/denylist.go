package classify

// denylist holds badge, model and body-type words that OCR finds on cars and
// that must never be treated as a plate. Entries are in normalized form.
var denylist = toSet(
	// brands
	"TOYOTA", "HONDA", "NISSAN", "MAZDA", "SUBARU", "SUZUKI", "MITSUBISHI",
	"LEXUS", "INFINITI", "ACURA", "HYUNDAI", "KIA", "GENESIS",
	"FORD", "CHEVROLET", "CHEVY", "DODGE", "JEEP", "RAM", "CHRYSLER",
	"BUICK", "CADILLAC", "GMC", "LINCOLN", "TESLA",
	"BMW", "MERCEDES", "BENZ", "AUDI", "VOLKSWAGEN", "VW", "PORSCHE",
	"OPEL", "SKODA", "SEAT", "RENAULT", "PEUGEOT", "CITROEN", "FIAT",
	"ALFA", "ROMEO", "VOLVO", "SAAB", "JAGUAR", "LANDROVER", "ROVER",
	"MINI", "LADA", "DACIA", "GEELY", "CHERY", "HAVAL",
	// models and trims
	"COROLLA", "CAMRY", "PRIUS", "RAV4", "HILUX", "LANDCRUISER", "YARIS",
	"CIVIC", "ACCORD", "CRV", "HRV", "JAZZ", "FIT",
	"GOLF", "PASSAT", "POLO", "TIGUAN", "JETTA", "TOUAREG",
	"FOCUS", "FIESTA", "MONDEO", "MUSTANG", "RANGER",
	"OCTAVIA", "SUPERB", "RAPID", "SOLARIS", "RIO", "SPORTAGE", "TUCSON",
	"ELANTRA", "SONATA", "CRETA", "QASHQAI", "XTRAIL", "ALMERA", "TIIDA",
	"OUTLANDER", "LANCER", "PAJERO", "FORESTER", "OUTBACK", "IMPREZA",
	"GRANTA", "VESTA", "PRIORA", "KALINA", "NIVA", "LARGUS",
	"QUATTRO", "XDRIVE", "4MATIC", "4MOTION", "AMG", "GTI", "TDI", "TSI",
	"HYBRID", "TURBO", "SPORT", "LIMITED", "PREMIUM", "TOURING",
	"AWD", "4WD", "4X4", "V6", "V8", "GT", "RS", "SE", "LE", "XLE",
	// body types
	"SEDAN", "COUPE", "WAGON", "HATCHBACK", "CABRIO", "CONVERTIBLE",
	"ESTATE", "PICKUP", "VAN", "SUV", "CROSSOVER", "LIMOUSINE",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// IsDenied reports whether the normalized string, or its digits-read-as-letters
// form, is a known non-plate word. Checking the letter form catches readings
// such as "T0Y0TA".
func IsDenied(norm string) bool {
	if _, ok := denylist[norm]; ok {
		return true
	}
	_, ok := denylist[substitute(norm, digitToLetter)]
	return ok
}
