package ocr

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/medflow/idscan/internal/idscan/domain"
)

const confidenceKey = "confidence"

// aliases maps squashed key spellings (lowercase, alphanumerics only) to canonical names
var aliases = map[string]string{
	"idnumber":              "idNumber",
	"id":                    "idNumber",
	"idno":                  "idNumber",
	"documentnumber":        "idNumber",
	"documentno":            "idNumber",
	"licensenumber":         "idNumber",
	"licenseno":             "idNumber",
	"driverslicensenumber":  "idNumber",
	"driverlicensenumber":   "idNumber",
	"dlnumber":              "idNumber",
	"dln":                   "idNumber",
	"dl":                    "idNumber",

	"lastname":   "lastName",
	"surname":    "lastName",
	"familyname": "lastName",
	"last":       "lastName",

	"firstname":  "firstName",
	"givenname":  "firstName",
	"givennames": "firstName",
	"forename":   "firstName",
	"first":      "firstName",

	"middleinitial": "middleInitial",
	"middlename":    "middleInitial",
	"middle":        "middleInitial",
	"mi":            "middleInitial",

	"street":        "street",
	"streetaddress": "street",
	"address":       "street",
	"address1":      "street",
	"addressline1":  "street",

	"city":     "city",
	"town":     "city",
	"locality": "city",

	"state":    "state",
	"province": "state",
	"region":   "state",

	"zipcode":    "zipCode",
	"zip":        "zipCode",
	"postalcode": "zipCode",
	"postcode":   "zipCode",

	"sex":    "sex",
	"gender": "sex",

	"dateofbirth": "dateOfBirth",
	"dob":         "dateOfBirth",
	"birthdate":   "dateOfBirth",
	"birthday":    "dateOfBirth",

	"confidence":      confidenceKey,
	"confidencescore": confidenceKey,
}

// squash lowercases a key and drops everything that is not a letter or digit
func squash(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CanonicalKey returns the canonical field name for a reply key, or "" if unknown
func CanonicalKey(key string) string {
	return aliases[squash(key)]
}

// normalize remaps reply keys and applies per-field cleanup.
// The first scalar occurrence of a canonical key wins; unknown keys and
// array or object values are dropped.
func normalize(fields []field) *domain.Extraction {
	seen := make(map[string]bool)
	out := &domain.Extraction{}

	for _, f := range fields {
		name := CanonicalKey(f.key)
		if name == "" || seen[name] || !isScalar(f.value) {
			continue
		}
		seen[name] = true

		value := scalarString(f.value)
		switch name {
		case "idNumber":
			out.IDNumber = value
		case "lastName":
			out.LastName = value
		case "firstName":
			out.FirstName = value
		case "middleInitial":
			out.MiddleInitial = CleanMiddleInitial(value)
		case "street":
			out.Street = value
		case "city":
			out.City = value
		case "state":
			out.State = value
		case "zipCode":
			out.ZipCode = CleanZip(value)
		case "sex":
			out.Sex = CleanSex(value)
		case "dateOfBirth":
			out.DateOfBirth = value
		case confidenceKey:
			out.Confidence = cleanConfidence(value)
		}
	}

	return out
}

// CleanMiddleInitial keeps the first letter, uppercased
func CleanMiddleInitial(s string) string {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return string(unicode.ToUpper(r))
		}
	}
	return ""
}

// CleanSex maps anything starting with m or f to M or F, everything else to empty
func CleanSex(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	switch unicode.ToLower(rune(s[0])) {
	case 'm':
		return "M"
	case 'f':
		return "F"
	default:
		return ""
	}
}

// CleanZip keeps digits only, at most five
func CleanZip(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == 5 {
				break
			}
		}
	}
	return b.String()
}

// cleanConfidence accepts a number in [0,1]; anything else is dropped
func cleanConfidence(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 || v > 1 {
		return nil
	}
	return &v
}
