package ocr

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medflow/idscan/pkg/errors"
)

func appCode(t *testing.T, err error) (string, int) {
	t.Helper()
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T", err)
	return appErr.Code, appErr.StatusCode
}

func TestParseReply_CanonicalKeys(t *testing.T) {
	reply := "Here is the data:\n```json\n" + `{
		"idNumber": "D123-4567",
		"lastName": " Doe ",
		"firstName": "Jane",
		"middleInitial": "q.",
		"street": "1 Main St",
		"city": "Springfield",
		"state": "IL",
		"zipCode": "62701-1234",
		"sex": "female",
		"dateOfBirth": "01/02/1990",
		"confidence": 0.93
	}` + "\n```"

	got, err := ParseReply(reply)
	require.NoError(t, err)

	assert.Equal(t, "D123-4567", got.IDNumber)
	assert.Equal(t, "Doe", got.LastName)
	assert.Equal(t, "Jane", got.FirstName)
	assert.Equal(t, "Q", got.MiddleInitial)
	assert.Equal(t, "62701", got.ZipCode)
	assert.Equal(t, "F", got.Sex)
	assert.Equal(t, "01/02/1990", got.DateOfBirth)
	require.NotNil(t, got.Confidence)
	assert.InDelta(t, 0.93, *got.Confidence, 1e-9)
}

func TestParseReply_Aliases(t *testing.T) {
	reply := `{"surname":"Smith","Given_Name":"Al","gender":"Male","ZIP":"9021","DOB":"1980-05-06","license_no":12345,"eye_color":"BRN"}`

	got, err := ParseReply(reply)
	require.NoError(t, err)

	assert.Equal(t, "Smith", got.LastName)
	assert.Equal(t, "Al", got.FirstName)
	assert.Equal(t, "M", got.Sex)
	assert.Equal(t, "9021", got.ZipCode)
	assert.Equal(t, "1980-05-06", got.DateOfBirth)
	assert.Equal(t, "12345", got.IDNumber)
	assert.Nil(t, got.Confidence)
}

func TestParseReply_FlattensNestedAddress(t *testing.T) {
	reply := `{"name":{"first":"Ann","last":"Lee"},"address":{"street":"9 Elm","city":"Austin","state":"TX","postal_code":"73301"}}`

	got, err := ParseReply(reply)
	require.NoError(t, err)

	assert.Equal(t, "Ann", got.FirstName)
	assert.Equal(t, "Lee", got.LastName)
	assert.Equal(t, "9 Elm", got.Street)
	assert.Equal(t, "Austin", got.City)
	assert.Equal(t, "73301", got.ZipCode)
}

func TestParseReply_FirstOccurrenceWins(t *testing.T) {
	got, err := ParseReply(`{"lastName":"First","surname":"Second","sex":null,"gender":"F"}`)
	require.NoError(t, err)
	assert.Equal(t, "First", got.LastName)
	assert.Equal(t, "", got.Sex)
}

func TestParseReply_IgnoresNonScalarValues(t *testing.T) {
	reply := `{"lastName":["Wrong"],"surname":"Doe","firstName":"Jane","zipCode":"12345",` +
		`"fieldsNotFound":["middleInitial"],"address":{"street":"1 Main","geo":{"lat":1}},"city":{"a":{"b":"c"}}}`

	got, err := ParseReply(reply)
	require.NoError(t, err)

	assert.Equal(t, "Doe", got.LastName)
	assert.Equal(t, "Jane", got.FirstName)
	assert.Equal(t, "12345", got.ZipCode)
	assert.Equal(t, "1 Main", got.Street)
	assert.Equal(t, "", got.City)
	assert.Equal(t, "", got.MiddleInitial)
}

func TestParseReply_Errors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		code  string
	}{
		{"empty", "   ", "OCR_EMPTY_RESPONSE"},
		{"no json", "I could not read the document.", "OCR_NO_JSON"},
		{"malformed", `{"lastName": "Doe",}`, "OCR_INVALID_RESPONSE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReply(tt.reply)
			require.Error(t, err)
			code, status := appCode(t, err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, http.StatusInternalServerError, status)
		})
	}
}

func TestCleanHelpers(t *testing.T) {
	assert.Equal(t, "M", CleanSex("m"))
	assert.Equal(t, "F", CleanSex(" Female"))
	assert.Equal(t, "", CleanSex("X"))
	assert.Equal(t, "", CleanSex(""))

	assert.Equal(t, "12345", CleanZip("12345-6789"))
	assert.Equal(t, "123", CleanZip("1a2b3"))

	assert.Equal(t, "J", CleanMiddleInitial("john"))
	assert.Equal(t, "", CleanMiddleInitial(". "))
}

func TestCanonicalKey(t *testing.T) {
	assert.Equal(t, "lastName", CanonicalKey("surname"))
	assert.Equal(t, "zipCode", CanonicalKey("zip_code"))
	assert.Equal(t, "sex", CanonicalKey("Gender"))
	assert.Equal(t, "idNumber", CanonicalKey("Driver's License Number"))
	assert.Equal(t, "", CanonicalKey("hairColor"))
}
