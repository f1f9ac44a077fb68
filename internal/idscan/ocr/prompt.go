package ocr

// Prompt is sent with every image. The reply is expected to hold one JSON
// object; anything around it is ignored.
const Prompt = `You are reading a photo of a US identity document such as a driver's license or state ID card.
Extract the following fields and answer with a single JSON object using exactly these keys:

{
  "idNumber": "the license or ID number",
  "lastName": "family name",
  "firstName": "given name",
  "middleInitial": "single letter, empty if none",
  "street": "street address line",
  "city": "city",
  "state": "two letter state code",
  "zipCode": "5 digit ZIP code",
  "sex": "M or F",
  "dateOfBirth": "MM/DD/YYYY",
  "confidence": 0.0
}

Use an empty string for any field you cannot read. Set "confidence" to a number between 0 and 1
describing how sure you are about the whole extraction. Do not add any other keys or commentary.`
