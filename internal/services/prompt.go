package services

import (
	"fmt"
	"strings"
)

// extractionRules are ordered by priority; the currency rule is evaluated first
// and overrides any other contextual inference.
var extractionRules = []string{
	`CURRENCY DETECTION (ABSOLUTE HIGHEST PRIORITY, evaluate first): If any price is written with a '$' symbol OR the word 'USD', the "currency" field MUST be "USD". In ALL other cases the currency is "IDR". This rule overrides any other contextual clue (nationality of the landlord, tourist area, language of the text).`,
	`STRICT EXTRACTION: If a piece of information is NOT explicitly written in the source material, its value MUST be null. Never guess, infer or invent values. This applies to "furnished", "petFriendly" and "smokingAllowed" too: if the policy is not mentioned, use null, never false.`,
	`NO DEFAULT MINIMUM STAY: "minimumStay" MUST NOT default to 12. Only set it when the source states a minimum stay or lease length; otherwise use null.`,
	`UNIT CONVERSION: Land and building sizes are square meters. "X Are" means X * 100 sqm (3 Are = 300). A minimum stay of "X years" means X * 12 months (min take 3 year = 36). If only a yearly price is given, set "yearlyRent" and leave "monthlyRent" null; put yearlyRent / 12 in "monthlyRentEquivalent".`,
	`ADDRESS SPECIFICITY: Do NOT default "locationArea" or "address" to "Bali". Use the most specific locality mentioned (Canggu, Seminyak, Ubud, Pererenan, Berawa, Kerobokan, Padang Linjong, Seseh, Uluwatu, Bingin, Kedungu, ...). Only use "Bali" when no specific area is mentioned.`,
}

const listingJSONSchema = `{
  "title": "string (short, e.g. \"3BR Villa with Pool in Canggu\")",
  "description": "string | null (one sentence summary)",
  "locationArea": "string | null (specific locality)",
  "address": "string | null",
  "bedrooms": "number | null",
  "bathrooms": "number | null",
  "currency": "\"USD\" | \"IDR\"",
  "monthlyRent": "number | null (price per month as stated)",
  "yearlyRent": "number | null (price per year as stated)",
  "monthlyRentEquivalent": "number | null (yearlyRent / 12)",
  "deposit": "number | null",
  "utilities": "number | null",
  "priceNote": "string | null (e.g. \"landlord discount for yearly lease\")",
  "minimumStay": "number | null (months)",
  "availableFrom": "string (YYYY-MM-DD) | null",
  "furnished": "boolean | null",
  "petFriendly": "boolean | null",
  "smokingAllowed": "boolean | null",
  "landSize": "number | null (sqm)",
  "buildingSize": "number | null (sqm)",
  "amenities": ["string"],
  "proximity": [{"time": "number | null", "unit": "string | null", "poi": "string | null"}],
  "reasoning": "string (short explanation of conversions and decisions)"
}`

type promptExample struct {
	id     string
	source string
	output string
}

var textExamples = []promptExample{
	{
		id:     "yearly_only_with_unit_conversion",
		source: `Available Now Brand New Villa in padang Linjong Price 275000000 / Year min Take 3 Year - 3 Bedroom - 3 Bathroom - Landsize 3 Are`,
		output: `{
  "title": "Brand New Villa in Padang Linjong",
  "description": null,
  "locationArea": "Padang Linjong",
  "address": null,
  "bedrooms": 3,
  "bathrooms": 3,
  "currency": "IDR",
  "monthlyRent": null,
  "yearlyRent": 275000000,
  "monthlyRentEquivalent": 22916667,
  "deposit": null,
  "utilities": null,
  "priceNote": null,
  "minimumStay": 36,
  "availableFrom": null,
  "furnished": null,
  "petFriendly": null,
  "smokingAllowed": null,
  "landSize": 300,
  "buildingSize": null,
  "amenities": ["Brand New"],
  "proximity": [],
  "reasoning": "No '$' or USD so currency is IDR. 275000000 / 12 = 22916667. Min take 3 year = 36 months. Landsize 3 Are = 300 sqm. Locality is Padang Linjong, not Bali. Furniture, pets and smoking are not mentioned so they are null."
}`,
	},
	{
		id:     "usd_with_minimum_stay",
		source: `Villa Pererenan $2200 USD/month, Lease: Minimum 12 months. Pets welcome.`,
		output: `{
  "title": "Villa in Pererenan",
  "description": null,
  "locationArea": "Pererenan",
  "address": null,
  "bedrooms": null,
  "bathrooms": null,
  "currency": "USD",
  "monthlyRent": 2200,
  "yearlyRent": null,
  "monthlyRentEquivalent": null,
  "deposit": null,
  "utilities": null,
  "priceNote": null,
  "minimumStay": 12,
  "availableFrom": null,
  "furnished": null,
  "petFriendly": true,
  "smokingAllowed": null,
  "landSize": null,
  "buildingSize": null,
  "amenities": [],
  "proximity": [],
  "reasoning": "Currency is USD because of '$' and 'USD'. Minimum 12 months is stated. Bedrooms are not mentioned so they are null."
}`,
	},
}

var imageExamples = []promptExample{
	{
		id:     "screenshot_with_discount",
		source: `(screenshot) "Seminyak townhouse - 2 bed 2 bath - 45,000,000/month or 500,000,000/year (discount for yearly) - no smoking"`,
		output: `{
  "title": "Townhouse in Seminyak",
  "description": null,
  "locationArea": "Seminyak",
  "address": null,
  "bedrooms": 2,
  "bathrooms": 2,
  "currency": "IDR",
  "monthlyRent": 45000000,
  "yearlyRent": 500000000,
  "monthlyRentEquivalent": 41666667,
  "deposit": null,
  "utilities": null,
  "priceNote": "discount for yearly lease",
  "minimumStay": null,
  "availableFrom": null,
  "furnished": null,
  "petFriendly": null,
  "smokingAllowed": false,
  "landSize": null,
  "buildingSize": null,
  "amenities": [],
  "proximity": [],
  "reasoning": "No '$' or USD in the image so currency is IDR. 500000000 / 12 = 41666667. Yearly discount noted. Smoking is explicitly forbidden; furniture and pets are not mentioned."
}`,
	},
}

// BuildTextPrompt builds the extraction prompt for a pasted listing. The text
// should already be passed through NormalizePriceText.
func BuildTextPrompt(normalizedText string) string {
	var b strings.Builder
	writePromptHeader(&b, "the provided property description text")
	writePromptRules(&b)
	writePromptSchema(&b)
	writePromptExamples(&b, textExamples)

	b.WriteString("Now analyze the following source material and return ONLY the JSON object.\n")
	b.WriteString("<source_material>\n")
	b.WriteString(normalizedText)
	b.WriteString("\n</source_material>\n")
	return b.String()
}

// BuildImagePrompt builds the extraction prompt for an uploaded listing image
func BuildImagePrompt() string {
	var b strings.Builder
	writePromptHeader(&b, "the attached image (a screenshot or photo of a rental listing)")
	writePromptRules(&b)
	b.WriteString("Read every piece of text visible in the image, including prices, captions and overlays, before applying the rules.\n\n")
	writePromptSchema(&b)
	writePromptExamples(&b, imageExamples)

	b.WriteString("Now analyze the attached image and return ONLY the JSON object.\n")
	return b.String()
}

func writePromptHeader(b *strings.Builder, subject string) {
	fmt.Fprintf(b, `You are a hyper-precise data extraction engine for real estate rentals in Bali, Indonesia.
Your ONLY task is to populate a JSON object based *only* on %s.
The output MUST be a single valid JSON object, without surrounding text or markdown formatting.

`, subject)
}

func writePromptRules(b *strings.Builder) {
	b.WriteString("<critical_instructions>\n")
	for i, rule := range extractionRules {
		fmt.Fprintf(b, "  <rule id=\"%d\">%s</rule>\n", i+1, rule)
	}
	b.WriteString("</critical_instructions>\n\n")
}

func writePromptSchema(b *strings.Builder) {
	b.WriteString("<json_structure>\n")
	b.WriteString(listingJSONSchema)
	b.WriteString("\n</json_structure>\n\n")
}

func writePromptExamples(b *strings.Builder, examples []promptExample) {
	b.WriteString("<examples>\n")
	for _, ex := range examples {
		fmt.Fprintf(b, "  <example id=%q>\n    <source>%s</source>\n    <output>\n%s\n    </output>\n  </example>\n", ex.id, ex.source, ex.output)
	}
	b.WriteString("</examples>\n\n")
}
