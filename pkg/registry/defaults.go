package registry

import "sme-onboarding/internal/common/validation"

var imageOrPDF = []string{".pdf", ".jpg", ".png"}

func defaultCountries() []Country {
	return []Country{
		{
			Code:     "SG",
			Name:     "Singapore",
			Currency: "SGD",
			Fields: []FieldSpec{
				{
					Key:         "gstNumber",
					Label:       "GST Registration Number",
					Required:    true,
					Placeholder: "e.g., 123456789D",
					Rule:        validation.Rule{Pattern: `^\d{8}[A-Z]$`},
					Error:       "Invalid GST format (8 digits + 1 letter)",
				},
				{
					Key:         "businessRegistrationNumber",
					Label:       "Business Registration Number",
					Required:    true,
					Placeholder: "e.g., 123456789L",
					Rule:        validation.Rule{Pattern: `^\d{8}[A-Z]$`},
					Error:       "Invalid BRN format",
				},
				{
					Key:         "acraUEN",
					Label:       "ACRA UEN",
					Required:    true,
					Placeholder: "e.g., 123456789D",
					Rule:        validation.Rule{Pattern: `^\w{9,}$`},
					Error:       "Invalid UEN format",
				},
			},
			Documents: []DocumentSpec{
				{Key: "bank_statement", Label: "Bank Statement (last 3 months)", Required: true, Accept: imageOrPDF, MaxSizeMB: 10},
				{Key: "business_registration", Label: "ACRA Business Registration (BizFile)", Required: true, Accept: []string{".pdf"}, MaxSizeMB: 10},
			},
		},
		{
			Code:     "ID",
			Name:     "Indonesia",
			Currency: "IDR",
			Fields: []FieldSpec{
				{
					Key:         "npwp",
					Label:       "NPWP (Tax Identification Number)",
					Required:    true,
					Placeholder: "e.g., 12.345.678.9-012.345",
					Rule:        validation.Rule{Pattern: `^\d{2}\.\d{3}\.\d{3}\.\d-\d{3}\.\d{3}$`},
					Error:       "Invalid NPWP format (XX.XXX.XXX.X-XXX.XXX)",
				},
				{
					Key:         "companyRegistrationNumber",
					Label:       "Company Registration Number (NIB)",
					Required:    true,
					Placeholder: "e.g., 0123456789012345",
					Rule:        validation.Rule{Pattern: `^\d{16}$`},
					Error:       "Invalid NIB format (16 digits)",
				},
				{
					Key:         "siupNumber",
					Label:       "SIUP Number",
					Required:    false,
					Placeholder: "e.g., 123/XYZ/2024",
					Rule:        validation.Rule{Pattern: `^\d{1,4}/[A-Z]+/\d{4}$`},
					Error:       "Invalid SIUP format (e.g., 123/XYZ/2024)",
				},
			},
			Documents: []DocumentSpec{
				{Key: "bank_statement", Label: "Bank Statement (last 3 months)", Required: true, Accept: imageOrPDF, MaxSizeMB: 10},
				{Key: "npwp_certificate", Label: "NPWP Certificate", Required: true, Accept: imageOrPDF, MaxSizeMB: 10},
				{Key: "nib_certificate", Label: "NIB Certificate (OSS)", Required: true, Accept: []string{".pdf"}, MaxSizeMB: 10},
			},
		},
	}
}

func defaultBusinessTypes() []BusinessType {
	return []BusinessType{
		{
			ID:          "sole_proprietorship",
			Label:       "Sole Proprietorship",
			Description: "Single owner business",
			Fields: []FieldSpec{
				{Key: "ownerName", Label: "Owner Full Name", Required: true, Placeholder: "Enter full name",
					Rule: validation.Rule{MinLength: 2}, Error: "Owner name must be at least 2 characters"},
				{Key: "ownerIdNumber", Label: "Owner ID Number", Required: true, Placeholder: "National ID or Passport",
					Rule: validation.Rule{MinLength: 5}, Error: "Invalid ID number"},
			},
			Documents: []DocumentSpec{
				{Key: "owner_id", Label: "Owner ID (NRIC/Passport)", Required: true, Accept: imageOrPDF, MaxSizeMB: 10},
			},
		},
		{
			ID:          "partnership",
			Label:       "Partnership",
			Description: "Multiple partners business",
			Fields: []FieldSpec{
				{Key: "partnerCount", Label: "Number of Partners", Required: true, Placeholder: "e.g., 2",
					Rule: validation.Rule{Pattern: `^\d+$`, MinInt: validation.MinInt(2)}, Error: "Must have at least 2 partners"},
				{Key: "partnerDetails", Label: "Partner Details (CSV: Name, ID)", Required: true, Multiline: true,
					Placeholder: "Partner 1 Name, ID1\nPartner 2 Name, ID2",
					Rule:        validation.Rule{MinLines: 2}, Error: "Please provide details for all partners"},
			},
			Documents: []DocumentSpec{
				{Key: "partnership_agreement", Label: "Partnership Agreement (signed)", Required: true, Accept: imageOrPDF, MaxSizeMB: 15},
				{Key: "all_partners_id", Label: "Partners' IDs (NRIC / Passport) - all partners", Required: true,
					Multiple: true, MaxFiles: 20, Accept: imageOrPDF, MaxSizeMB: 10},
			},
		},
		{
			ID:          "private_limited",
			Label:       "Private Limited Company",
			Description: "Limited liability company",
			Fields: []FieldSpec{
				{Key: "directorCount", Label: "Number of Directors", Required: true, Placeholder: "e.g., 1",
					Rule: validation.Rule{Pattern: `^\d+$`, MinInt: validation.MinInt(1)}, Error: "Must have at least 1 director"},
				{Key: "directorDetails", Label: "Director Details (CSV: Name, ID)", Required: true, Multiline: true,
					Placeholder: "Director 1 Name, ID1\nDirector 2 Name, ID2",
					Rule:        validation.Rule{MinLines: 1}, Error: "Please provide details for all directors"},
				{Key: "shareholderCount", Label: "Number of Shareholders", Required: true, Placeholder: "e.g., 1",
					Rule: validation.Rule{Pattern: `^\d+$`, MinInt: validation.MinInt(1)}, Error: "Must have at least 1 shareholder"},
				{Key: "shareholderDetails", Label: "Shareholder Details (CSV: Name, Ownership %)", Required: true, Multiline: true,
					Placeholder: "Shareholder 1 Name, 50%\nShareholder 2 Name, 50%",
					Rule:        validation.Rule{MinLines: 1}, Error: "Please provide shareholder details"},
			},
			Documents: []DocumentSpec{
				{Key: "certificate_of_incorporation", Label: "Certificate of Incorporation", Required: true, Accept: imageOrPDF, MaxSizeMB: 10},
				{Key: "business_profile", Label: "Company Profile (e.g., ACRA BizFile / NIB extract)", Required: true, Accept: []string{".pdf"}, MaxSizeMB: 10},
				{Key: "all_directors_id", Label: "Directors' IDs (NRIC / Passport)", Required: true,
					Multiple: true, MaxFiles: 20, Accept: imageOrPDF, MaxSizeMB: 10},
				{Key: "all_shareholders_id", Label: "Shareholders' IDs (NRIC / Passport)", Required: true,
					Multiple: true, MaxFiles: 50, Accept: imageOrPDF, MaxSizeMB: 10},
				{Key: "ownership_structure_chart", Label: "Ownership Structure Chart (if applicable)", Required: false, Accept: imageOrPDF, MaxSizeMB: 15},
			},
		},
		{
			ID:          "public_limited",
			Label:       "Public Limited Company",
			Description: "Publicly traded company",
			Fields: []FieldSpec{
				{Key: "stockExchange", Label: "Stock Exchange Listed On", Required: true, Placeholder: "e.g., SGX, HKEX",
					Rule: validation.Rule{MinLength: 2}, Error: "Please specify the stock exchange"},
				{Key: "tickerSymbol", Label: "Ticker Symbol", Required: true, Placeholder: "e.g., ABC",
					Rule: validation.Rule{Pattern: `^[A-Z]{1,5}$`}, Error: "Invalid ticker symbol format"},
			},
			Documents: []DocumentSpec{
				{Key: "certificate_of_incorporation", Label: "Certificate of Incorporation", Required: true, Accept: imageOrPDF, MaxSizeMB: 10},
				{Key: "business_profile", Label: "Company Profile (e.g., ACRA BizFile / equivalent)", Required: true, Accept: []string{".pdf"}, MaxSizeMB: 10},
				{Key: "latest_annual_report", Label: "Latest Annual Report", Required: true, Accept: []string{".pdf"}, MaxSizeMB: 30},
			},
		},
	}
}

// Default returns the built-in registry. Each call builds fresh tables.
func Default() *Registry {
	r, err := newRegistry(defaultCountries(), defaultBusinessTypes())
	if err != nil {
		panic("registry: built-in tables are invalid: " + err.Error())
	}
	return r
}
