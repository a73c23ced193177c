package form

import (
	"strings"
	"testing"

	stderrors "sme-onboarding/internal/common/errors"
	"sme-onboarding/internal/common/logger"
	"sme-onboarding/internal/common/validation"
	"sme-onboarding/internal/onboarding/staging"
	"sme-onboarding/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wizardFixture struct {
	wizard *Wizard
	stager *staging.Stager
}

func newWizardFixture(t *testing.T) wizardFixture {
	log := logger.NewTestLogger(t)
	stager := staging.NewStager(validation.FileOptions{}, log)
	return wizardFixture{
		wizard: NewWizard(registry.Default(), stager, log),
		stager: stager,
	}
}

func pdf(name string) *staging.File {
	return staging.NewFile(name, "application/pdf", []byte("%PDF-1.4"))
}

// fillSoleProprietorSG fills steps 1 and 2 with valid values.
func fillSoleProprietorSG(t *testing.T, w *Wizard) {
	t.Helper()
	base := map[string]string{
		"companyName":        "Acme Trading",
		"registrationNumber": "201912345K",
		"country":            "SG",
		"businessType":       "sole_proprietorship",
		"email":              "ops@acme.sg",
		"phone":              "+65 6123 4567",
		"bankAccountNumber":  "1234567890",
		"swift":              "DBSSSGSG",
		"currency":           "SGD",
		"annualRevenue":      "150000.50",
		"taxId":              "T12-3456",
	}
	for _, name := range BaseFields {
		require.NoError(t, w.SetField(name, base[name]))
	}
	require.NoError(t, w.SetCountryField("gstNumber", "12345678D"))
	require.NoError(t, w.SetCountryField("businessRegistrationNumber", "12345678L"))
	require.NoError(t, w.SetCountryField("acraUEN", "201912345K"))
	require.NoError(t, w.SetBusinessTypeField("ownerName", "Tan Ah Kow"))
	require.NoError(t, w.SetBusinessTypeField("ownerIdNumber", "S1234567A"))
}

// ==========================
// Schema membership
// ==========================

func TestWizard_SetFieldRejectsUnknownName(t *testing.T) {
	fx := newWizardFixture(t)
	err := fx.wizard.SetField("favouriteColour", "teal")
	require.Error(t, err)
	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeUnknownField))
}

func TestWizard_DynamicFieldMembershipFollowsSelection(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard

	err := w.SetCountryField("gstNumber", "12345678D")
	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeUnknownField), "no country selected yet")

	require.NoError(t, w.SetField("country", "SG"))
	require.NoError(t, w.SetCountryField("gstNumber", "12345678D"))

	err = w.SetCountryField("npwp", "12.345.678.9-012.345")
	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeUnknownField))

	err = w.SetBusinessTypeField("ownerName", "Tan")
	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeUnknownField))
}

func TestWizard_SelectionChangeDropsDynamicValues(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard
	fillSoleProprietorSG(t, w)

	require.NoError(t, w.SetField("country", "SG"))
	assert.Equal(t, "12345678D", w.State().Data.CountrySpecificFields["gstNumber"], "same value keeps answers")

	require.NoError(t, w.SetField("country", "ID"))
	assert.Empty(t, w.State().Data.CountrySpecificFields)
	assert.NotEmpty(t, w.State().Data.BusinessTypeSpecificFields)

	require.NoError(t, w.SetField("businessType", "partnership"))
	assert.Empty(t, w.State().Data.BusinessTypeSpecificFields)
}

// ==========================
// Validation
// ==========================

func TestWizard_ValidateField(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard

	assert.Equal(t, validation.RequiredMessage, w.ValidateField("email"))
	assert.Equal(t, validation.RequiredMessage, w.State().Errors["email"])

	require.NoError(t, w.SetField("email", "not-an-email"))
	assert.Equal(t, "Invalid email address", w.ValidateField("email"))

	require.NoError(t, w.SetField("email", "  ops@acme.sg  "))
	assert.Equal(t, "", w.ValidateField("email"))

	require.NoError(t, w.SetField("country", "FR"))
	assert.Equal(t, "Unsupported country", w.ValidateField("country"))
}

func TestWizard_DynamicValidationIsContextDependent(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard

	require.NoError(t, w.SetField("country", "SG"))
	require.NoError(t, w.SetCountryField("gstNumber", "1234"))
	assert.Equal(t, "Invalid GST format (8 digits + 1 letter)", w.ValidateField("gstNumber"))

	require.NoError(t, w.SetCountryField("gstNumber", ""))
	assert.Equal(t, "GST Registration Number is required", w.ValidateField("gstNumber"))

	// Under ID the key is not declared, so nothing validates it.
	require.NoError(t, w.SetField("country", "ID"))
	assert.Equal(t, "", w.ValidateField("gstNumber"))

	require.NoError(t, w.SetCountryField("siupNumber", ""))
	assert.Equal(t, "", w.ValidateField("siupNumber"), "optional and empty passes")
}

func TestWizard_ValidateStep(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard

	assert.True(t, w.ValidateStep(StepBrief))
	assert.False(t, w.ValidateStep(StepBasicInfo))
	assert.Equal(t, validation.RequiredMessage, w.State().Errors["companyName"])

	fillSoleProprietorSG(t, w)
	assert.True(t, w.ValidateStep(StepBasicInfo))
	assert.True(t, w.ValidateStep(StepFinancial))

	assert.False(t, w.ValidateStep(StepDocuments))
	errs := w.State().Errors
	assert.Equal(t, "KYC document is required", errs["kycDocument"])
	assert.Equal(t, "Bank Statement (last 3 months) is required", errs["bank_statement"])
	assert.Equal(t, "Owner ID (NRIC/Passport) is required", errs["owner_id"])

	for _, slot := range append(append([]string{}, FixedDocumentSlots...), w.RequiredDocuments()...) {
		require.NoError(t, w.StageDocument(slot, pdf(slot+".pdf")))
	}
	assert.True(t, w.ValidateStep(StepDocuments))
}

// ==========================
// Document staging
// ==========================

func TestWizard_StageDocumentOversizedLeavesSlotEmpty(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard

	big := &staging.File{Name: "scan.png", Size: 6 * 1024 * 1024, ContentType: "image/png"}
	err := w.StageDocument("kycDocument", big)
	require.Error(t, err)
	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeFileTooLarge))

	s := w.State()
	assert.Nil(t, s.Data.Documents["kycDocument"])
	assert.Contains(t, s.Errors["kycDocument"], "5 MB")
	assert.Equal(t, 0, fx.stager.Live())
}

func TestWizard_StageDocumentRejectionKeepsPreviousFile(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard

	require.NoError(t, w.StageDocument("businessLicense", pdf("license.pdf")))
	prev := w.State().Data.Documents["businessLicense"]
	require.NotNil(t, prev)

	rejects := []*staging.File{
		{Name: "license-v2.pdf", Size: validation.DefaultMaxFileSize + 1, ContentType: "application/pdf"},
		staging.NewFile("license.txt", "text/plain", []byte("plain")),
	}
	for _, f := range rejects {
		require.Error(t, w.StageDocument("businessLicense", f))
		s := w.State()
		assert.Same(t, prev, s.Data.Documents["businessLicense"])
		assert.NotEmpty(t, s.Errors["businessLicense"])
	}
	assert.Equal(t, 1, fx.stager.Live())
}

func TestWizard_StageDocumentPDFFallback(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard

	for _, ct := range []string{"application/octet-stream", "", "binary/whatever"} {
		f := staging.NewFile("Proof.PDF", ct, []byte("%PDF"))
		require.NoError(t, w.StageDocument("proofOfAddress", f), ct)
		assert.Equal(t, "", w.State().Errors["proofOfAddress"])
	}
}

func TestWizard_StageDocumentReplacementReleasesHandle(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard

	require.NoError(t, w.StageDocument("kycDocument", pdf("a.pdf")))
	first := w.State().Data.Documents["kycDocument"]
	require.NoError(t, w.StageDocument("kycDocument", pdf("b.pdf")))

	_, live := fx.stager.Lookup(first.Handle)
	assert.False(t, live)
	assert.Equal(t, 1, fx.stager.Live())

	w.ClearDocument("kycDocument")
	assert.Nil(t, w.State().Data.Documents["kycDocument"])
	assert.Equal(t, 0, fx.stager.Live())
}

func TestWizard_StageDocumentSlotMembership(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard

	err := w.StageDocument("bank_statement", pdf("bank.pdf"))
	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeUnknownField), "country not selected")

	require.NoError(t, w.SetField("country", "SG"))
	require.NoError(t, w.StageDocument("bank_statement", pdf("bank.pdf")))

	// business_registration only accepts .pdf
	err = w.StageDocument("business_registration", staging.NewFile("bizfile.png", "image/png", []byte{1}))
	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeFileTypeNotAccepted))
	assert.True(t, strings.HasPrefix(w.State().Errors["business_registration"], "File type not accepted"))
}

func TestWizard_SelectionChangeDropsUndeclaredSlots(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard
	require.NoError(t, w.SetField("country", "SG"))
	require.NoError(t, w.StageDocument("kycDocument", pdf("kyc.pdf")))
	require.NoError(t, w.StageDocument("bank_statement", pdf("bank.pdf")))
	require.NoError(t, w.StageDocument("business_registration", pdf("bizfile.pdf")))
	require.Equal(t, 3, fx.stager.Live())

	require.NoError(t, w.SetField("country", "ID"))

	s := w.State()
	assert.NotContains(t, s.Data.Documents, "business_registration")
	assert.NotContains(t, s.Errors, "business_registration")
	assert.NotContains(t, w.DocumentSlots(), "business_registration")
	// declared by both countries
	assert.NotNil(t, s.Data.Documents["bank_statement"])
	assert.NotNil(t, s.Data.Documents["kycDocument"])
	assert.Equal(t, 2, fx.stager.Live())
}

func TestWizard_BusinessTypeChangeDropsMultiFileSlot(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard
	require.NoError(t, w.SetField("country", "SG"))
	require.NoError(t, w.SetField("businessType", "partnership"))
	require.NoError(t, w.StageDocument("all_partners_id", pdf("p1.pdf")))
	require.NoError(t, w.StageDocument("all_partners_id", pdf("p2.pdf")))
	require.NoError(t, w.StageDocument(SupportingSlot, pdf("extra.pdf")))
	require.Equal(t, 3, fx.stager.Live())

	require.NoError(t, w.SetField("businessType", "private_limited"))

	s := w.State()
	assert.False(t, s.HasDocument("all_partners_id"))
	assert.NotContains(t, s.Data.DocumentLists, "all_partners_id")
	assert.True(t, s.HasDocument(SupportingSlot))
	assert.Equal(t, 1, fx.stager.Live())
}

func TestWizard_UnchangedSelectionKeepsDocuments(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard
	require.NoError(t, w.SetField("country", "SG"))
	require.NoError(t, w.StageDocument("business_registration", pdf("bizfile.pdf")))

	require.NoError(t, w.SetField("country", "SG"))
	assert.True(t, w.State().HasDocument("business_registration"))
	assert.Equal(t, 1, fx.stager.Live())
}

// ==========================
// Multi-file slots
// ==========================

func TestWizard_MultiFileSlotKeepsEveryFile(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard
	require.NoError(t, w.SetField("country", "SG"))
	require.NoError(t, w.SetField("businessType", "partnership"))
	assert.True(t, w.IsMultiFile("all_partners_id"))
	assert.False(t, w.IsMultiFile("partnership_agreement"))
	assert.Equal(t, 20, w.FileLimit("all_partners_id"))

	require.NoError(t, w.StageDocument("all_partners_id", pdf("p1.pdf")))
	require.NoError(t, w.StageDocument("all_partners_id", pdf("p2.pdf")))

	files := w.State().Files("all_partners_id")
	require.Len(t, files, 2)
	assert.Equal(t, "p1.pdf", files[0].Name)
	assert.Equal(t, "p2.pdf", files[1].Name)
	assert.Nil(t, w.State().Data.Documents["all_partners_id"])
	assert.Equal(t, 2, fx.stager.Live())

	assert.True(t, w.RemoveDocumentFile("all_partners_id", 0))
	assert.False(t, w.RemoveDocumentFile("all_partners_id", 5))
	files = w.State().Files("all_partners_id")
	require.Len(t, files, 1)
	assert.Equal(t, "p2.pdf", files[0].Name)
	assert.Equal(t, 1, fx.stager.Live())

	w.ClearDocument("all_partners_id")
	assert.False(t, w.State().HasDocument("all_partners_id"))
	assert.Equal(t, 0, fx.stager.Live())
}

func TestWizard_MultiFileSlotLimit(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard

	for i := 0; i < registry.DefaultMaxFiles; i++ {
		require.NoError(t, w.StageDocument(SupportingSlot, pdf("extra.pdf")))
	}
	err := w.StageDocument(SupportingSlot, pdf("one-more.pdf"))
	require.Error(t, err)
	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeFileLimitExceeded))

	s := w.State()
	assert.Len(t, s.Files(SupportingSlot), registry.DefaultMaxFiles)
	assert.Equal(t, "Maximum 10 files allowed", s.Errors[SupportingSlot])
	assert.Equal(t, registry.DefaultMaxFiles, fx.stager.Live())
}

func TestWizard_MultiFileSlotSatisfiesRequirement(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard
	require.NoError(t, w.SetField("country", "SG"))
	require.NoError(t, w.SetField("businessType", "partnership"))

	for _, slot := range append(append([]string{}, FixedDocumentSlots...), w.RequiredDocuments()...) {
		require.NoError(t, w.StageDocument(slot, pdf(slot+".pdf")))
	}
	assert.True(t, w.ValidateStep(StepDocuments))

	w.ClearDocument("all_partners_id")
	assert.False(t, w.ValidateStep(StepDocuments))
	assert.Equal(t, "Partners' IDs (NRIC / Passport) - all partners is required", w.State().Errors["all_partners_id"])
}

func TestWizard_ResetReleasesEverything(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard
	fillSoleProprietorSG(t, w)
	require.NoError(t, w.StageDocument("kycDocument", pdf("k.pdf")))
	require.NoError(t, w.StageDocument("owner_id", pdf("id.pdf")))
	require.NoError(t, w.StageDocument(SupportingSlot, pdf("extra.pdf")))
	w.Next()

	w.Reset()
	assert.Equal(t, InitialState(), w.State())
	assert.Equal(t, 0, fx.stager.Live())
}

// ==========================
// Slots and payload
// ==========================

func TestWizard_DocumentSlotsAndLabels(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard
	assert.Equal(t, append(append([]string{}, FixedDocumentSlots...), SupportingSlot), w.DocumentSlots())

	fillSoleProprietorSG(t, w)
	assert.Equal(t, []string{
		"kycDocument", "businessLicense", "proofOfAddress",
		"bank_statement", "business_registration", "owner_id",
		SupportingSlot,
	}, w.DocumentSlots())
	assert.Equal(t, []string{"bank_statement", "business_registration", "owner_id"}, w.RequiredDocuments())

	assert.Equal(t, "KYC document", w.DocumentLabel("kycDocument"))
	assert.Equal(t, "Owner ID (NRIC/Passport)", w.DocumentLabel("owner_id"))
	assert.Equal(t, SupportingLabel, w.DocumentLabel(SupportingSlot))
	assert.Equal(t, "mystery", w.DocumentLabel("mystery"))
}

func TestWizard_FormData(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard
	fillSoleProprietorSG(t, w)

	data := w.FormData()
	assert.Equal(t, "Acme Trading", data["companyName"])
	assert.Equal(t, map[string]string{
		"gstNumber":                  "12345678D",
		"businessRegistrationNumber": "12345678L",
		"acraUEN":                    "201912345K",
	}, data["countrySpecificFields"])
	assert.Equal(t, map[string]string{
		"ownerName":     "Tan Ah Kow",
		"ownerIdNumber": "S1234567A",
	}, data["businessTypeSpecificFields"])
}

func TestWizard_Navigation(t *testing.T) {
	fx := newWizardFixture(t)
	w := fx.wizard

	assert.Equal(t, StepBasicInfo, w.Next().CurrentStep)
	assert.Equal(t, StepReview, w.GoTo(StepReview).CurrentStep)
	assert.Equal(t, StepReview, w.GoTo(9).CurrentStep)
	assert.Equal(t, StepDocuments, w.Prev().CurrentStep)

	w.GoTo(StepBrief)
	assert.Equal(t, StepBrief, w.Prev().CurrentStep)
}
