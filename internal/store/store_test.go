package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sme-onboarding/internal/common/config"
	"sme-onboarding/internal/common/database"
	stderrors "sme-onboarding/internal/common/errors"
	"sme-onboarding/internal/common/logger"
	"sme-onboarding/internal/common/validation"
	"sme-onboarding/internal/models"
	"sme-onboarding/internal/onboarding/form"
	"sme-onboarding/internal/onboarding/staging"
	"sme-onboarding/pkg/registry"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *database.RedisClient) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newWizard(t *testing.T) *form.Wizard {
	log := logger.NewTestLogger(t)
	return form.NewWizard(registry.Default(), staging.NewStager(validation.FileOptions{}, log), log)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// ==========================
// Drafts
// ==========================

func TestDraftStore_SaveLoadDelete(t *testing.T) {
	mr, rc := setupRedis(t)
	s := NewDraftStore(rc, time.Hour, logger.NewTestLogger(t))
	ctx := context.Background()

	d := &Draft{UserID: "u-1", Step: form.StepFinancial, Fields: map[string]string{"companyName": "Acme"}}
	id, err := s.Save(ctx, d)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, d.ID)
	assert.True(t, mr.Exists("onboarding:draft:"+id))
	assert.Equal(t, time.Hour, mr.TTL("onboarding:draft:"+id))

	got, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Fields["companyName"])
	assert.Equal(t, form.StepFinancial, got.Step)

	drafts, err := s.List(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, id, drafts[0].ID)

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Load(ctx, id)
	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeDraftNotFound))
}

func TestDraftStore_ListIsScopedToUser(t *testing.T) {
	_, rc := setupRedis(t)
	s := NewDraftStore(rc, time.Hour, logger.NewTestLogger(t))
	ctx := context.Background()

	mine1, err := s.Save(ctx, &Draft{UserID: "u-1", Fields: map[string]string{"companyName": "Acme"}})
	require.NoError(t, err)
	mine2, err := s.Save(ctx, &Draft{UserID: "u-1", Fields: map[string]string{"companyName": "Acme Two"}})
	require.NoError(t, err)
	theirs, err := s.Save(ctx, &Draft{UserID: "u-2", Fields: map[string]string{"companyName": "Other Co"}})
	require.NoError(t, err)
	anonymous, err := s.Save(ctx, &Draft{Fields: map[string]string{}})
	require.NoError(t, err)

	ids := func(drafts []*Draft) []string {
		out := make([]string, len(drafts))
		for i, d := range drafts {
			out[i] = d.ID
		}
		return out
	}

	got, err := s.List(ctx, "u-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{mine1, mine2}, ids(got))

	got, err = s.List(ctx, "u-2")
	require.NoError(t, err)
	assert.Equal(t, []string{theirs}, ids(got))

	got, err = s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{anonymous}, ids(got))

	got, err = s.List(ctx, "u-3")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDraftStore_Expiry(t *testing.T) {
	mr, rc := setupRedis(t)
	s := NewDraftStore(rc, time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	id, err := s.Save(ctx, &Draft{Fields: map[string]string{}})
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = s.Load(ctx, id)
	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeDraftNotFound))
}

func TestDraft_RoundTripThroughWizard(t *testing.T) {
	_, rc := setupRedis(t)
	s := NewDraftStore(rc, time.Hour, logger.NewTestLogger(t))
	ctx := context.Background()

	kycPath := writeFile(t, "kyc.pdf", []byte("%PDF-1.4"))

	w := newWizard(t)
	require.NoError(t, w.SetField("companyName", "Acme Trading"))
	require.NoError(t, w.SetField("country", "SG"))
	require.NoError(t, w.SetField("businessType", "sole_proprietorship"))
	require.NoError(t, w.SetCountryField("gstNumber", "12345678D"))
	require.NoError(t, w.SetBusinessTypeField("ownerName", "Tan"))
	kyc, err := staging.FromPath(kycPath)
	require.NoError(t, err)
	require.NoError(t, w.StageDocument("kycDocument", kyc))
	require.NoError(t, w.StageDocument("proofOfAddress", staging.NewFile("mem.pdf", "application/pdf", []byte("x"))))
	w.GoTo(form.StepDocuments)

	draft := FromState(w.State(), "u-1")
	assert.Contains(t, draft.Documents, "kycDocument")
	assert.NotContains(t, draft.Documents, "proofOfAddress", "in-memory files cannot be restored")

	id, err := s.Save(ctx, draft)
	require.NoError(t, err)
	loaded, err := s.Load(ctx, id)
	require.NoError(t, err)

	restored := newWizard(t)
	problems := loaded.Apply(restored)
	assert.Empty(t, problems)

	st := restored.State()
	assert.Equal(t, form.StepDocuments, st.CurrentStep)
	assert.Equal(t, "Acme Trading", st.Field("companyName"))
	assert.Equal(t, "12345678D", st.Data.CountrySpecificFields["gstNumber"])
	assert.Equal(t, "Tan", st.Data.BusinessTypeSpecificFields["ownerName"])
	require.NotNil(t, st.Data.Documents["kycDocument"])
	assert.Equal(t, kycPath, st.Data.Documents["kycDocument"].Path)
	assert.NotEmpty(t, st.Data.Documents["kycDocument"].Handle)
}

func TestDraft_MultiFileSlotsRoundTrip(t *testing.T) {
	p1 := writeFile(t, "p1.pdf", []byte("%PDF-1.4 one"))
	p2 := writeFile(t, "p2.pdf", []byte("%PDF-1.4 two"))

	w := newWizard(t)
	require.NoError(t, w.SetField("country", "SG"))
	require.NoError(t, w.SetField("businessType", "partnership"))
	for _, path := range []string{p1, p2} {
		f, err := staging.FromPath(path)
		require.NoError(t, err)
		require.NoError(t, w.StageDocument("all_partners_id", f))
	}

	draft := FromState(w.State(), "u-1")
	require.Len(t, draft.DocumentLists["all_partners_id"], 2)
	assert.NotContains(t, draft.Documents, "all_partners_id")

	restored := newWizard(t)
	assert.Empty(t, draft.Apply(restored))
	files := restored.State().Files("all_partners_id")
	require.Len(t, files, 2)
	assert.Equal(t, p1, files[0].Path)
	assert.Equal(t, p2, files[1].Path)
}

func TestDraft_SelectionChangeLeavesNoStaleDocument(t *testing.T) {
	bizfile := writeFile(t, "bizfile.pdf", []byte("%PDF-1.4"))

	w := newWizard(t)
	require.NoError(t, w.SetField("country", "SG"))
	f, err := staging.FromPath(bizfile)
	require.NoError(t, err)
	require.NoError(t, w.StageDocument("business_registration", f))
	require.NoError(t, w.SetField("country", "ID"))

	draft := FromState(w.State(), "u-1")
	assert.NotContains(t, draft.Documents, "business_registration")
	assert.Empty(t, draft.Apply(newWizard(t)))
}

func TestDraft_ApplyReportsStaleEntries(t *testing.T) {
	d := &Draft{
		Step:          form.StepBasicInfo,
		Fields:        map[string]string{"country": "ID"},
		CountryFields: map[string]string{"gstNumber": "12345678D"},
		Documents: map[string]DraftFile{
			"kycDocument": {Name: "gone.pdf", Path: filepath.Join(t.TempDir(), "gone.pdf")},
		},
	}
	w := newWizard(t)
	problems := d.Apply(w)
	require.Len(t, problems, 2)
	assert.True(t, stderrors.HasCode(problems[0], stderrors.ErrCodeUnknownField))
	assert.Equal(t, "ID", w.State().Country())
	assert.Nil(t, w.State().Data.Documents["kycDocument"])
}

// ==========================
// Session
// ==========================

func TestSessionStore(t *testing.T) {
	mr, rc := setupRedis(t)
	s := NewSessionStore(rc, 12*time.Hour)
	ctx := context.Background()

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, s.Save(ctx, &models.Session{UserID: "u-1", Email: "a@b.co", Role: models.RoleStaff, Token: "jwt"}))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jwt", got.Token)
	assert.True(t, got.IsStaff())
	assert.False(t, got.ExpiresAt.IsZero())

	mr.FastForward(13 * time.Hour)
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionStore_ExpiredPayloadIsCleared(t *testing.T) {
	mr, rc := setupRedis(t)
	s := NewSessionStore(rc, 0)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	require.NoError(t, s.Save(ctx, &models.Session{UserID: "u-1", CreatedAt: past.Add(-time.Hour), ExpiresAt: past}))

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.False(t, mr.Exists("onboarding:session"))
}
