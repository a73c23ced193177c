// Package store keeps resumable wizard drafts and the signed-in session in
// Redis.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"sme-onboarding/internal/common/database"
	stderrors "sme-onboarding/internal/common/errors"
	"sme-onboarding/internal/common/logger"
	"sme-onboarding/internal/onboarding/form"
	"sme-onboarding/internal/onboarding/staging"

	"github.com/google/uuid"
)

const draftKeyPrefix = "onboarding:draft:"

// DraftFile remembers where a staged document came from. Only files read
// from disk can be restored.
type DraftFile struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
}

// Draft is the persisted subset of a wizard session. Errors, touched flags,
// upload progress and upload metadata are not saved.
type Draft struct {
	ID                 string               `json:"id"`
	UserID             string               `json:"userId,omitempty"`
	Step               int                  `json:"step"`
	Fields             map[string]string    `json:"fields"`
	CountryFields      map[string]string    `json:"countryFields,omitempty"`
	BusinessTypeFields map[string]string    `json:"businessTypeFields,omitempty"`
	Documents          map[string]DraftFile `json:"documents,omitempty"`
	// DocumentLists holds multi-file slots in staging order.
	DocumentLists map[string][]DraftFile `json:"documentLists,omitempty"`
	SavedAt            time.Time            `json:"savedAt"`
}

// FromState captures a wizard snapshot.
func FromState(s form.State, userID string) *Draft {
	d := &Draft{
		UserID:             userID,
		Step:               s.CurrentStep,
		Fields:             make(map[string]string, len(s.Data.Fields)),
		CountryFields:      make(map[string]string, len(s.Data.CountrySpecificFields)),
		BusinessTypeFields: make(map[string]string, len(s.Data.BusinessTypeSpecificFields)),
		Documents:          make(map[string]DraftFile),
		DocumentLists:      make(map[string][]DraftFile),
	}
	for k, v := range s.Data.Fields {
		d.Fields[k] = v
	}
	for k, v := range s.Data.CountrySpecificFields {
		d.CountryFields[k] = v
	}
	for k, v := range s.Data.BusinessTypeSpecificFields {
		d.BusinessTypeFields[k] = v
	}
	for slot, f := range s.Data.Documents {
		if f == nil || f.Path == "" {
			continue
		}
		d.Documents[slot] = draftFile(f)
	}
	for slot, files := range s.Data.DocumentLists {
		for _, f := range files {
			if f == nil || f.Path == "" {
				continue
			}
			d.DocumentLists[slot] = append(d.DocumentLists[slot], draftFile(f))
		}
	}
	return d
}

func draftFile(f *staging.File) DraftFile {
	return DraftFile{Name: f.Name, Path: f.Path, Size: f.Size, ContentType: f.ContentType}
}

// Apply replays the draft into w through its normal entry points, so
// values the current registry no longer declares are skipped and every
// document is re-validated and re-staged. It returns the problems met;
// none of them abort the restore.
func (d *Draft) Apply(w *form.Wizard) []error {
	w.Reset()
	var problems []error

	// Selection first so the dynamic fields are legal.
	for _, name := range []string{"country", "businessType"} {
		if v := d.Fields[name]; v != "" {
			if err := w.SetField(name, v); err != nil {
				problems = append(problems, err)
			}
		}
	}
	for _, name := range form.BaseFields {
		if name == "country" || name == "businessType" {
			continue
		}
		if v, ok := d.Fields[name]; ok && v != "" {
			if err := w.SetField(name, v); err != nil {
				problems = append(problems, err)
			}
		}
	}
	for _, k := range sortedKeys(d.CountryFields) {
		if err := w.SetCountryField(k, d.CountryFields[k]); err != nil {
			problems = append(problems, err)
		}
	}
	for _, k := range sortedKeys(d.BusinessTypeFields) {
		if err := w.SetBusinessTypeField(k, d.BusinessTypeFields[k]); err != nil {
			problems = append(problems, err)
		}
	}
	for _, slot := range sortedKeys(d.Documents) {
		if err := restageDocument(w, slot, d.Documents[slot]); err != nil {
			problems = append(problems, err)
		}
	}
	for _, slot := range sortedKeys(d.DocumentLists) {
		for _, df := range d.DocumentLists[slot] {
			if err := restageDocument(w, slot, df); err != nil {
				problems = append(problems, err)
			}
		}
	}
	w.GoTo(d.Step)
	return problems
}

func restageDocument(w *form.Wizard, slot string, df DraftFile) error {
	f, err := staging.FromPath(df.Path)
	if err != nil {
		return fmt.Errorf("%s: %w", slot, err)
	}
	if err := w.StageDocument(slot, f); err != nil {
		return fmt.Errorf("%s: %w", slot, err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type DraftStore struct {
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewDraftStore(redis *database.RedisClient, ttl time.Duration, log logger.Logger) *DraftStore {
	return &DraftStore{
		redis:  redis,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "drafts"}),
	}
}

// Save stores d, assigning an ID on first save, and refreshes its TTL.
func (s *DraftStore) Save(ctx context.Context, d *Draft) (string, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.SavedAt = time.Now().UTC()
	if err := s.redis.SetJSON(ctx, draftKeyPrefix+d.ID, d, s.ttl); err != nil {
		return "", stderrors.NewQueryExecutionFailedError("save_draft", err)
	}
	s.logger.Info("Draft saved", map[string]interface{}{
		"draftId": d.ID,
		"step":    d.Step,
	})
	return d.ID, nil
}

// Load returns DRAFT_NOT_FOUND for unknown or expired IDs.
func (s *DraftStore) Load(ctx context.Context, id string) (*Draft, error) {
	var d Draft
	err := s.redis.GetJSON(ctx, draftKeyPrefix+id, &d)
	if errors.Is(err, database.ErrKeyNotFound) {
		return nil, stderrors.NewDraftNotFoundError(id)
	}
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("load_draft", err)
	}
	return &d, nil
}

func (s *DraftStore) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, draftKeyPrefix+id); err != nil {
		return stderrors.NewQueryExecutionFailedError("delete_draft", err)
	}
	return nil
}

// List returns the live drafts saved by userID, newest first. Drafts saved
// while signed out belong to the empty user ID.
func (s *DraftStore) List(ctx context.Context, userID string) ([]*Draft, error) {
	keys, err := s.redis.Keys(ctx, draftKeyPrefix+"*")
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("list_drafts", err)
	}
	sort.Strings(keys)

	drafts := make([]*Draft, 0, len(keys))
	for _, k := range keys {
		d, err := s.Load(ctx, strings.TrimPrefix(k, draftKeyPrefix))
		if stderrors.HasCode(err, stderrors.ErrCodeDraftNotFound) {
			// Expired between the scan and the read.
			continue
		}
		if err != nil {
			return nil, err
		}
		if d.UserID != userID {
			continue
		}
		drafts = append(drafts, d)
	}
	sort.SliceStable(drafts, func(i, j int) bool {
		return drafts[i].SavedAt.After(drafts[j].SavedAt)
	})
	return drafts, nil
}
