package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/college-admin-api/internal/dto"
	"github.com/campusdesk/college-admin-api/internal/models"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
)

type settingsStore struct {
	rows  map[string]models.Setting
	err   error
	saves int
}

func (s *settingsStore) List(ctx context.Context) ([]models.Setting, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.Setting, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, row)
	}
	return out, nil
}

func (s *settingsStore) Get(ctx context.Context, key string) (*models.Setting, error) {
	if s.err != nil {
		return nil, s.err
	}
	if row, ok := s.rows[key]; ok {
		return &row, nil
	}
	return nil, sql.ErrNoRows
}

func (s *settingsStore) Save(ctx context.Context, settings []models.Setting) (map[string]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.saves++
	if s.rows == nil {
		s.rows = make(map[string]models.Setting)
	}
	previous := make(map[string]string)
	for _, row := range settings {
		if old, ok := s.rows[row.Key]; ok {
			previous[row.Key] = old.Value
		}
		row.UpdatedAt = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
		s.rows[row.Key] = row
	}
	return previous, nil
}

func newConfigService(repo *settingsStore, audit *auditRecorder) *ConfigurationService {
	return NewConfigurationService(repo, audit, validator.New(), nil, ConfigurationServiceConfig{})
}

func TestConfigurationUpdateNormalisesBoolean(t *testing.T) {
	audit := &auditRecorder{}
	svc := newConfigService(&settingsStore{}, audit)

	item, err := svc.Update(context.Background(), ConfigAllowDepartmentOverride, " FALSE ", adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "false", item.Value)
	assert.Equal(t, "BOOLEAN", item.Type)
	assert.False(t, item.IsDefault)
	require.NotNil(t, item.UpdatedBy)
	assert.Equal(t, []string{models.AuditActionConfigUpdate}, audit.actions())
	assert.JSONEq(t, `{"key":"allow_department_override","value":"true"}`, string(audit.logs[0].OldValues))

	_, err = svc.Update(context.Background(), ConfigAllowDepartmentOverride, "maybe", adminClaims())
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestConfigurationUpdateRejectsUnknownKey(t *testing.T) {
	svc := newConfigService(&settingsStore{}, &auditRecorder{})
	_, err := svc.Update(context.Background(), "unknown_key", "abc", adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestConfigurationUpdateValidatesAcademicYear(t *testing.T) {
	repo := &settingsStore{}
	svc := newConfigService(repo, &auditRecorder{})

	_, err := svc.Update(context.Background(), ConfigCurrentAcademicYear, "2025", adminClaims())
	require.Error(t, err)
	assert.Zero(t, repo.saves)

	item, err := svc.Update(context.Background(), ConfigCurrentAcademicYear, "2025-26", adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "2025-26", item.Value)
}

func TestConfigurationBulkUpdateIsAllOrNothing(t *testing.T) {
	repo := &settingsStore{}
	svc := newConfigService(repo, &auditRecorder{})

	for _, items := range [][]dto.UpdateConfigurationRequest{
		{{Key: ConfigEnableSubstituteRequests, Value: "true"}, {Key: "unknown", Value: "value"}},
		{{Key: ConfigEnableSubstituteRequests, Value: "true"}, {Key: ConfigEnableSubstituteRequests, Value: "false"}},
	} {
		_, err := svc.BulkUpdate(context.Background(), dto.BulkUpdateConfigurationRequest{Items: items}, adminClaims())
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
	assert.Zero(t, repo.saves)
}

func TestConfigurationBulkUpdateAuditsEachItem(t *testing.T) {
	repo := &settingsStore{rows: map[string]models.Setting{
		ConfigCollegeDisplayName: {Key: ConfigCollegeDisplayName, Value: "Old", Type: models.SettingString},
	}}
	audit := &auditRecorder{}
	svc := newConfigService(repo, audit)

	items, err := svc.BulkUpdate(context.Background(), dto.BulkUpdateConfigurationRequest{Items: []dto.UpdateConfigurationRequest{
		{Key: ConfigCollegeDisplayName, Value: "Riverside College"},
		{Key: ConfigAllowDepartmentOverride, Value: "false"},
	}}, adminClaims())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 1, repo.saves)
	assert.Equal(t, "Riverside College", repo.rows[ConfigCollegeDisplayName].Value)
	require.Len(t, audit.logs, 2)
	assert.JSONEq(t, `{"key":"college_display_name","value":"Old"}`, string(audit.logs[0].OldValues))
}

func TestConfigurationWritesRequireActor(t *testing.T) {
	svc := newConfigService(&settingsStore{}, &auditRecorder{})
	_, err := svc.Update(context.Background(), ConfigCollegeDisplayName, "X", nil)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(context.Background(), ConfigCollegeDisplayName, "   ", adminClaims())
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestConfigurationListUsesCatalogOrderAndDefaults(t *testing.T) {
	repo := &settingsStore{rows: map[string]models.Setting{
		ConfigEnableSubstituteRequests: {Key: ConfigEnableSubstituteRequests, Value: "false", Type: models.SettingBoolean},
		"other_key":                    {Key: "other_key", Value: "secret", Type: models.SettingString},
	}}
	svc := newConfigService(repo, &auditRecorder{})

	items, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, len(settingCatalog))
	for i, spec := range settingCatalog {
		assert.Equal(t, spec.key, items[i].Key)
	}

	byKey := make(map[string]dto.ConfigurationItem, len(items))
	for _, item := range items {
		byKey[item.Key] = item
	}
	assert.NotContains(t, byKey, "other_key")
	assert.Equal(t, "false", byKey[ConfigEnableSubstituteRequests].Value)
	assert.False(t, byKey[ConfigEnableSubstituteRequests].IsDefault)
	assert.Equal(t, "true", byKey[ConfigAllowDepartmentOverride].Value)
	assert.True(t, byKey[ConfigAllowDepartmentOverride].IsDefault)
}

func TestConfigurationRepositoryErrorsAreInternal(t *testing.T) {
	svc := newConfigService(&settingsStore{err: errors.New("db down")}, &auditRecorder{})
	_, err := svc.Update(context.Background(), ConfigCollegeDisplayName, "Riverside", adminClaims())
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	_, err = svc.List(context.Background())
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestConfigurationConfiguredDefaults(t *testing.T) {
	svc := NewConfigurationService(&settingsStore{}, &auditRecorder{}, validator.New(), nil,
		ConfigurationServiceConfig{Defaults: map[string]string{ConfigCollegeDisplayName: "Riverside College"}})

	item, err := svc.Get(context.Background(), ConfigCollegeDisplayName)
	require.NoError(t, err)
	assert.Equal(t, "Riverside College", item.Value)
	assert.True(t, item.IsDefault)
	assert.Equal(t, "Riverside College", svc.CollegeDisplayName(context.Background()))
}

func TestConfigurationOverrideFlag(t *testing.T) {
	repo := &settingsStore{}
	svc := newConfigService(repo, &auditRecorder{})

	enabled, err := svc.IsDepartmentOverrideEnabled(context.Background())
	require.NoError(t, err)
	assert.True(t, enabled)

	repo.rows = map[string]models.Setting{
		ConfigAllowDepartmentOverride: {Key: ConfigAllowDepartmentOverride, Value: "false"},
	}
	enabled, err = svc.IsDepartmentOverrideEnabled(context.Background())
	require.NoError(t, err)
	assert.False(t, enabled)

	repo.err = errors.New("db down")
	_, err = svc.IsDepartmentOverrideEnabled(context.Background())
	assert.Error(t, err)
}
