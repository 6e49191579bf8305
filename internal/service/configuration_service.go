package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusdesk/college-admin-api/internal/dto"
	"github.com/campusdesk/college-admin-api/internal/models"
	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
)

// Setting keys.
const (
	ConfigCollegeDisplayName       = "college_display_name"
	ConfigCurrentAcademicYear      = "current_academic_year"
	ConfigAllowDepartmentOverride  = "allow_department_override"
	ConfigEnableSubstituteRequests = "enable_substitute_requests"
)

type configurationRepository interface {
	List(ctx context.Context) ([]models.Setting, error)
	Get(ctx context.Context, key string) (*models.Setting, error)
	Save(ctx context.Context, settings []models.Setting) (map[string]string, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type settingSpec struct {
	key         string
	kind        models.SettingKind
	description string
	fallback    string
	pattern     *regexp.Regexp
}

// normalize canonicalises a raw value or explains why it is rejected.
func (s settingSpec) normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	switch s.kind {
	case models.SettingBoolean:
		b, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s expects true or false", s.key))
		}
		return strconv.FormatBool(b), nil
	default:
		if s.pattern != nil && !s.pattern.MatchString(raw) {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s has an invalid format", s.key))
		}
		return raw, nil
	}
}

// settingCatalog lists every key administrators may read or write, in display order.
var settingCatalog = []settingSpec{
	{
		key:         ConfigCollegeDisplayName,
		kind:        models.SettingString,
		description: "College name shown in headers and exported reports",
	},
	{
		key:         ConfigCurrentAcademicYear,
		kind:        models.SettingString,
		description: "Academic year in YYYY-YY form, e.g. 2025-26",
		pattern:     regexp.MustCompile(`^\d{4}-\d{2}$`),
	},
	{
		key:         ConfigAllowDepartmentOverride,
		kind:        models.SettingBoolean,
		description: "Allow HODs to assign substitutes from other departments",
		fallback:    "true",
	},
	{
		key:         ConfigEnableSubstituteRequests,
		kind:        models.SettingBoolean,
		description: "Allow teachers to raise substitute requests",
		fallback:    "true",
	},
}

func lookupSetting(key string) (settingSpec, error) {
	for _, spec := range settingCatalog {
		if spec.key == key {
			return spec, nil
		}
	}
	return settingSpec{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported configuration key %q", key))
}

// ConfigurationServiceConfig overrides built-in defaults per key.
type ConfigurationServiceConfig struct {
	Defaults map[string]string
}

// ConfigurationService manages the whitelisted system settings and answers
// the policy questions other services ask of them.
type ConfigurationService struct {
	repo      configurationRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	defaults  map[string]string
}

func NewConfigurationService(repo configurationRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger, cfg ConfigurationServiceConfig) *ConfigurationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := make(map[string]string, len(settingCatalog))
	for _, spec := range settingCatalog {
		defaults[spec.key] = spec.fallback
		if v := strings.TrimSpace(cfg.Defaults[spec.key]); v != "" {
			defaults[spec.key] = v
		}
	}
	return &ConfigurationService{repo: repo, audit: audit, validator: validate, logger: logger, defaults: defaults}
}

// List returns every catalogued key. Stored rows for unknown keys are ignored.
func (s *ConfigurationService) List(ctx context.Context) ([]dto.ConfigurationItem, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list configurations")
	}
	stored := make(map[string]*models.Setting, len(rows))
	for i := range rows {
		stored[rows[i].Key] = &rows[i]
	}

	items := make([]dto.ConfigurationItem, 0, len(settingCatalog))
	for _, spec := range settingCatalog {
		items = append(items, s.item(spec, stored[spec.key]))
	}
	return items, nil
}

func (s *ConfigurationService) Get(ctx context.Context, key string) (*dto.ConfigurationItem, error) {
	spec, err := lookupSetting(key)
	if err != nil {
		return nil, err
	}
	row, err := s.stored(ctx, key)
	if err != nil {
		return nil, err
	}
	item := s.item(spec, row)
	return &item, nil
}

// Update sets a single key.
func (s *ConfigurationService) Update(ctx context.Context, key string, value string, actor *models.JWTClaims) (*dto.ConfigurationItem, error) {
	items, err := s.save(ctx, []dto.UpdateConfigurationRequest{{Key: key, Value: value}}, actor)
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// BulkUpdate validates every item before writing any of them.
func (s *ConfigurationService) BulkUpdate(ctx context.Context, req dto.BulkUpdateConfigurationRequest, actor *models.JWTClaims) ([]dto.ConfigurationItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload")
	}
	return s.save(ctx, req.Items, actor)
}

func (s *ConfigurationService) save(ctx context.Context, changes []dto.UpdateConfigurationRequest, actor *models.JWTClaims) ([]dto.ConfigurationItem, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	specs := make([]settingSpec, 0, len(changes))
	rows := make([]models.Setting, 0, len(changes))
	seen := make(map[string]struct{}, len(changes))
	for _, change := range changes {
		spec, err := lookupSetting(strings.TrimSpace(change.Key))
		if err != nil {
			return nil, err
		}
		if _, dup := seen[spec.key]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s appears more than once", spec.key))
		}
		seen[spec.key] = struct{}{}

		value, err := spec.normalize(change.Value)
		if err != nil {
			return nil, err
		}
		if value == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s requires a value", spec.key))
		}
		specs = append(specs, spec)
		rows = append(rows, models.Setting{
			Key:         spec.key,
			Value:       value,
			Type:        spec.kind,
			Description: optionalString(spec.description),
			UpdatedBy:   userIDPtr(actor),
		})
	}

	previous, err := s.repo.Save(ctx, rows)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update configuration")
	}

	items := make([]dto.ConfigurationItem, 0, len(rows))
	for i := range rows {
		items = append(items, s.item(specs[i], &rows[i]))
		old, existed := previous[rows[i].Key]
		if !existed {
			old = s.defaults[rows[i].Key]
		}
		s.emitAudit(ctx, actor, rows[i].Key, old, rows[i].Value)
	}
	return items, nil
}

// IsDepartmentOverrideEnabled reports whether HODs may lift the department restriction.
func (s *ConfigurationService) IsDepartmentOverrideEnabled(ctx context.Context) (bool, error) {
	return s.flag(ctx, ConfigAllowDepartmentOverride)
}

// IsSubstituteRequestsEnabled reports whether teachers may raise substitute requests.
func (s *ConfigurationService) IsSubstituteRequestsEnabled(ctx context.Context) (bool, error) {
	return s.flag(ctx, ConfigEnableSubstituteRequests)
}

// CollegeDisplayName returns the configured college name. Lookup failures
// yield an empty string.
func (s *ConfigurationService) CollegeDisplayName(ctx context.Context) string {
	row, err := s.stored(ctx, ConfigCollegeDisplayName)
	if err != nil {
		s.logger.Warn("failed to read college display name", zap.Error(err))
		return ""
	}
	if row == nil {
		return s.defaults[ConfigCollegeDisplayName]
	}
	return row.Value
}

func (s *ConfigurationService) flag(ctx context.Context, key string) (bool, error) {
	row, err := s.stored(ctx, key)
	if err != nil {
		return false, err
	}
	value := s.defaults[key]
	if row != nil {
		value = row.Value
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		s.logger.Warn("non-boolean configuration value", zap.String("key", key), zap.String("value", value))
		return false, nil
	}
	return enabled, nil
}

// stored returns nil, nil when the key has no row.
func (s *ConfigurationService) stored(ctx context.Context, key string) (*models.Setting, error) {
	row, err := s.repo.Get(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get configuration")
	}
	return row, nil
}

func (s *ConfigurationService) item(spec settingSpec, row *models.Setting) dto.ConfigurationItem {
	item := dto.ConfigurationItem{Key: spec.key, Type: string(spec.kind), Description: spec.description}
	if row == nil {
		item.Value = s.defaults[spec.key]
		item.IsDefault = true
		return item
	}
	item.Value = row.Value
	item.UpdatedBy = row.UpdatedBy
	if !row.UpdatedAt.IsZero() {
		at := row.UpdatedAt
		item.UpdatedAt = &at
	}
	return item
}

func (s *ConfigurationService) emitAudit(ctx context.Context, actor *models.JWTClaims, key, oldValue, newValue string) {
	if s.audit == nil {
		return
	}
	oldBytes, _ := json.Marshal(map[string]string{"key": key, "value": oldValue})
	newBytes, _ := json.Marshal(map[string]string{"key": key, "value": newValue})
	entry := &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     models.AuditActionConfigUpdate,
		Resource:   "configuration",
		ResourceID: &key,
		OldValues:  oldBytes,
		NewValues:  newBytes,
		IPAddress:  "system",
		UserAgent:  "configuration-service",
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record configuration audit", zap.Error(err))
	}
}

func userIDPtr(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	id := actor.UserID
	return &id
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
