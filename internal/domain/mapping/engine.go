package mapping

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/crmsync/backend/internal/domain/shared"
)

var fieldValidator = validator.New()

// intelligentPattern matches an unrecognized source field name to a
// canonical destination. Patterns are evaluated in order, first match wins.
type intelligentPattern struct {
	re          *regexp.Regexp
	remoteField string
	localField  string
	container   ContainerKind
	normalize   Normalization
}

// Priority order is fixed: more specific identity fields are checked
// before the generic name pattern, free-text fields last.
var intelligentPatterns = []intelligentPattern{
	{regexp.MustCompile(`(?i)(e[-_]?mail|correo)`), "EMAIL", "email", ContainerMultiValue, NormalizeEmail},
	{regexp.MustCompile(`(?i)(phone|tel[ée]?fono|celular|mobile|m[oó]vil)`), "PHONE", "phone", ContainerMultiValue, NormalizePhone},
	{regexp.MustCompile(`(?i)(first[-_ ]?name|nombre)`), "NAME", "first_name", ContainerScalar, NormalizeNone},
	{regexp.MustCompile(`(?i)(last[-_ ]?name|apellido|surname)`), "LAST_NAME", "last_name", ContainerScalar, NormalizeNone},
	{regexp.MustCompile(`(?i)name`), "NAME", "first_name", ContainerScalar, NormalizeNone},
	{regexp.MustCompile(`(?i)(message|comment|mensaje|consulta|note)`), "COMMENTS", "message", ContainerScalar, NormalizeNone},
	{regexp.MustCompile(`(?i)(company|empresa|organi[sz]ation)`), "COMPANY_TITLE", "company", ContainerScalar, NormalizeNone},
	{regexp.MustCompile(`(?i)(address|direcci[oó]n)`), "ADDRESS", "address_1", ContainerScalar, NormalizeNone},
	{regexp.MustCompile(`(?i)(city|ciudad)`), "ADDRESS_CITY", "city", ContainerScalar, NormalizeNone},
	{regexp.MustCompile(`(?i)(country|pa[ií]s)`), "ADDRESS_COUNTRY", "country", ContainerScalar, NormalizeCountry},
}

// ---------------------------------------------------------------------------
// Engine
// ---------------------------------------------------------------------------

// Engine converts entity records between the store and CRM schemas.
// Transform is best-effort: on any internal fault it returns the input
// record unchanged so callers never fail because of a mapping problem.
type Engine struct {
	table         Table
	rules         map[string]Rule
	statusToStage map[string]string
	stageToStatus map[string]string
	countryNames  map[string]string
	fallbacks     map[EntityKind]Record
	phonePrefix   string
	contactRole   string
	intelligent   bool
	publisher     shared.EventPublisher
	logger        *zap.Logger
}

// EngineOption configures the engine
type EngineOption func(*Engine)

// WithTable replaces the built-in mapping table
func WithTable(table Table) EngineOption {
	return func(e *Engine) { e.table = table }
}

// WithRules installs user-configured field rules keyed by source field name
func WithRules(rules map[string]Rule) EngineOption {
	return func(e *Engine) { e.rules = rules }
}

// WithStatusMaps overrides the status/stage lookup tables
func WithStatusMaps(statusToStage, stageToStatus map[string]string) EngineOption {
	return func(e *Engine) {
		e.statusToStage = statusToStage
		e.stageToStatus = stageToStatus
	}
}

// WithFallbacks overrides the per-kind fallback values
func WithFallbacks(fallbacks map[EntityKind]Record) EngineOption {
	return func(e *Engine) { e.fallbacks = fallbacks }
}

// WithPhonePrefix sets the default country prefix for phone normalization
func WithPhonePrefix(prefix string) EngineOption {
	return func(e *Engine) { e.phonePrefix = prefix }
}

// WithIntelligentMatching toggles pattern-based mapping of unrecognized fields
func WithIntelligentMatching(enabled bool) EngineOption {
	return func(e *Engine) { e.intelligent = enabled }
}

// WithEventPublisher installs the after-transform notification sink
func WithEventPublisher(publisher shared.EventPublisher) EngineOption {
	return func(e *Engine) { e.publisher = publisher }
}

// WithLogger installs a logger, zap.NewNop by default
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an engine with the built-in tables and defaults
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		table:         DefaultTable(),
		rules:         map[string]Rule{},
		statusToStage: DefaultStatusToStage(),
		stageToStatus: DefaultStageToStatus(),
		countryNames:  DefaultCountryNames(),
		fallbacks:     DefaultFallbacks(),
		phonePrefix:   DefaultPhonePrefix,
		contactRole:   DefaultContactRole,
		intelligent:   true,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StageToStatus resolves a CRM deal stage to a store order status.
// Unknown stages return ok=false and the caller must skip the status
// mutation.
func (e *Engine) StageToStatus(stage string) (string, bool) {
	status, ok := e.stageToStatus[stage]
	return status, ok
}

// StatusToStage resolves a store order status to a CRM deal stage,
// defaulting to NEW for unknown statuses.
func (e *Engine) StatusToStage(status string) string {
	if stage, ok := e.statusToStage[status]; ok {
		return stage
	}
	return "NEW"
}

// Transform converts a record between schemas. It never fails: on any
// internal fault the original record is returned untouched.
func (e *Engine) Transform(ctx context.Context, kind EntityKind, direction Direction, record Record) (out Record) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("transform fault, returning record unchanged",
				zap.String("entity_kind", kind.String()),
				zap.String("direction", direction.String()),
				zap.Any("fault", r))
			out = record
		}
	}()

	descriptors := e.table.descriptorsFor(kind, direction)
	if descriptors == nil {
		e.logger.Warn("no mapping table for entity kind",
			zap.String("entity_kind", kind.String()),
			zap.String("direction", direction.String()))
		return record
	}

	out = Record{}
	for field, raw := range record {
		desc, ok := descriptors[field]
		if !ok {
			if matched, mdesc := e.matchIntelligent(field, direction); matched {
				desc = mdesc
			} else {
				continue
			}
		}
		value, err := e.normalizeValue(desc, direction, raw)
		if err != nil {
			e.logger.Warn("field normalization failed, skipping field",
				zap.String("field", field), zap.Error(err))
			continue
		}
		e.assign(out, desc, direction, value)
	}

	if direction == ToRemote {
		e.applyCalculated(kind, record, out)
	}

	// Fallbacks are outbound only: inbound records keep missing fields
	// empty so the change appliers' zero-value handling decides.
	if direction == ToRemote {
		for field, value := range e.fallbacks[kind] {
			if isEmptyValue(out[field]) {
				out[field] = value
			}
		}
	}

	e.notify(ctx, kind, direction, record, out)
	return out
}

// Validate checks entity-kind-specific shape rules. A nil result means
// the record is valid; otherwise the reasons are returned. Validation
// failures are reported, never fatal to the caller.
func (e *Engine) Validate(kind EntityKind, direction Direction, record Record) []string {
	var reasons []string

	switch kind {
	case EntityDeal:
		if direction == ToRemote {
			if title := stringValue(record["TITLE"]); strings.TrimSpace(title) == "" {
				reasons = append(reasons, "deal title is required")
			}
			if raw, ok := record["OPPORTUNITY"]; ok && !isNumeric(raw) {
				reasons = append(reasons, "deal opportunity amount must be numeric")
			}
		}
	case EntityContact, EntityLead:
		emailField := "EMAIL"
		if direction == FromRemote {
			emailField = "email"
		}
		if raw, ok := record[emailField]; ok {
			email := unwrapMultiValue(raw)
			if email != "" {
				if err := fieldValidator.Var(email, "email"); err != nil {
					reasons = append(reasons, fmt.Sprintf("invalid email address %q", email))
				}
			}
		}
	}
	return reasons
}

// ---------------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------------

func (e *Engine) matchIntelligent(field string, direction Direction) (bool, Descriptor) {
	if !e.intelligent {
		return false, Descriptor{}
	}
	for _, p := range intelligentPatterns {
		if !p.re.MatchString(field) {
			continue
		}
		desc := Descriptor{Container: p.container, Normalize: p.normalize, Role: e.contactRole}
		if direction == ToRemote {
			desc.Field = p.remoteField
		} else {
			desc.Field = p.localField
		}
		return true, desc
	}
	return false, Descriptor{}
}

func (e *Engine) normalizeValue(desc Descriptor, direction Direction, raw any) (any, error) {
	// structured sources are unwrapped before normalization
	if direction == FromRemote && desc.Container == ContainerMultiValue {
		raw = unwrapMultiValue(raw)
	}

	var value any
	switch desc.Normalize {
	case NormalizePhone:
		value = NormalizePhoneNumber(stringValue(raw), e.phonePrefix)
	case NormalizeEmail:
		value = NormalizeEmailAddress(stringValue(raw))
	case NormalizeCurrency:
		value = NormalizeCurrencyAmount(stringValue(raw))
	case NormalizeStatus:
		table := e.statusToStage
		if direction == FromRemote {
			table = e.stageToStatus
		}
		s := stringValue(raw)
		if mapped, ok := table[s]; ok {
			value = mapped
		} else {
			value = s
		}
	case NormalizeCountry:
		s := strings.ToUpper(strings.TrimSpace(stringValue(raw)))
		if name, ok := e.countryNames[s]; ok {
			value = name
		} else {
			value = stringValue(raw)
		}
	default:
		value = raw
	}

	if desc.Rule != "" {
		rule, ok := e.rules[desc.Rule]
		if !ok {
			return nil, fmt.Errorf("rule %q is not configured", desc.Rule)
		}
		applied, err := rule.Apply(stringValue(value))
		if err != nil {
			return nil, err
		}
		value = applied
	}
	return value, nil
}

func (e *Engine) assign(out Record, desc Descriptor, direction Direction, value any) {
	// multiple sources collapse into COMMENTS as labeled lines
	if desc.Field == "COMMENTS" {
		if existing := stringValue(out["COMMENTS"]); existing != "" {
			out["COMMENTS"] = existing + "\n" + stringValue(value)
			return
		}
		out["COMMENTS"] = stringValue(value)
		return
	}

	if direction == FromRemote {
		out[desc.Field] = value
		return
	}

	switch desc.Container {
	case ContainerMultiValue:
		role := desc.Role
		if role == "" {
			role = e.contactRole
		}
		out[desc.Field] = []map[string]any{{"VALUE": value, "VALUE_TYPE": role}}
	case ContainerObject:
		out[desc.Field] = map[string]any{desc.Property: value}
	default:
		out[desc.Field] = value
	}
}

func (e *Engine) applyCalculated(kind EntityKind, original, out Record) {
	switch kind {
	case EntityDeal:
		if isEmptyValue(out["TITLE"]) {
			number := stringValue(original["order_number"])
			if number == "" {
				number = stringValue(original["id"])
			}
			title := "Pedido #" + number
			if name := strings.TrimSpace(stringValue(original["customer_name"])); name != "" {
				title += " - " + name
			}
			out["TITLE"] = title
		}
		out["UTM_SOURCE"] = "webstore"
		out["UTM_MEDIUM"] = "ecommerce"
		if id := stringValue(original["id"]); id != "" {
			out["UTM_CAMPAIGN"] = "order_" + id
		}
	case EntityLead:
		if isEmptyValue(out["TITLE"]) {
			title := stringValue(out["NAME"])
			if title == "" {
				title = unwrapMultiValue(out["EMAIL"])
			}
			if title == "" {
				title = "Website form"
			}
			out["TITLE"] = title
		}
		out["UTM_SOURCE"] = "webform"
	}
	if isEmptyValue(out["DATE_CREATE"]) {
		out["DATE_CREATE"] = time.Now().Format(time.RFC3339)
	}
}

func (e *Engine) notify(ctx context.Context, kind EntityKind, direction Direction, original, transformed Record) {
	if e.publisher == nil {
		return
	}
	event := NewRecordTransformedEvent(kind, direction, original, transformed, ChangedFields(original, transformed))
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("after-transform notification failed", zap.Error(err))
	}
}

// ChangedFields lists destination keys whose value differs from, or is
// absent in, the original record. Informational only.
func ChangedFields(original, transformed Record) []string {
	var changed []string
	for field, value := range transformed {
		prev, ok := original[field]
		if !ok || stringValue(prev) != stringValue(value) {
			changed = append(changed, field)
		}
	}
	return changed
}

// unwrapMultiValue extracts the first VALUE from a multi-value container,
// tolerating the shapes remotes actually send
func unwrapMultiValue(raw any) string {
	switch v := raw.(type) {
	case []map[string]any:
		if len(v) > 0 {
			return stringValue(v[0]["VALUE"])
		}
	case []any:
		if len(v) > 0 {
			if m, ok := v[0].(map[string]any); ok {
				return stringValue(m["VALUE"])
			}
			return stringValue(v[0])
		}
	case map[string]any:
		return stringValue(v["VALUE"])
	default:
		return stringValue(raw)
	}
	return ""
}

func stringValue(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func isEmptyValue(raw any) bool {
	if raw == nil {
		return true
	}
	return stringValue(raw) == ""
}

func isNumeric(raw any) bool {
	switch raw.(type) {
	case float64, float32, int, int64:
		return true
	}
	_, err := strconv.ParseFloat(stringValue(raw), 64)
	return err == nil
}
