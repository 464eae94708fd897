package mapping

// ---------------------------------------------------------------------------
// Mapping Types
// ---------------------------------------------------------------------------

// EntityKind identifies which schema family a record belongs to
type EntityKind string

const (
	// EntityDeal maps store orders to CRM deals
	EntityDeal EntityKind = "deal"
	// EntityContact maps store customers to CRM contacts
	EntityContact EntityKind = "contact"
	// EntityLead maps form submissions to CRM leads
	EntityLead EntityKind = "lead"
)

// IsValid returns true if the entity kind is valid
func (k EntityKind) IsValid() bool {
	switch k {
	case EntityDeal, EntityContact, EntityLead:
		return true
	default:
		return false
	}
}

// String returns the string representation of EntityKind
func (k EntityKind) String() string {
	return string(k)
}

// Direction is the transformation direction
type Direction string

const (
	// ToRemote converts a store record into the CRM schema
	ToRemote Direction = "to_remote"
	// FromRemote converts a CRM record into the store schema
	FromRemote Direction = "from_remote"
)

// IsValid returns true if the direction is valid
func (d Direction) IsValid() bool {
	return d == ToRemote || d == FromRemote
}

// String returns the string representation of Direction
func (d Direction) String() string {
	return string(d)
}

// Record is a loosely typed entity snapshot, keyed by field name.
// Values are scalars, or container shapes for structured CRM fields.
type Record map[string]any

// Clone returns a shallow copy of the record
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ContainerKind describes the shape of a destination field
type ContainerKind string

const (
	// ContainerScalar writes the value directly
	ContainerScalar ContainerKind = "scalar"
	// ContainerMultiValue wraps the value as [{VALUE, VALUE_TYPE}]
	ContainerMultiValue ContainerKind = "multivalue"
	// ContainerObject wraps the value as {property: value}
	ContainerObject ContainerKind = "object"
)

// Normalization names the canonical per-field normalization applied
// before the value is written to its destination
type Normalization string

const (
	// NormalizeNone passes the value through unchanged
	NormalizeNone Normalization = ""
	// NormalizePhone strips non-digits except a leading plus and
	// prepends the default country prefix when none is present
	NormalizePhone Normalization = "phone"
	// NormalizeEmail lowercases and trims
	NormalizeEmail Normalization = "email"
	// NormalizeCurrency parses a money string into a float amount
	NormalizeCurrency Normalization = "currency"
	// NormalizeStatus maps through the direction-specific status table
	NormalizeStatus Normalization = "status"
	// NormalizeCountry maps an ISO code to a display name
	NormalizeCountry Normalization = "country"
)

// Descriptor describes the destination of one source field
type Descriptor struct {
	// Field is the destination field name
	Field string
	// Container is the destination shape
	Container ContainerKind
	// Role is the VALUE_TYPE used for multi-value containers
	Role string
	// Property is the inner key used for object containers
	Property string
	// Normalize names the canonical normalization for the value
	Normalize Normalization
	// Rule optionally names a user-configured rule applied after
	// canonical normalization
	Rule string
}

// Table holds the directional sub-tables for every entity kind
type Table map[EntityKind]map[Direction]map[string]Descriptor

// descriptorsFor returns the directional sub-table, nil when absent
func (t Table) descriptorsFor(kind EntityKind, direction Direction) map[string]Descriptor {
	byDirection, ok := t[kind]
	if !ok {
		return nil
	}
	return byDirection[direction]
}
