package queue

import "strings"

// FormType classifies a form submission by its content
type FormType string

const (
	FormTypeQuote        FormType = "quote"
	FormTypeSupport      FormType = "support"
	FormTypeRegistration FormType = "registration"
	FormTypeNewsletter   FormType = "newsletter"
	FormTypeContact      FormType = "contact"
	FormTypeGeneral      FormType = "general"
)

// IsValid returns true if the form type is valid
func (t FormType) IsValid() bool {
	switch t {
	case FormTypeQuote, FormTypeSupport, FormTypeRegistration,
		FormTypeNewsletter, FormTypeContact, FormTypeGeneral:
		return true
	default:
		return false
	}
}

// String returns the string representation of FormType
func (t FormType) String() string {
	return string(t)
}

// honeypotFields are hidden form fields no human fills in
var honeypotFields = []string{"website", "url", "homepage"}

// IsSpam reports whether a honeypot field carries a value
func IsSpam(payload map[string]any) bool {
	for _, field := range honeypotFields {
		if v, ok := payload[field]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return true
			}
		}
	}
	return false
}

// classification keyword groups, checked in fixed priority order.
// Keyword matches beat the structural contact check, and contact beats
// the general catch-all.
var formTypeKeywords = []struct {
	formType FormType
	keywords []string
}{
	{FormTypeQuote, []string{"quote", "cotiza", "presupuesto", "budget", "precio", "pricing"}},
	{FormTypeSupport, []string{"help", "ayuda", "support", "soporte", "problema", "issue", "error"}},
	{FormTypeRegistration, []string{"register", "registro", "registrar", "sign up", "signup", "inscri"}},
	{FormTypeNewsletter, []string{"newsletter", "boletin", "boletín", "subscribe", "suscri"}},
}

var contactIdentityFields = []string{"email", "correo", "e-mail", "name", "nombre", "first_name"}

// Classify determines the form type from the submitted payload.
// Free-text values are scanned for keywords in priority order; a
// submission with identity fields but no keyword match is a contact
// request, anything else is general.
func Classify(payload map[string]any) FormType {
	var text strings.Builder
	for key, value := range payload {
		text.WriteString(strings.ToLower(key))
		text.WriteString(" ")
		if s, ok := value.(string); ok {
			text.WriteString(strings.ToLower(s))
			text.WriteString(" ")
		}
	}
	haystack := text.String()

	for _, group := range formTypeKeywords {
		for _, keyword := range group.keywords {
			if strings.Contains(haystack, keyword) {
				return group.formType
			}
		}
	}

	for _, field := range contactIdentityFields {
		if v, ok := payload[field]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return FormTypeContact
			}
		}
	}
	return FormTypeGeneral
}
